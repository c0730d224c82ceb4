package converge

// Phase is the driver's position in the convergence lifecycle for one node.
//
//	Uninitialized → Bootstrapping → Converged ⇄ Reconfiguring
//
// Degraded is entered when the supervisor repeatedly refuses to reload; the
// node stays observable and is never dropped from the membership by this
// layer — removing members is the resolver's job.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseBootstrapping
	PhaseConverged
	PhaseReconfiguring
	PhaseDegraded
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseConverged:
		return "converged"
	case PhaseReconfiguring:
		return "reconfiguring"
	case PhaseDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}
