package patroni

import "net/netip"

// ValidationError indicates an invalid input to configuration synthesis.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// TopologyError indicates that the node's own address appeared in its peer
// set. Rendering such a document would make the node its own replication
// partner, so synthesis refuses it outright instead of filtering silently.
type TopologyError struct {
	Addr netip.Addr
}

func (e *TopologyError) Error() string {
	return "self address " + e.Addr.String() + " present in peer set"
}

// CredentialError indicates an empty credential field. Synthesis never
// inspects secret contents beyond this presence check.
type CredentialError struct {
	Field string
}

func (e *CredentialError) Error() string {
	return "credential " + e.Field + " is not set"
}
