package platform

import (
	"fmt"
	"net/netip"

	"github.com/vishvananda/netlink"
)

// InterfaceAddr returns the first global unicast IPv4 address assigned to
// iface. Database nodes replicate over a dedicated interface, so the lookup
// is by name rather than by default route.
func InterfaceAddr(iface string) (netip.Addr, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("interface %q: %w", iface, err)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("list addresses on %q: %w", iface, err)
	}
	for _, addr := range addrs {
		if addr.IP == nil {
			continue
		}
		ip, ok := netip.AddrFromSlice(addr.IP)
		if !ok {
			continue
		}
		ip = ip.Unmap()
		if ip.IsGlobalUnicast() {
			return ip, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("interface %q has no global unicast IPv4 address", iface)
}
