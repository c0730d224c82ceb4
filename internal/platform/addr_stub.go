//go:build !linux

package platform

import (
	"fmt"
	"net/netip"
)

func InterfaceAddr(iface string) (netip.Addr, error) {
	return netip.Addr{}, fmt.Errorf("interface address discovery is only supported on linux")
}
