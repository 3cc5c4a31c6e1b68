package netutil

import (
	"fmt"
	"net"
)

// Subnet24 returns the /24 prefix of an IPv4 address, or "" when the
// input is not an IPv4 address.
func Subnet24(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	ipv4 := parsed.To4()
	if ipv4 == nil {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", ipv4[0], ipv4[1], ipv4[2])
}
