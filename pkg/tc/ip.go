package tc

import (
	"fmt"
	"net"
)

// IpToInt converts a dotted IPv4 address into its u32 form.
func IpToInt(IP string) (uint32, error) {
	ip := net.ParseIP(IP)
	if ip == nil {
		return 0, fmt.Errorf("invalid IP address: %v", IP)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("only IPv4 addresses are supported")
	}
	return (uint32(ip4[0]) << 24) | (uint32(ip4[1]) << 16) | (uint32(ip4[2]) << 8) | uint32(ip4[3]), nil
}
