package util

import (
	"net"
	"regexp"
	"strconv"
	"strings"
)

var (
	ipv4Re = regexp.MustCompile(`^([0-9]{1,3}\.){3}[0-9]{1,3}$`)
	cidrRe = regexp.MustCompile(`^([0-9]{1,3}\.){3}[0-9]{1,3}/([0-9]|[12][0-9]|3[0-2])$`)
)

// CheckIpv4 reports whether ip is a plain dotted IPv4 address (192.168.1.1).
func CheckIpv4(ip string) bool {
	if !ipv4Re.MatchString(ip) {
		return false
	}
	return checkOctets(ip)
}

// CheckSubnet reports whether cidr is an IPv4 network in CIDR form (10.0.0.0/24).
func CheckSubnet(cidr string) bool {
	if !cidrRe.MatchString(cidr) {
		return false
	}
	return checkOctets(strings.Split(cidr, "/")[0])
}

// SubnetContains reports whether ip lies inside cidr.
func SubnetContains(cidr, ip string) bool {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && ipNet.Contains(parsed)
}

func checkOctets(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if val, err := strconv.Atoi(part); err != nil || val < 0 || val > 255 {
			return false
		}
	}
	return true
}
