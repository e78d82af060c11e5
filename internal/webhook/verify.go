package webhook

import (
	"net"
	"strings"
)

// Safaricom's published callback egress ranges. Requests from anywhere
// else are rejected before their payload shape is looked at.
var safaricomCIDRs = []string{
	"196.201.212.0/24",
	"196.201.213.0/24",
	"196.201.214.0/24",
}

var safaricomNets = func() []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(safaricomCIDRs))
	for _, cidr := range safaricomCIDRs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("webhook: bad builtin CIDR " + cidr)
		}
		nets = append(nets, n)
	}
	return nets
}()

// VerifySourceIP reports whether remoteAddr (host:port or bare host)
// belongs to Safaricom's callback allowlist.
func VerifySourceIP(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimSpace(host)

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, n := range safaricomNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
