package models

import "net/netip"

// IsLocalIP reports whether ip is a private, loopback, or link-local
// address. Both the upload/download split and the reverse DNS
// short-circuit rely on this single predicate so the two never
// disagree. Unparseable input is treated as non-local.
func IsLocalIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}
