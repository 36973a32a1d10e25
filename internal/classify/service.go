package classify

import (
	"strings"

	"netscope/internal/models"
)

// servicePatterns maps hostname substrings to a service label, tried
// in order.
var servicePatterns = []struct {
	substr  string
	service string
}{
	{"google", "Google Services"},
	{"gstatic", "Google Services"},
	{"apple", "Apple Services"},
	{"icloud", "Apple Services"},
	{"microsoft", "Microsoft Services"},
	{"amazonaws", "AWS Services"},
	{"cloudfront", "CDN Services"},
	{"akamai", "CDN Services"},
	{"facebook", "Meta Services"},
	{"instagram", "Meta Services"},
}

// GuessService suggests a display name for traffic whose owning
// process could not be identified, based on where the traffic goes.
// It returns models.UnknownApp when nothing matches.
func GuessService(destIP, hostname string) string {
	if hostname == "" || hostname == models.LocalHostname {
		if models.IsLocalIP(destIP) {
			return models.LocalHostname
		}
		return models.UnknownApp
	}
	lower := strings.ToLower(hostname)
	for _, p := range servicePatterns {
		if strings.Contains(lower, p.substr) {
			return p.service
		}
	}
	return models.UnknownApp
}
