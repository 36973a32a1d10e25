// Package resolve performs cached reverse DNS lookups.
package resolve

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"netscope/internal/classify"
	"netscope/internal/config"
	"netscope/internal/logging"
	"netscope/internal/models"
)

// LookupFunc resolves an IP address to a hostname. Implementations
// must honour ctx and return ok=false when no name exists or the
// lookup fails.
type LookupFunc func(ctx context.Context, ip string) (hostname string, ok bool)

// CacheStats describes resolver cache behaviour since startup.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// Resolver maps IP addresses to hostnames via reverse DNS. Results,
// including negative ones, are cached in a bounded LRU so each address
// costs at most one lookup while it stays cached.
type Resolver struct {
	lookup     LookupFunc
	timeout    time.Duration
	cache      *cache
	classifier *classify.Classifier
	logger     *zap.Logger
}

// New builds a Resolver from cfg. A nil lookup selects the default
// reverse DNS lookup against cfg.Servers, or the system resolver
// configuration when no servers are set.
func New(cfg config.DNSConfig, classifier *classify.Classifier, lookup LookupFunc, logger *zap.Logger) (*Resolver, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dns timeout: %w", err)
	}
	c, err := newCache(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("dns cache: %w", err)
	}
	if lookup == nil {
		lookup, err = defaultLookup(cfg.Servers, timeout)
		if err != nil {
			return nil, err
		}
	}
	return &Resolver{
		lookup:     lookup,
		timeout:    timeout,
		cache:      c,
		classifier: classifier,
		logger:     logger.Named("resolve"),
	}, nil
}

// Resolve returns the hostname for ip, or ok=false when the address
// has no name or the lookup failed within the timeout. Failures are
// never errors to the caller; they are the expected fallback.
func (r *Resolver) Resolve(ctx context.Context, ip string) (string, bool) {
	if e, ok := r.cache.get(ip); ok {
		return e.hostname, e.ok
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	hostname, ok := r.lookup(ctx, ip)
	r.cache.add(ip, entry{hostname: hostname, ok: ok})
	if ok {
		r.logger.Debug("resolved", logging.DstIP(ip), logging.Hostname(hostname))
	} else {
		r.logger.Debug("no reverse dns", logging.DstIP(ip))
	}
	return hostname, ok
}

// ResolveAndCategorize resolves ip and classifies the hostname. When
// no hostname is found the category is models.OtherCategory.
func (r *Resolver) ResolveAndCategorize(ctx context.Context, ip string) (hostname string, ok bool, category string) {
	hostname, ok = r.Resolve(ctx, ip)
	if !ok {
		return "", false, models.OtherCategory
	}
	return hostname, true, r.classifier.Categorize(hostname)
}

// CacheStats returns the resolver cache counters.
func (r *Resolver) CacheStats() CacheStats {
	return r.cache.stats()
}

// defaultLookup builds a PTR lookup over the given servers. Servers
// without a port get port 53.
func defaultLookup(servers []string, timeout time.Duration) (LookupFunc, error) {
	if len(servers) == 0 {
		cc, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("resolver config: %w", err)
		}
		for _, s := range cc.Servers {
			servers = append(servers, net.JoinHostPort(s, cc.Port))
		}
	} else {
		normalized := make([]string, 0, len(servers))
		for _, s := range servers {
			if _, _, err := net.SplitHostPort(s); err != nil {
				s = net.JoinHostPort(s, "53")
			}
			normalized = append(normalized, s)
		}
		servers = normalized
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no dns servers available")
	}

	client := &dns.Client{Timeout: timeout}
	return func(ctx context.Context, ip string) (string, bool) {
		rev, err := dns.ReverseAddr(ip)
		if err != nil {
			return "", false
		}
		m := new(dns.Msg)
		m.SetQuestion(rev, dns.TypePTR)
		for _, server := range servers {
			resp, _, err := client.ExchangeContext(ctx, m, server)
			if err != nil || resp == nil {
				continue
			}
			if resp.Rcode != dns.RcodeSuccess {
				return "", false
			}
			for _, rr := range resp.Answer {
				if ptr, isPTR := rr.(*dns.PTR); isPTR {
					return strings.TrimSuffix(ptr.Ptr, "."), true
				}
			}
			return "", false
		}
		return "", false
	}, nil
}
