// File: backend/internal/dnscheck/dnscheck.go
package dnscheck

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/miekg/dns"
)

// Result is the outcome of one liveness check.
type Result struct {
	Domain      string   `json:"domain"`
	Status      string   `json:"status"` // Resolved, Not Found, Error
	IPAddresses []string `json:"ipAddresses,omitempty"`
	Resolver    string   `json:"resolver,omitempty"`
	Error       string   `json:"error,omitempty"`
	DurationMs  int64    `json:"durationMs"`
}

const (
	StatusResolved = "Resolved"
	StatusNotFound = "Not Found"
	StatusError    = "Error"
)

// Checker answers "does this domain still resolve" for the verifier and the
// re-validation sweep. Resolvers rotate round-robin.
type Checker struct {
	cfg       config.DNSCheckConfig
	resolvers []string
	mu        sync.Mutex
	nextIdx   int
}

func New(cfg config.DNSCheckConfig) *Checker {
	c := &Checker{cfg: cfg}

	if cfg.UseSystemResolvers {
		sysConfig, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			log.Printf("DNSCheck: Warning - Could not load system resolvers: %v", err)
		} else {
			for _, serverIP := range sysConfig.Servers {
				c.resolvers = append(c.resolvers, net.JoinHostPort(serverIP, sysConfig.Port))
			}
		}
	}
	c.resolvers = append(c.resolvers, cfg.Resolvers...)
	if len(c.resolvers) == 0 {
		log.Printf("DNSCheck: Warning - No resolvers configured, falling back to 1.1.1.1:53")
		c.resolvers = []string{"1.1.1.1:53"}
	}
	return c
}

func (c *Checker) nextResolver() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.resolvers[c.nextIdx%len(c.resolvers)]
	c.nextIdx++
	return r
}

// Check resolves A and AAAA records for a domain. NXDOMAIN yields Not Found;
// transport problems yield Error. Never panics or returns a Go error; callers
// branch on Result.Status.
func (c *Checker) Check(ctx context.Context, domain string) Result {
	start := time.Now()
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") {
		return Result{Domain: domain, Status: StatusError, Error: "Invalid domain format", DurationMs: time.Since(start).Milliseconds()}
	}

	resolver := c.nextResolver()
	result := Result{Domain: domain, Resolver: resolver}

	var ips []string
	var nxdomain bool
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		recIPs, rcode, err := c.query(ctx, domain, qtype, resolver)
		if err != nil {
			lastErr = err
			continue
		}
		if rcode == dns.RcodeNameError {
			nxdomain = true
			continue
		}
		ips = append(ips, recIPs...)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	switch {
	case len(ips) > 0:
		result.Status = StatusResolved
		result.IPAddresses = ips
	case nxdomain:
		result.Status = StatusNotFound
	case lastErr != nil:
		result.Status = StatusError
		result.Error = lastErr.Error()
	default:
		result.Status = StatusNotFound
	}
	return result
}

func (c *Checker) query(ctx context.Context, domain string, qtype uint16, resolver string) ([]string, int, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), qtype)
	m.RecursionDesired = true

	client := &dns.Client{Timeout: c.cfg.QueryTimeout}
	reply, _, err := client.ExchangeContext(ctx, m, resolver)
	if err != nil {
		return nil, 0, fmt.Errorf("query to %s failed for %s: %w", resolver, domain, err)
	}
	if reply.Rcode != dns.RcodeSuccess && reply.Rcode != dns.RcodeNameError {
		return nil, reply.Rcode, fmt.Errorf("resolver %s returned rcode %s for %s", resolver, dns.RcodeToString[reply.Rcode], domain)
	}

	var ips []string
	for _, rr := range reply.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			ips = append(ips, rec.A.String())
		case *dns.AAAA:
			ips = append(ips, rec.AAAA.String())
		}
	}
	return ips, reply.Rcode, nil
}
