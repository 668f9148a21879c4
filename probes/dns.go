package probes

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/jonwraymond/healthops/health"
)

const defaultResolvConf = "/etc/resolv.conf"

// DNSConfig configures a DNS probe.
type DNSConfig struct {
	Name string
	Host string

	// Server is the resolver address, host:port. Default: the first
	// nameserver in /etc/resolv.conf.
	Server string

	// RecordType is A or AAAA. Default: A
	RecordType string

	// Network is udp or tcp. Default: udp
	Network string

	// DegradedLatency marks slower answers as degraded. Zero disables it.
	DegradedLatency time.Duration
}

// DNSChecker resolves a host against a specific resolver.
type DNSChecker struct {
	config DNSConfig
	qtype  uint16
	client *dns.Client
}

// NewDNSChecker creates a DNS checker.
func NewDNSChecker(config DNSConfig) (*DNSChecker, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("%w: host", ErrMissingParam)
	}
	if config.Name == "" {
		config.Name = "dns"
	}
	if config.RecordType == "" {
		config.RecordType = "A"
	}
	qtype, ok := dns.StringToType[strings.ToUpper(config.RecordType)]
	if !ok || (qtype != dns.TypeA && qtype != dns.TypeAAAA) {
		return nil, fmt.Errorf("%w: record_type %q", ErrInvalidParam, config.RecordType)
	}
	switch config.Network {
	case "":
		config.Network = "udp"
	case "udp", "tcp":
	default:
		return nil, fmt.Errorf("%w: network %q", ErrInvalidParam, config.Network)
	}
	if config.Server == "" {
		server, err := systemResolver(defaultResolvConf)
		if err != nil {
			return nil, fmt.Errorf("%w: server: %w", ErrMissingParam, err)
		}
		config.Server = server
	}
	if _, _, err := net.SplitHostPort(config.Server); err != nil {
		config.Server = net.JoinHostPort(config.Server, "53")
	}

	return &DNSChecker{
		config: config,
		qtype:  qtype,
		client: &dns.Client{Net: config.Network},
	}, nil
}

func systemResolver(path string) (string, error) {
	cc, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return "", err
	}
	if len(cc.Servers) == 0 {
		return "", fmt.Errorf("no nameservers in %s", path)
	}
	return net.JoinHostPort(cc.Servers[0], cc.Port), nil
}

// Name returns the checker name.
func (c *DNSChecker) Name() string { return c.config.Name }

// Check queries the resolver once.
func (c *DNSChecker) Check(ctx context.Context) health.Result {
	rtype := dns.TypeToString[c.qtype]
	q := fmt.Sprintf("%s %s @%s", c.config.Host, rtype, c.config.Server)

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(c.config.Host), c.qtype)
	m.RecursionDesired = true

	r, rtt, err := c.client.ExchangeContext(ctx, m, c.config.Server)
	if err != nil {
		if ctx.Err() != nil {
			return health.Unhealthy(q+" cancelled", ctx.Err())
		}
		return health.Unhealthy(fmt.Sprintf("%s failed: %v", q, err), err).
			WithDetail("server", c.config.Server)
	}

	rcode := dns.RcodeToString[r.Rcode]
	var res health.Result
	switch r.Rcode {
	case dns.RcodeSuccess:
		res = c.answered(q, r, rtt)
	case dns.RcodeServerFailure:
		res = health.Degraded(fmt.Sprintf("%s: resolver returned %s", q, rcode))
	case dns.RcodeNameError:
		res = health.Unhealthy(fmt.Sprintf("%s: %s", q, rcode), nil)
	default:
		res = health.Unhealthy(fmt.Sprintf("%s: resolver returned %s", q, rcode), nil)
	}
	return res.
		WithDetail("server", c.config.Server).
		WithDetail("rcode", rcode).
		WithDetail("rtt", rtt.String())
}

func (c *DNSChecker) answered(q string, r *dns.Msg, rtt time.Duration) health.Result {
	var addrs []string
	for _, rr := range r.Answer {
		switch v := rr.(type) {
		case *dns.A:
			if c.qtype == dns.TypeA {
				addrs = append(addrs, v.A.String())
			}
		case *dns.AAAA:
			if c.qtype == dns.TypeAAAA {
				addrs = append(addrs, v.AAAA.String())
			}
		}
	}
	if len(addrs) == 0 {
		return health.Unhealthy(fmt.Sprintf("%s: no %s records", q, dns.TypeToString[c.qtype]), nil)
	}

	var res health.Result
	if c.config.DegradedLatency > 0 && rtt > c.config.DegradedLatency {
		res = health.Degraded(fmt.Sprintf("%s slow: %s exceeds %s", q, rtt.Round(time.Millisecond), c.config.DegradedLatency))
	} else {
		res = health.Healthy(fmt.Sprintf("%s resolved %d records in %s", q, len(addrs), rtt.Round(time.Millisecond)))
	}
	return res.WithDetail("answers", addrs)
}
