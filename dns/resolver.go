// Fichier: dns/resolver.go

// Package dns flattens SPF records into the address prefixes they
// authorize, so that a domain's mail senders can be fed to the resolver
// like any other prefix list.
package dns

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxLookups = 10 // Standard SPF lookup limit
	dnsTimeout        = 5 * time.Second
)

// Resolver manages SPF lookups with concurrency control and a lookup budget.
type Resolver struct {
	client     *dns.Client
	nameserver string
	maxLookups int
	limit      int
	logger     *zap.SugaredLogger

	// lookupTracker holds every domain whose TXT record was fetched, to stop
	// include cycles and to count lookups against maxLookups.
	lookupTracker map[string]struct{}
	mu            sync.Mutex
}

// NewResolver creates a Resolver querying nameserver ("host:port").
func NewResolver(nameserver string, concurrencyLimit, maxLookups int, logger *zap.Logger) *Resolver {
	if concurrencyLimit <= 0 {
		concurrencyLimit = 1
	}
	if maxLookups <= 0 {
		maxLookups = defaultMaxLookups
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client:        &dns.Client{Timeout: dnsTimeout},
		nameserver:    nameserver,
		maxLookups:    maxLookups,
		limit:         concurrencyLimit,
		logger:        logger.Sugar(),
		lookupTracker: make(map[string]struct{}),
	}
}

// GetLookupCount safely returns the current number of unique lookups tracked.
func (r *Resolver) GetLookupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lookupTracker)
}

// resolveDNS performs one query and fails on transport errors and on any
// rcode other than NOERROR.
func (r *Resolver) resolveDNS(ctx context.Context, domain string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), qtype)
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, r.nameserver)
	if err != nil {
		return nil, fmt.Errorf("DNS query error for %s (%s): %w", domain, dns.TypeToString[qtype], err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("DNS response failed for %s (%s). Rcode: %s", domain, dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
	return resp, nil
}

// FlattenSPF resolves the SPF record of domain and every record it
// includes, returning the authorized prefixes in record order.
func (r *Resolver) FlattenSPF(ctx context.Context, domain string) ([]string, error) {
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")

	r.mu.Lock()
	if _, ok := r.lookupTracker[domain]; ok {
		r.mu.Unlock()
		r.logger.Warnf("Detected recursion/cycle for domain %s, skipping.", domain)
		return nil, nil
	}
	if len(r.lookupTracker) >= r.maxLookups {
		count := len(r.lookupTracker)
		r.mu.Unlock()
		return nil, fmt.Errorf("lookup limit of %d reached for domain %s (current count: %d)", r.maxLookups, domain, count)
	}
	r.lookupTracker[domain] = struct{}{}
	count := len(r.lookupTracker)
	r.mu.Unlock()

	r.logger.Infof("Starting SPF resolution for %s (Lookup #%d)", domain, count)

	resp, err := r.resolveDNS(ctx, domain, dns.TypeTXT)
	if err != nil {
		return nil, err
	}

	spfRecord := ""
	for _, ans := range resp.Answer {
		if t, ok := ans.(*dns.TXT); ok && len(t.Txt) > 0 && strings.HasPrefix(strings.ToLower(t.Txt[0]), "v=spf1") {
			spfRecord = strings.Join(t.Txt, "")
			break
		}
	}
	if spfRecord == "" {
		r.logger.Warnf("No valid SPF record found for %s. Skipping.", domain)
		return nil, nil
	}

	terms := strings.Fields(spfRecord)[1:] // Skip "v=spf1"
	results := make([][]string, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, term := range terms {
		g.Go(func() error {
			nets, err := r.resolveTerm(gctx, domain, term)
			if err != nil {
				return fmt.Errorf("error resolving mechanism %s in %s: %w", term, domain, err)
			}
			results[i] = nets
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []string
	for _, nets := range results {
		all = append(all, nets...)
	}
	return all, nil
}

// resolveTerm handles one SPF term. Only pass terms (no qualifier or "+")
// contribute addresses; fail, softfail and neutral terms are skipped.
func (r *Resolver) resolveTerm(ctx context.Context, baseDomain, term string) ([]string, error) {
	switch term[0] {
	case '-', '~', '?':
		if !strings.EqualFold(term[1:], "all") {
			r.logger.Warnf("Skipping non-pass mechanism %s in %s", term, baseDomain)
		}
		return nil, nil
	case '+':
		term = term[1:]
	}
	lower := strings.ToLower(term)

	switch {
	case strings.HasPrefix(lower, "ip4:"), strings.HasPrefix(lower, "ip6:"):
		return parseIPTerm(term)

	case strings.HasPrefix(lower, "include:"):
		target := term[len("include:"):]
		if strings.EqualFold(target, baseDomain) {
			r.logger.Warnf("Skipping self-referential include: %s", target)
			return nil, nil
		}
		return r.FlattenSPF(ctx, target)

	case strings.HasPrefix(lower, "redirect="):
		return r.FlattenSPF(ctx, term[len("redirect="):])

	case lower == "a" || strings.HasPrefix(lower, "a:") || strings.HasPrefix(lower, "a/"):
		target, v4, v6, err := splitDomainSpec(term[1:], baseDomain)
		if err != nil {
			return nil, err
		}
		return r.resolveAAndAAAA(ctx, target, v4, v6), nil

	case lower == "mx" || strings.HasPrefix(lower, "mx:") || strings.HasPrefix(lower, "mx/"):
		target, v4, v6, err := splitDomainSpec(term[2:], baseDomain)
		if err != nil {
			return nil, err
		}
		return r.resolveMX(ctx, target, v4, v6)

	case lower == "ptr" || strings.HasPrefix(lower, "ptr:"):
		// PTR cannot be flattened faithfully; the domain's own addresses are
		// the usual stand-in.
		target, _, _, err := splitDomainSpec(term[3:], baseDomain)
		if err != nil {
			return nil, err
		}
		r.logger.Warnf("PTR mechanism found for %s. PTR records are highly discouraged and may be skipped by some receivers.", target)
		return r.resolveAAndAAAA(ctx, target, 32, 128), nil
	}

	// all, exists, exp= and unknown modifiers carry no addresses.
	return nil, nil
}

// parseIPTerm turns "ip4:..." or "ip6:..." into a prefix string, checking
// that the address matches the mechanism family.
func parseIPTerm(term string) ([]string, error) {
	want4 := strings.EqualFold(term[:3], "ip4")
	text := term[4:]

	addrText, lenText, hasLen := strings.Cut(text, "/")
	addr, err := netip.ParseAddr(addrText)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR syntax in SPF record: %s", term)
	}
	if addr.Is4() != want4 {
		return nil, fmt.Errorf("address family does not match mechanism: %s", term)
	}
	if !hasLen {
		return []string{netip.PrefixFrom(addr, addr.BitLen()).String()}, nil
	}
	return []string{addr.String() + "/" + lenText}, nil
}

// splitDomainSpec parses the "[:domain][/v4len][//v6len]" tail of an a or
// mx mechanism.
func splitDomainSpec(spec, baseDomain string) (domain string, v4, v6 int, err error) {
	domain, v4, v6 = baseDomain, 32, 128

	if i := strings.Index(spec, "//"); i >= 0 {
		if v6, err = strconv.Atoi(spec[i+2:]); err != nil || v6 < 0 || v6 > 128 {
			return "", 0, 0, fmt.Errorf("invalid ip6 cidr length in %q", spec)
		}
		spec = spec[:i]
	}
	if i := strings.Index(spec, "/"); i >= 0 {
		if v4, err = strconv.Atoi(spec[i+1:]); err != nil || v4 < 0 || v4 > 32 {
			return "", 0, 0, fmt.Errorf("invalid ip4 cidr length in %q", spec)
		}
		spec = spec[:i]
	}
	if strings.HasPrefix(spec, ":") && len(spec) > 1 {
		domain = spec[1:]
	}
	return domain, v4, v6, nil
}

// resolveAAndAAAA looks up A and AAAA records of domain. Failures are
// logged and skipped; A and AAAA lookups do not count towards the limit.
func (r *Resolver) resolveAAndAAAA(ctx context.Context, domain string, v4, v6 int) []string {
	var results []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := r.resolveDNS(ctx, domain, qtype)
		if err != nil {
			r.logger.Warnf("Failed to resolve %s records for %s: %v", dns.TypeToString[qtype], domain, err)
			continue
		}
		for _, ans := range resp.Answer {
			switch t := ans.(type) {
			case *dns.A:
				if addr, ok := netip.AddrFromSlice(t.A.To4()); ok {
					results = append(results, addr.String()+"/"+strconv.Itoa(v4))
				}
			case *dns.AAAA:
				if addr, ok := netip.AddrFromSlice(t.AAAA.To16()); ok {
					results = append(results, addr.String()+"/"+strconv.Itoa(v6))
				}
			}
		}
	}
	return results
}

// resolveMX resolves the MX hosts of domain and then their addresses.
func (r *Resolver) resolveMX(ctx context.Context, domain string, v4, v6 int) ([]string, error) {
	resp, err := r.resolveDNS(ctx, domain, dns.TypeMX)
	if err != nil {
		return nil, err
	}

	var all []string
	for _, ans := range resp.Answer {
		if mx, ok := ans.(*dns.MX); ok {
			all = append(all, r.resolveAAndAAAA(ctx, mx.Mx, v4, v6)...)
		}
	}
	return all, nil
}
