package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/hamed0406/fleetcheck/internal/check"
	"github.com/hamed0406/fleetcheck/internal/domain"
)

// Resolver is the subset of *net.Resolver the dns check needs.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// DNSCheck passes when the server hostname resolves to at least one address.
// A missing name fails; a resolver that cannot answer is an error, since the
// server itself was never judged.
type DNSCheck struct {
	Name     string
	Resolver Resolver
}

func (d *DNSCheck) Run(ctx context.Context, srv domain.Server, opts *check.Options) (domain.Outcome, error) {
	host := strings.TrimSpace(srv.Hostname)
	if host == "" || strings.Contains(host, "://") || strings.ContainsAny(host, " /") {
		return domain.Error(d.Name, fmt.Sprintf("invalid hostname %q", srv.Hostname)), nil
	}
	r := d.Resolver
	if r == nil {
		r = net.DefaultResolver
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOf(opts))
	defer cancel()

	ips, err := r.LookupIP(ctx, "ip", host)
	if err == nil && len(ips) > 0 {
		addrs := make([]string, len(ips))
		for i, ip := range ips {
			addrs[i] = ip.String()
		}
		return domain.Pass(d.Name, "resolves to "+strings.Join(addrs, ",")), nil
	}

	var de *net.DNSError
	switch {
	case err == nil, errors.As(err, &de) && de.IsNotFound:
		if ns := nameservers(ctx, r, host); len(ns) > 0 {
			return domain.Fail(d.Name, "no address records; zone served by "+strings.Join(ns, ",")), nil
		}
		return domain.Fail(d.Name, "no such host"), nil
	default:
		return domain.Error(d.Name, "resolver: "+err.Error()), nil
	}
}

func nameservers(ctx context.Context, r Resolver, host string) []string {
	ns, err := r.LookupNS(ctx, host)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, strings.TrimSuffix(n.Host, "."))
	}
	return out
}
