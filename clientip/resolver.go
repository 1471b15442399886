package clientip

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Unknown is returned when no source yields a valid address.
const Unknown = "unknown"

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// Resolver extracts the client IP from request metadata. A Resolver is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	trustedAddrs    map[netip.Addr]struct{}
	trustedPrefixes []netip.Prefix
}

// New builds a Resolver. Each trusted entry is either a single address
// ("10.0.0.1") or a CIDR prefix ("10.0.0.0/8").
func New(trusted []string) (*Resolver, error) {
	r := &Resolver{trustedAddrs: make(map[netip.Addr]struct{}, len(trusted))}
	for _, raw := range trusted {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy prefix %q: %w", entry, err)
			}
			r.trustedPrefixes = append(r.trustedPrefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy address %q: %w", entry, err)
		}
		r.trustedAddrs[addr.Unmap()] = struct{}{}
	}
	return r, nil
}

// HasTrustedProxies reports whether a trusted proxy set is configured.
func (r *Resolver) HasTrustedProxies() bool {
	return r != nil && (len(r.trustedAddrs) > 0 || len(r.trustedPrefixes) > 0)
}

// FromRequest resolves the client IP of an inbound HTTP request.
func (r *Resolver) FromRequest(req *http.Request) string {
	if req == nil {
		return Unknown
	}
	return r.Resolve(
		req.Header.Get(headerForwardedFor),
		req.Header.Get(headerRealIP),
		req.RemoteAddr,
	)
}

// Resolve picks the client address from a forwarded-for chain (client first),
// a real-ip header and the peer address, in that order of preference.
func (r *Resolver) Resolve(forwardedFor, realIP, remoteAddr string) string {
	if strings.TrimSpace(forwardedFor) != "" {
		hops := parseChain(forwardedFor)
		if len(hops) == 0 {
			// Garbage-only chain: fall back to the peer rather than the real-ip
			// header, which the same client could have forged.
			if addr, ok := parsePeer(remoteAddr); ok {
				return addr.String()
			}
			return Unknown
		}

		if r.HasTrustedProxies() {
			for i := len(hops) - 1; i >= 0; i-- {
				if !r.isTrusted(hops[i]) {
					return hops[i].String()
				}
			}
		}
		return hops[0].String()
	}

	if addr, ok := parseAddr(realIP); ok {
		return addr.String()
	}
	if addr, ok := parsePeer(remoteAddr); ok {
		return addr.String()
	}
	return Unknown
}

func (r *Resolver) isTrusted(addr netip.Addr) bool {
	if _, ok := r.trustedAddrs[addr]; ok {
		return true
	}
	for _, prefix := range r.trustedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// IsUnknown reports whether key belongs to the unidentifiable-client bucket.
func IsUnknown(key string) bool {
	switch key {
	case Unknown, "0.0.0.0", "":
		return true
	}
	return false
}

func parseChain(header string) []netip.Addr {
	parts := strings.Split(header, ",")
	hops := make([]netip.Addr, 0, len(parts))
	for _, part := range parts {
		if addr, ok := parseAddr(part); ok {
			hops = append(hops, addr)
		}
	}
	return hops
}

func parseAddr(value string) (netip.Addr, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func parsePeer(remoteAddr string) (netip.Addr, bool) {
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return parseAddr(host)
}
