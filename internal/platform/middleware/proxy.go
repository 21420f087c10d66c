// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"

	"github.com/taibuivan/gatekeeper/internal/platform/constants"
)

// TrustedProxies lists the networks whose X-Real-IP and X-Forwarded-For
// headers are believed. An empty list trusts nobody, so the socket address
// is the client key.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies parses a comma separated list of CIDRs or bare
// addresses, e.g. "10.0.0.0/8,192.0.2.10".
func ParseTrustedProxies(text string) (TrustedProxies, error) {
	var proxies TrustedProxies
	for _, entry := range strings.Split(text, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("middleware: trusted proxy %q is neither a CIDR nor an address", entry)
		}
		proxies = append(proxies, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return proxies, nil
}

// UnmarshalText lets env parsers fill a [TrustedProxies] field directly.
func (proxies *TrustedProxies) UnmarshalText(text []byte) error {
	parsed, err := ParseTrustedProxies(string(text))
	if err != nil {
		return err
	}
	*proxies = parsed
	return nil
}

// Contains reports whether ip is inside one of the trusted networks.
func (proxies TrustedProxies) Contains(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// RealIP returns the client address for rate limiting and logs.
//
// Headers from an untrusted peer are ignored. Behind trusted proxies,
// X-Real-IP wins; otherwise X-Forwarded-For is walked right to left and the
// first hop that is not itself a trusted proxy is the client. A malformed
// hop stops the walk at the last good address.
func (proxies TrustedProxies) RealIP(request *http.Request) string {
	peer := PeerIP(request)
	if !proxies.Contains(peer) {
		return peer
	}

	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); validIP(ip) {
		return ip
	}

	client := peer
	hops := strings.Split(request.Header.Get(constants.HeaderXForwardedFor), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if !validIP(hop) {
			break
		}
		client = hop
		if !proxies.Contains(hop) {
			break
		}
	}
	return client
}

func validIP(ip string) bool {
	_, err := netip.ParseAddr(ip)
	return err == nil
}
