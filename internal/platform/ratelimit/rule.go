// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ratelimit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Rule is the fixed-window budget for one route.
type Rule struct {
	// Window is the length of a counting window.
	Window time.Duration
	// MaxRequests is how many requests a client may make per window.
	MaxRequests int
}

// Rules maps a route (e.g. "/register") to its budget.
// Routes absent from the map are unlimited.
type Rules map[string]Rule

// ParseRules parses "route=max/window" pairs separated by commas,
// e.g. "/register=10/1m,/login=20/30s". An empty string yields no rules.
func ParseRules(text string) (Rules, error) {
	rules := Rules{}
	for _, entry := range strings.Split(text, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		route, budget, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("ratelimit: rule %q: missing '='", entry)
		}
		maxText, windowText, ok := strings.Cut(budget, "/")
		if !ok {
			return nil, fmt.Errorf("ratelimit: rule %q: missing '/'", entry)
		}

		route = strings.TrimSpace(route)
		if !strings.HasPrefix(route, "/") {
			return nil, fmt.Errorf("ratelimit: rule %q: route must start with '/'", entry)
		}

		maxRequests, err := strconv.Atoi(strings.TrimSpace(maxText))
		if err != nil || maxRequests < 1 {
			return nil, fmt.Errorf("ratelimit: rule %q: max requests must be a positive integer", entry)
		}

		window, err := time.ParseDuration(strings.TrimSpace(windowText))
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("ratelimit: rule %q: window must be a positive duration", entry)
		}

		if _, exists := rules[route]; exists {
			return nil, fmt.Errorf("ratelimit: route %q configured twice", route)
		}
		rules[route] = Rule{Window: window, MaxRequests: maxRequests}
	}
	return rules, nil
}

// UnmarshalText lets env parsers fill a [Rules] field directly.
func (rules *Rules) UnmarshalText(text []byte) error {
	parsed, err := ParseRules(string(text))
	if err != nil {
		return err
	}
	*rules = parsed
	return nil
}

// String renders the rules in the same form [ParseRules] accepts, sorted by route.
func (rules Rules) String() string {
	routes := make([]string, 0, len(rules))
	for route := range rules {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	parts := make([]string, 0, len(routes))
	for _, route := range routes {
		rule := rules[route]
		parts = append(parts, fmt.Sprintf("%s=%d/%s", route, rule.MaxRequests, rule.Window))
	}
	return strings.Join(parts, ",")
}
