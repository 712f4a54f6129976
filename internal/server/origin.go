// Package server normalizes and validates HTTP origins for WebSocket
// upgrade requests.
//
// The default policy accepts any origin. That is an intentional,
// non-security-hardened default for a relay meant to be embedded behind
// whatever access control the deployment already has; set ALLOWED_ORIGINS to
// a concrete list to restrict it.
package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// newOriginChecker builds the CheckOrigin callback for the upgrader from the
// configured origin list.
func newOriginChecker(cfg Config) func(*http.Request) bool {
	normalized, allowAll := normalizeOrigins(cfg.OriginList())
	if allowAll {
		return func(*http.Request) bool { return true }
	}

	allowed := make(map[string]struct{}, len(normalized))
	for _, origin := range normalized {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		if isOriginAllowed(allowed, r) {
			return true
		}
		slog.Warn("blocked connection from disallowed origin", "origin", r.Header.Get("Origin"))
		return false
	}
}

func normalizeOrigins(origins []string) ([]string, bool) {
	if len(origins) == 0 {
		return nil, false
	}

	normalized := make([]string, 0, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			allowAll = true
			continue
		}

		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			slog.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}

		normalized = append(normalized, normalizedOrigin)
	}

	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}

func isOriginAllowed(allowed map[string]struct{}, r *http.Request) bool {
	originHeader := r.Header.Get("Origin")
	if originHeader == "" {
		return false
	}

	normalizedOrigin, ok := normalizeOrigin(originHeader)
	if !ok {
		return false
	}

	_, exists := allowed[normalizedOrigin]
	return exists
}
