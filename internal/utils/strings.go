// Package utils provides small helpers shared across packages.
package utils

import "strings"

// MaskKey masks a credential for logging: first 8 and last 4 chars survive.
func MaskKey(key string) string {
	switch {
	case key == "":
		return "(empty)"
	case len(key) < 16:
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

// MaskBearer masks the token part of an Authorization header value.
func MaskBearer(header string) string {
	token, ok := BearerToken(header)
	if !ok {
		return "(none)"
	}
	return "Bearer " + MaskKey(token)
}

// BearerToken extracts the token from "Bearer <token>". The scheme match is
// case-insensitive. ok is false when the header is absent or malformed.
func BearerToken(header string) (token string, ok bool) {
	scheme, rest, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "****"
	}
	return local[:1] + "***@" + domain
}

// Truncate shortens s to at most n bytes, marking the cut.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
