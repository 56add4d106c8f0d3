// Package policy holds the local rejection filter: deterministic payload
// checks that deny access without touching the network.
package policy

import "strings"

// imageExtensions are rejected anywhere in the payload, not just as a
// suffix: decoders occasionally hand back full URLs or file paths.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp"}

// IsRejected reports whether the payload is locally rejectable: a WiFi
// network share code, or anything that looks like an image reference.
// Pure; no I/O.
func IsRejected(payload string) bool {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(payload)), "WIFI:") {
		return true
	}

	lower := strings.ToLower(payload)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}
