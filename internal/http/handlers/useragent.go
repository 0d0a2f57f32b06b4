package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Coarse user-agent classification, enough for the browser/OS/device
// breakdowns. Order matters: Edge and IE ship "Chrome"/"Safari" tokens.
func browserFromUA(ua string) string {
	switch {
	case strings.Contains(ua, "Edge") || strings.Contains(ua, "Edg/"):
		return "Edge"
	case strings.Contains(ua, "MSIE") || strings.Contains(ua, "Trident"):
		return "IE"
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	default:
		return "Other"
	}
}

func osFromUA(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") || strings.Contains(ua, "iOS"):
		return "iOS"
	case strings.Contains(ua, "Mac"):
		return "MacOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return "Other"
	}
}

func deviceTypeFromUA(ua string) string {
	switch {
	case strings.Contains(ua, "iPad") || strings.Contains(ua, "Tablet"):
		return "Tablet"
	case strings.Contains(ua, "Mobile") || strings.Contains(ua, "Android") || strings.Contains(ua, "iPhone"):
		return "Mobile"
	default:
		return "Desktop"
	}
}

// visitorID fingerprints a client from IP and user agent: first 8 bytes of
// the SHA-256 digest, hex encoded. Stable for a visitor, not reversible.
func visitorID(clientIP, ua string) string {
	sum := sha256.Sum256([]byte(clientIP + "-" + ua))
	return hex.EncodeToString(sum[:8])
}

// clientIP prefers the first hop of x-forwarded-for, falling back to the
// connection's remote address.
func clientIP(xff, remoteAddr string) string {
	if xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	if i := strings.LastIndexByte(remoteAddr, ':'); i >= 0 {
		return remoteAddr[:i]
	}
	return remoteAddr
}
