package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	uaChromeWin  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaEdgeWin    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	uaFirefoxMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0"
	uaSafariiOS  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaChromeiPad = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/120.0.0.0 Mobile/15E148 Safari/604.1"
	uaAndroid    = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
)

func TestBrowserFromUA(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{uaChromeWin, "Chrome"},
		{uaEdgeWin, "Edge"},
		{uaFirefoxMac, "Firefox"},
		{uaSafariiOS, "Safari"},
		{"curl/8.4.0", "Other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, browserFromUA(tt.ua), tt.ua)
	}
}

func TestOSFromUA(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{uaChromeWin, "Windows"},
		{uaFirefoxMac, "MacOS"},
		{uaSafariiOS, "iOS"},
		{uaAndroid, "Android"},
		{"Wget/1.21 (linux-gnu) Linux", "Linux"},
		{"curl/8.4.0", "Other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, osFromUA(tt.ua), tt.ua)
	}
}

func TestDeviceTypeFromUA(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{uaChromeWin, "Desktop"},
		{uaSafariiOS, "Mobile"},
		{uaAndroid, "Mobile"},
		{uaChromeiPad, "Tablet"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deviceTypeFromUA(tt.ua), tt.ua)
	}
}

func TestVisitorID(t *testing.T) {
	id := visitorID("203.0.113.7", uaChromeWin)
	assert.Len(t, id, 16)
	assert.Equal(t, id, visitorID("203.0.113.7", uaChromeWin))
	assert.NotEqual(t, id, visitorID("203.0.113.8", uaChromeWin))
	assert.NotEqual(t, id, visitorID("203.0.113.7", uaFirefoxMac))
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "203.0.113.7", clientIP("203.0.113.7", "10.0.0.1:4000"))
	assert.Equal(t, "203.0.113.7", clientIP("203.0.113.7, 10.0.0.2", "10.0.0.1:4000"))
	assert.Equal(t, "203.0.113.7", clientIP(" 203.0.113.7 ", "10.0.0.1:4000"))
	assert.Equal(t, "10.0.0.1", clientIP("", "10.0.0.1:4000"))
	assert.Equal(t, "[::1]", clientIP("", "[::1]:4000"))
}
