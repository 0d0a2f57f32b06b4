package agent

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://c.example.com/v1/config", configURL("https://c.example.com/v1/track"))
	assert.Equal(t, "https://c.example.com/config", configURL("https://c.example.com/track"))
	assert.Empty(t, configURL("https://c.example.com/v1/events"))
	assert.Empty(t, configURL(""))
}

func TestNewSessionID(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(1700000000000)
	id := newSessionID(now)

	suffix := strconv.FormatInt(now.UnixMilli(), 36)
	assert.Len(t, id, 11+len(suffix))
	assert.Equal(t, suffix, id[11:])
	for _, r := range id {
		assert.Contains(t, base36, string(r))
	}

	assert.NotEqual(t, id, newSessionID(now), "random component must differ")
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abcd", 2))
	assert.Equal(t, "héll", truncate("héllo", 4))
}

func TestLinkFilename(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "report.pdf", linkFilename("https://x.com/docs/report.pdf"))
	assert.Equal(t, "report.pdf", linkFilename("https://x.com/docs/report.pdf?dl=1"))
	assert.Equal(t, "plain.csv", linkFilename("plain.csv"))
}

func TestUTMParams(t *testing.T) {
	t.Parallel()

	assert.Nil(t, utmParams(url.Values{}))
	assert.Nil(t, utmParams(url.Values{"q": {"search"}}))

	got := utmParams(url.Values{
		"utm_source":   {"newsletter"},
		"utm_campaign": {"spring"},
		"q":            {"search"},
	})
	assert.Equal(t, map[string]string{
		"utm_source":   "newsletter",
		"utm_campaign": "spring",
	}, got)
}

func TestVitalRatingBoundaries(t *testing.T) {
	t.Parallel()

	// Values at the threshold are still good; only beyond it is poor.
	assert.Equal(t, "good", vitalRating(MetricLCP, 2500))
	assert.Equal(t, "poor", vitalRating(MetricLCP, 2501))
	assert.Equal(t, "good", vitalRating(MetricCLS, 0.1))
	assert.Equal(t, "poor", vitalRating(MetricCLS, 0.11))
	assert.Equal(t, "good", vitalRating(MetricINP, 200))
	assert.Equal(t, "poor", vitalRating(MetricINP, 201))
}
