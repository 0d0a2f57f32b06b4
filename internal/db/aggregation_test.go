package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSummarizeHour(t *testing.T) {
	events := []Event{
		// s1 bounces: a single pageview and nothing else.
		{SiteID: "a", EventName: "pageview", SessionID: "s1", VisitorID: "v1"},
		// s2 views two pages.
		{SiteID: "a", EventName: "pageview", SessionID: "s2", VisitorID: "v2"},
		{SiteID: "a", EventName: "pageview", SessionID: "s2", VisitorID: "v2"},
		{SiteID: "a", EventName: "engagement", SessionID: "s2", VisitorID: "v2",
			Properties: datatypes.JSONMap{"duration_seconds": float64(42)}},
		// s3 only emits a custom event: a session, but not a bounce.
		{SiteID: "a", EventName: "signup", SessionID: "s3", VisitorID: "v1"},
		// A second site must aggregate independently.
		{SiteID: "b", EventName: "pageview", SessionID: "s9", VisitorID: "v9"},
	}

	stats := summarizeHour(events)
	require.Len(t, stats, 2)

	a := stats["a"]
	require.NotNil(t, a)
	assert.Equal(t, int64(3), a.Pageviews)
	assert.Equal(t, int64(2), a.UniqueVisitors)
	assert.Equal(t, int64(3), a.Sessions)
	assert.Equal(t, int64(1), a.Bounces)
	assert.Equal(t, int64(42), a.EngagementSeconds)

	b := stats["b"]
	require.NotNil(t, b)
	assert.Equal(t, int64(1), b.Pageviews)
	assert.Equal(t, int64(1), b.Bounces)
}

func TestSummarizeHourIgnoresBadDurations(t *testing.T) {
	events := []Event{
		{SiteID: "a", EventName: "engagement", SessionID: "s1",
			Properties: datatypes.JSONMap{"duration_seconds": "oops"}},
		{SiteID: "a", EventName: "engagement", SessionID: "s1",
			Properties: datatypes.JSONMap{"duration_seconds": float64(-3)}},
		{SiteID: "a", EventName: "engagement", SessionID: "s1"},
	}

	stats := summarizeHour(events)
	require.NotNil(t, stats["a"])
	assert.Equal(t, int64(0), stats["a"].EngagementSeconds)
}

func TestSummarizeHourEmpty(t *testing.T) {
	assert.Empty(t, summarizeHour(nil))
}

func TestHashKey(t *testing.T) {
	h := HashKey("sp_secret")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey("sp_secret"))
	assert.NotEqual(t, h, HashKey("sp_other"))
}
