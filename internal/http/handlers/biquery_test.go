package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	dbpkg "sitepulse/internal/db"
)

func strptr(s string) *string { return &s }

func TestGroupEventsByURL(t *testing.T) {
	events := []dbpkg.Event{
		{URL: "/a", EventName: "pageview", VisitorID: "v1", SessionID: "s1"},
		{URL: "/a", EventName: "pageview", VisitorID: "v2", SessionID: "s2"},
		{URL: "/a", EventName: "engagement", VisitorID: "v1", SessionID: "s1"},
		{URL: "/b", EventName: "pageview", VisitorID: "v1", SessionID: "s1"},
	}

	rows := groupEvents(events, []string{"url"})
	require.Len(t, rows, 2)

	assert.Equal(t, "/a", rows[0]["url"], "rows keep first-seen order")
	assert.Equal(t, int64(2), rows[0]["pageviews"])
	assert.Equal(t, int64(2), rows[0]["visitors"])
	assert.Equal(t, int64(2), rows[0]["sessions"])

	assert.Equal(t, "/b", rows[1]["url"])
	assert.Equal(t, int64(1), rows[1]["pageviews"])
}

func TestGroupEventsMultipleDimensions(t *testing.T) {
	events := []dbpkg.Event{
		{URL: "/a", Browser: "Chrome", EventName: "pageview", VisitorID: "v1", SessionID: "s1"},
		{URL: "/a", Browser: "Firefox", EventName: "pageview", VisitorID: "v2", SessionID: "s2"},
		{URL: "/a", Browser: "Chrome", EventName: "pageview", VisitorID: "v3", SessionID: "s3"},
	}

	rows := groupEvents(events, []string{"url", "browser"})
	require.Len(t, rows, 2)
	assert.Equal(t, "Chrome", rows[0]["browser"])
	assert.Equal(t, int64(2), rows[0]["pageviews"])
	assert.Equal(t, "Firefox", rows[1]["browser"])
}

func TestGroupEventsMissingIdentifiers(t *testing.T) {
	events := []dbpkg.Event{
		{URL: "/a", EventName: "pageview"},
		{URL: "/a", EventName: "pageview"},
	}

	rows := groupEvents(events, []string{"url"})
	require.Len(t, rows, 1)
	// Both events collapse onto the "unknown" visitor and session.
	assert.Equal(t, int64(1), rows[0]["visitors"])
	assert.Equal(t, int64(1), rows[0]["sessions"])
}

func TestDimensionValue(t *testing.T) {
	created := time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)
	e := dbpkg.Event{
		CreatedAt:  created,
		URL:        "/pricing",
		Referrer:   strptr("https://news.ycombinator.com/"),
		Country:    strptr("DE"),
		Browser:    "Chrome",
		EventName:  "pageview",
		Properties: datatypes.JSONMap{"utm_source": "newsletter"},
	}

	assert.Equal(t, "2026-03-14", dimensionValue(e, "date"))
	assert.Equal(t, "/pricing", dimensionValue(e, "url"))
	assert.Equal(t, "https://news.ycombinator.com/", dimensionValue(e, "referrer"))
	assert.Equal(t, "DE", dimensionValue(e, "country"))
	assert.Equal(t, "Chrome", dimensionValue(e, "browser"))
	assert.Equal(t, "newsletter", dimensionValue(e, "utm_source"))

	empty := dbpkg.Event{}
	assert.Equal(t, "(not set)", dimensionValue(empty, "referrer"))
	assert.Equal(t, "(not set)", dimensionValue(empty, "country"))
	assert.Equal(t, "(not set)", dimensionValue(empty, "utm_medium"))
}

func TestIsAvailableField(t *testing.T) {
	assert.True(t, isAvailableField("url"))
	assert.True(t, isAvailableField("bounce_rate"))
	assert.False(t, isAvailableField("password"))
	assert.False(t, isAvailableField("properties"))
}
