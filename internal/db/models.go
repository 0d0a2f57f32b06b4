package db

import (
	"time"

	"gorm.io/datatypes"
)

// Event is one tracked user action as received from the agent (or the
// pixel fallback) and enriched by the collector. The schema is
// intentionally compact but flexible and can evolve as the product grows.
type Event struct {
	// ID is a ULID so event ids sort by receipt time.
	ID string `gorm:"primaryKey;size:26"`

	CreatedAt time.Time `gorm:"index"`

	// ExpiresAt is the timestamp after which this event is eligible
	// for deletion by the retention worker. A nil value means the
	// event does not currently expire.
	ExpiresAt *time.Time `gorm:"index"`

	SiteID    string `gorm:"index;size:64;not null"`
	EventName string `gorm:"index;size:64;not null"`

	// URL is the page path the event occurred on.
	URL string `gorm:"size:2048"`

	// Referrer is the external referrer, nil when absent or same-origin.
	Referrer *string `gorm:"size:2048"`

	SessionID string `gorm:"index;size:64"`

	// VisitorID is a server-derived fingerprint (hashed IP + user agent);
	// the agent itself never sends one.
	VisitorID string `gorm:"index;size:32"`

	Language   string  `gorm:"size:16"`
	Browser    string  `gorm:"size:32"`
	OS         string  `gorm:"size:32"`
	DeviceType string  `gorm:"size:16"`
	Country    *string `gorm:"size:8"`

	// Properties holds the free-form per-event payload (utm, screen,
	// scroll percent, engagement duration, ...) without schema changes.
	Properties datatypes.JSONMap `gorm:"type:jsonb"`
}

// Site is one measured property, owned by a user. Its ID is the public
// site_id embedded in tracking snippets.
type Site struct {
	ID string `gorm:"primaryKey;size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time

	UserID uint `gorm:"index;not null"`

	Name   string `gorm:"size:128;not null"`
	Domain string `gorm:"size:255"`

	// RetentionDays overrides the global default when > 0.
	RetentionDays int `gorm:"not null;default:0"`

	// Tags holds the injectable tag definitions served to agents by the
	// config endpoint, e.g. [{"type":"custom_script","config":{"url":...}}].
	Tags datatypes.JSON `gorm:"type:jsonb"`
}

// Goal is a named conversion: a site event (optionally narrowed to a URL)
// the owner wants counted.
type Goal struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	SiteID    string `gorm:"index;size:64;not null"`
	Name      string `gorm:"size:128;not null"`
	EventName string `gorm:"size:64;not null"`
	TargetURL string `gorm:"size:2048"`
}

// Funnel is an ordered list of steps (events or URLs) stored as JSON.
type Funnel struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	SiteID string         `gorm:"index;size:64;not null"`
	Name   string         `gorm:"size:128;not null"`
	Steps  datatypes.JSON `gorm:"type:jsonb"`
}

// HourlyStat stores pre-aggregated per-site metrics for fast date-range
// charts and the BI date dimension. Filled by the aggregation worker.
type HourlyStat struct {
	ID uint `gorm:"primaryKey"`

	SiteID      string    `gorm:"uniqueIndex:idx_hourly_stat_unique,priority:1;size:64;not null"`
	BucketStart time.Time `gorm:"uniqueIndex:idx_hourly_stat_unique,priority:2;not null"` // start of the hour (UTC)

	Pageviews         int64 `gorm:"not null"`
	UniqueVisitors    int64 `gorm:"not null"`
	Sessions          int64 `gorm:"not null"`
	Bounces           int64 `gorm:"not null"` // sessions with exactly one pageview
	EngagementSeconds int64 `gorm:"not null"` // summed engagement durations
}
