package db

import (
	"log"
	"time"

	"gorm.io/gorm"
)

// summarizeHour folds raw events into per-site totals. Bounces are
// sessions whose only activity is a single pageview; engagement seconds
// come from the duration_seconds property of engagement events.
func summarizeHour(events []Event) map[string]*HourlyStat {
	stats := make(map[string]*HourlyStat)
	visitors := make(map[string]map[string]bool)
	sessionViews := make(map[string]map[string]int64)

	for _, e := range events {
		s := stats[e.SiteID]
		if s == nil {
			s = &HourlyStat{SiteID: e.SiteID}
			stats[e.SiteID] = s
			visitors[e.SiteID] = make(map[string]bool)
			sessionViews[e.SiteID] = make(map[string]int64)
		}

		if e.VisitorID != "" {
			visitors[e.SiteID][e.VisitorID] = true
		}
		if e.SessionID != "" {
			// Touch the session so event-only sessions still count.
			sessionViews[e.SiteID][e.SessionID] += 0
		}

		switch e.EventName {
		case "pageview":
			s.Pageviews++
			if e.SessionID != "" {
				sessionViews[e.SiteID][e.SessionID]++
			}
		case "engagement":
			if v, ok := e.Properties["duration_seconds"].(float64); ok && v > 0 {
				s.EngagementSeconds += int64(v)
			}
		}
	}

	for siteID, s := range stats {
		s.UniqueVisitors = int64(len(visitors[siteID]))
		s.Sessions = int64(len(sessionViews[siteID]))
		for _, views := range sessionViews[siteID] {
			if views == 1 {
				s.Bounces++
			}
		}
	}
	return stats
}

// runAggregationOnce aggregates events for the given hour (bucketStart to
// bucketStart+1h) into HourlyStat rows. Call with bucketStart = time in
// UTC truncated to hour.
func runAggregationOnce(db *gorm.DB, bucketStart time.Time) error {
	bucketEnd := bucketStart.Add(time.Hour)

	var events []Event
	if err := db.Where("created_at >= ? AND created_at < ?", bucketStart, bucketEnd).
		Select("site_id", "event_name", "session_id", "visitor_id", "properties").
		Find(&events).Error; err != nil {
		return err
	}

	for _, row := range summarizeHour(events) {
		row.BucketStart = bucketStart

		var existing HourlyStat
		err := db.Where("site_id = ? AND bucket_start = ?", row.SiteID, bucketStart).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			err = db.Create(row).Error
		} else if err == nil {
			err = db.Model(&existing).Updates(map[string]interface{}{
				"pageviews":          row.Pageviews,
				"unique_visitors":    row.UniqueVisitors,
				"sessions":           row.Sessions,
				"bounces":            row.Bounces,
				"engagement_seconds": row.EngagementSeconds,
			}).Error
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// StartAggregationWorker runs aggregation for the last 24 completed hours
// at startup, then for the previous hour every hour. Buckets are in UTC.
func StartAggregationWorker(db *gorm.DB) {
	go func() {
		now := time.Now().UTC()
		for i := 1; i <= 24; i++ {
			bucketStart := now.Truncate(time.Hour).Add(-time.Duration(i) * time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				log.Printf("aggregation error (startup) for %s: %v", bucketStart.Format(time.RFC3339), err)
			}
		}

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for t := range ticker.C {
			bucketStart := t.UTC().Truncate(time.Hour).Add(-time.Hour)
			if err := runAggregationOnce(db, bucketStart); err != nil {
				log.Printf("aggregation error for %s: %v", bucketStart.Format(time.RFC3339), err)
			}
		}
	}()
}
