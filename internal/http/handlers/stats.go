package handlers

import (
	"regexp"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
)

var safePropKey = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// parseRange reads "hours" (float, e.g. 0.5 or 1) or "days" (int) from query and returns
// cutoff time and, for traffic, whether to use 30-min buckets (true when range <= 2 hours).
func parseRange(ctx *fasthttp.RequestCtx) (cutoff time.Time, bucket30Min bool) {
	now := time.Now()
	if h := string(ctx.QueryArgs().Peek("hours")); h != "" {
		if f, err := strconv.ParseFloat(h, 64); err == nil && f > 0 {
			cutoff = now.Add(-time.Duration(f * float64(time.Hour)))
			bucket30Min = f <= 2
			return cutoff, bucket30Min
		}
	}
	days := 0
	if d := string(ctx.QueryArgs().Peek("days")); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			days = n
		}
	}
	if days == 0 {
		days = 1
	}
	cutoff = now.Add(-time.Duration(days) * 24 * time.Hour)
	return cutoff, false
}

type trafficPoint struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

type pageCount struct {
	URL   string `json:"url"`
	Count int64  `json:"count"`
}

type referrerCount struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
}

// applyEventFilters narrows a stats query by event name and an optional
// property key/value pair.
func applyEventFilters(sql string, args []any, ctx *fasthttp.RequestCtx) (string, []any) {
	eventName := string(ctx.QueryArgs().Peek("event"))
	if eventName == "" {
		eventName = "pageview"
	}
	sql += ` AND event_name = ?`
	args = append(args, eventName)

	propKey := string(ctx.QueryArgs().Peek("prop_key"))
	propValue := string(ctx.QueryArgs().Peek("prop_value"))
	if propKey != "" && propValue != "" && safePropKey.MatchString(propKey) {
		sql += ` AND properties ->> ? = ?`
		args = append(args, propKey, propValue)
	}
	return sql, args
}

// TrafficSeries returns bucketed event counts for one site. Buckets are
// 30 minutes for short ranges, otherwise hourly.
func TrafficSeries(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		site, ok := mustSite(ctx, db, string(ctx.QueryArgs().Peek("site_id")))
		if !ok {
			return
		}
		cutoff, bucket30Min := parseRange(ctx)

		// Use Raw so GROUP BY is never parameterized. Bucket by 30 min for short ranges, else 1 hour.
		var bucketExpr string
		if bucket30Min {
			bucketExpr = `to_char(to_timestamp(floor(extract(epoch from created_at) / 1800) * 1800), 'YYYY-MM-DD"T"HH24:MI:SS') || 'Z'`
		} else {
			bucketExpr = `to_char(date_trunc('hour', created_at), 'YYYY-MM-DD"T"HH24:MI:SS') || 'Z'`
		}
		sql := `SELECT ` + bucketExpr + ` AS bucket, count(*) AS count FROM events WHERE site_id = ? AND created_at >= ?`
		args := []any{site.ID, cutoff}
		sql, args = applyEventFilters(sql, args, ctx)
		if bucket30Min {
			sql += ` GROUP BY floor(extract(epoch from created_at) / 1800) ORDER BY 1`
		} else {
			sql += ` GROUP BY date_trunc('hour', created_at) ORDER BY 1`
		}

		var rows []trafficPoint
		if err := db.Raw(sql, args...).Scan(&rows).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query stats")
			return
		}
		jsonResponse(ctx, map[string]any{"series": rows})
	}
}

// TopPages returns the most viewed paths in the range.
func TopPages(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		site, ok := mustSite(ctx, db, string(ctx.QueryArgs().Peek("site_id")))
		if !ok {
			return
		}
		cutoff, _ := parseRange(ctx)

		sql := `SELECT url, count(*) AS count FROM events WHERE site_id = ? AND created_at >= ?`
		args := []any{site.ID, cutoff}
		sql, args = applyEventFilters(sql, args, ctx)
		sql += ` GROUP BY url ORDER BY count DESC LIMIT 20`

		var rows []pageCount
		if err := db.Raw(sql, args...).Scan(&rows).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query stats")
			return
		}
		jsonResponse(ctx, map[string]any{"pages": rows})
	}
}

// TopReferrers returns the most common external referrers in the range.
func TopReferrers(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		site, ok := mustSite(ctx, db, string(ctx.QueryArgs().Peek("site_id")))
		if !ok {
			return
		}
		cutoff, _ := parseRange(ctx)

		sql := `SELECT referrer, count(*) AS count FROM events WHERE site_id = ? AND created_at >= ? AND referrer IS NOT NULL`
		args := []any{site.ID, cutoff}
		sql, args = applyEventFilters(sql, args, ctx)
		sql += ` GROUP BY referrer ORDER BY count DESC LIMIT 20`

		var rows []referrerCount
		if err := db.Raw(sql, args...).Scan(&rows).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query stats")
			return
		}
		jsonResponse(ctx, map[string]any{"referrers": rows})
	}
}

// RecentEvents returns the latest events for the realtime activity feed.
func RecentEvents(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		site, ok := mustSite(ctx, db, string(ctx.QueryArgs().Peek("site_id")))
		if !ok {
			return
		}

		limit := 50
		if v := string(ctx.QueryArgs().Peek("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}

		var events []dbpkg.Event
		if err := db.Where("site_id = ?", site.ID).
			Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query events")
			return
		}
		jsonResponse(ctx, map[string]any{"events": events})
	}
}

// EventDetail returns one event by id, scoped to a site the caller owns.
func EventDetail(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		if id == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "event id is required")
			return
		}

		var event dbpkg.Event
		if err := db.Where("id = ?", id).First(&event).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				errResponse(ctx, fasthttp.StatusNotFound, "event not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query event")
			return
		}

		// Ownership check happens against the event's own site.
		if _, ok := mustSite(ctx, db, event.SiteID); !ok {
			return
		}
		jsonResponse(ctx, map[string]any{"event": event})
	}
}
