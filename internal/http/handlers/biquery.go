package handlers

import (
	"sort"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
)

// SchemaField describes one queryable field in Looker Studio's connector
// format.
type SchemaField struct {
	Name      string          `json:"name"`
	Label     string          `json:"label"`
	DataType  string          `json:"dataType"`
	Semantics *FieldSemantics `json:"semantics,omitempty"`
}

type FieldSemantics struct {
	ConceptType  string `json:"conceptType"`
	SemanticType string `json:"semanticType,omitempty"`
}

var availableFields = []SchemaField{
	// Dimensions
	{Name: "date", Label: "Date", DataType: "DATE", Semantics: &FieldSemantics{ConceptType: "DIMENSION", SemanticType: "YEAR_MONTH_DAY"}},
	{Name: "url", Label: "Page URL", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "referrer", Label: "Referrer", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "country", Label: "Country", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION", SemanticType: "COUNTRY"}},
	{Name: "browser", Label: "Browser", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "os", Label: "Operating System", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "device_type", Label: "Device Type", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "event_name", Label: "Event Name", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "utm_source", Label: "UTM Source", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "utm_medium", Label: "UTM Medium", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	{Name: "utm_campaign", Label: "UTM Campaign", DataType: "STRING", Semantics: &FieldSemantics{ConceptType: "DIMENSION"}},
	// Metrics
	{Name: "pageviews", Label: "Pageviews", DataType: "NUMBER", Semantics: &FieldSemantics{ConceptType: "METRIC"}},
	{Name: "visitors", Label: "Unique Visitors", DataType: "NUMBER", Semantics: &FieldSemantics{ConceptType: "METRIC"}},
	{Name: "sessions", Label: "Sessions", DataType: "NUMBER", Semantics: &FieldSemantics{ConceptType: "METRIC"}},
	{Name: "bounces", Label: "Bounces", DataType: "NUMBER", Semantics: &FieldSemantics{ConceptType: "METRIC"}},
	{Name: "bounce_rate", Label: "Bounce Rate", DataType: "NUMBER", Semantics: &FieldSemantics{ConceptType: "METRIC", SemanticType: "PERCENT"}},
	{Name: "avg_session_duration", Label: "Avg Session Duration", DataType: "NUMBER", Semantics: &FieldSemantics{ConceptType: "METRIC", SemanticType: "DURATION"}},
}

func isAvailableField(name string) bool {
	for _, f := range availableFields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// BISchema returns the connector schema.
func BISchema() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		allowCORS(ctx)
		jsonResponse(ctx, map[string]any{"schema": availableFields})
	}
}

type biQueryRequest struct {
	SiteID     string            `json:"site_id"`
	Metrics    []string          `json:"metrics"`
	Dimensions []string          `json:"dimensions"`
	StartDate  string            `json:"start_date"`
	EndDate    string            `json:"end_date"`
	Filters    map[string]string `json:"filters"`
	Limit      int               `json:"limit"`
}

const biDefaultLimit = 10000

// BIQuery maps a declarative dimensions/metrics request onto either the
// pre-aggregated hourly stats (date-only queries) or grouped raw events
// (dimension breakdowns).
func BIQuery(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		allowCORS(ctx)

		var req biQueryRequest
		if !readJSON(ctx, &req) {
			return
		}
		site, ok := mustSite(ctx, db, req.SiteID)
		if !ok {
			return
		}

		dims := req.Dimensions
		if len(dims) == 0 {
			dims = []string{"date"}
		}
		metrics := req.Metrics
		if len(metrics) == 0 {
			metrics = []string{"pageviews", "visitors"}
		}
		limit := req.Limit
		if limit <= 0 || limit > biDefaultLimit {
			limit = biDefaultLimit
		}

		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
		endExclusive := end.Add(24 * time.Hour)

		var rows []map[string]any
		if len(dims) == 1 && dims[0] == "date" {
			rows, err = queryDailyAggregates(db, site.ID, start, endExclusive, limit)
		} else {
			rows, err = queryRawBreakdown(db, site.ID, dims, req.Filters, start, endExclusive, limit)
		}
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "query failed")
			return
		}

		requested := append(append([]string{}, dims...), metrics...)
		filtered := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			out := make(map[string]any, len(requested))
			for _, f := range requested {
				if v, ok := row[f]; ok {
					out[f] = v
				}
			}
			filtered = append(filtered, out)
		}

		schema := make([]SchemaField, 0, len(requested))
		for _, f := range availableFields {
			for _, name := range requested {
				if f.Name == name {
					schema = append(schema, f)
					break
				}
			}
		}

		jsonResponse(ctx, map[string]any{
			"schema":   schema,
			"rows":     filtered,
			"rowCount": len(filtered),
		})
	}
}

// queryDailyAggregates serves the date dimension from hourly rollups,
// summed per day.
func queryDailyAggregates(db *gorm.DB, siteID string, start, end time.Time, limit int) ([]map[string]any, error) {
	var stats []dbpkg.HourlyStat
	if err := db.Where("site_id = ? AND bucket_start >= ? AND bucket_start < ?", siteID, start, end).
		Order("bucket_start").Limit(limit).Find(&stats).Error; err != nil {
		return nil, err
	}

	type daily struct {
		pageviews, visitors, sessions, bounces, duration int64
	}
	byDay := make(map[string]*daily)
	for _, s := range stats {
		day := s.BucketStart.UTC().Format("2006-01-02")
		d := byDay[day]
		if d == nil {
			d = &daily{}
			byDay[day] = d
		}
		d.pageviews += s.Pageviews
		d.visitors += s.UniqueVisitors
		d.sessions += s.Sessions
		d.bounces += s.Bounces
		d.duration += s.EngagementSeconds
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	rows := make([]map[string]any, 0, len(days))
	for _, day := range days {
		d := byDay[day]
		row := map[string]any{
			"date":      day,
			"pageviews": d.pageviews,
			"visitors":  d.visitors,
			"sessions":  d.sessions,
			"bounces":   d.bounces,
		}
		if d.sessions > 0 {
			row["bounce_rate"] = float64(d.bounces) / float64(d.sessions) * 100
			row["avg_session_duration"] = float64(d.duration) / float64(d.sessions)
		} else {
			row["bounce_rate"] = float64(0)
			row["avg_session_duration"] = float64(0)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// queryRawBreakdown loads matching events and groups them in memory by the
// requested dimensions.
func queryRawBreakdown(db *gorm.DB, siteID string, dims []string, filters map[string]string, start, end time.Time, limit int) ([]map[string]any, error) {
	q := db.Where("site_id = ? AND created_at >= ? AND created_at < ?", siteID, start, end)
	for key, value := range filters {
		if value == "" || !isAvailableField(key) {
			continue
		}
		switch key {
		case "utm_source", "utm_medium", "utm_campaign":
			q = q.Where("properties ->> ? = ?", key, value)
		case "date":
			// date is a derived dimension, not filterable here
		default:
			q = q.Where(key+" = ?", value)
		}
	}

	var events []dbpkg.Event
	if err := q.Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return groupEvents(events, dims), nil
}

// groupEvents reshapes raw events into one row per distinct dimension
// tuple with pageview counts and distinct visitor/session counts.
func groupEvents(events []dbpkg.Event, dims []string) []map[string]any {
	type group struct {
		row      map[string]any
		visitors map[string]bool
		sessions map[string]bool
		views    int64
	}
	grouped := make(map[string]*group)
	var order []string

	for _, e := range events {
		key := ""
		row := make(map[string]any, len(dims))
		for _, dim := range dims {
			v := dimensionValue(e, dim)
			key += v + "|"
			row[dim] = v
		}

		g := grouped[key]
		if g == nil {
			g = &group{row: row, visitors: make(map[string]bool), sessions: make(map[string]bool)}
			grouped[key] = g
			order = append(order, key)
		}

		if e.EventName == "pageview" {
			g.views++
		}
		g.visitors[orUnknown(e.VisitorID)] = true
		g.sessions[orUnknown(e.SessionID)] = true
	}

	rows := make([]map[string]any, 0, len(order))
	for _, key := range order {
		g := grouped[key]
		g.row["pageviews"] = g.views
		g.row["visitors"] = int64(len(g.visitors))
		g.row["sessions"] = int64(len(g.sessions))
		rows = append(rows, g.row)
	}
	return rows
}

func dimensionValue(e dbpkg.Event, dim string) string {
	var v string
	switch dim {
	case "date":
		return e.CreatedAt.UTC().Format("2006-01-02")
	case "url":
		v = e.URL
	case "referrer":
		if e.Referrer != nil {
			v = *e.Referrer
		}
	case "country":
		if e.Country != nil {
			v = *e.Country
		}
	case "browser":
		v = e.Browser
	case "os":
		v = e.OS
	case "device_type":
		v = e.DeviceType
	case "event_name":
		v = e.EventName
	case "utm_source", "utm_medium", "utm_campaign":
		if s, ok := e.Properties[dim].(string); ok {
			v = s
		}
	}
	if v == "" {
		return "(not set)"
	}
	return v
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
