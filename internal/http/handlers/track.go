package handlers

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"sitepulse/internal/config"
	dbpkg "sitepulse/internal/db"
)

var (
	eventsTotal        *prometheus.CounterVec
	engagementDuration *prometheus.HistogramVec
)

func InitPrometheusMetrics() {
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "events_total",
			Help:      "Total number of ingested analytics events.",
		},
		[]string{"site", "event"},
	)
	engagementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sitepulse",
			Name:      "engagement_duration_seconds",
			Help:      "Histogram of reported engagement durations in seconds.",
			Buckets:   []float64{5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"site"},
	)
	prometheus.MustRegister(eventsTotal, engagementDuration)
}

// trackPayload is the agent's wire shape.
type trackPayload struct {
	SiteID     string         `json:"site_id"`
	EventName  string         `json:"event_name"`
	URL        string         `json:"url"`
	Referrer   *string        `json:"referrer"`
	SessionID  string         `json:"session_id"`
	Language   string         `json:"language"`
	Properties map[string]any `json:"properties"`
}

// TrackHandler is the public collector endpoint agents beacon to. It is
// unauthenticated by nature (browsers can't hold secrets), so unknown site
// ids are dropped without an error the sender could distinguish.
func TrackHandler(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		allowCORS(ctx)

		var p trackPayload
		if err := json.Unmarshal(ctx.PostBody(), &p); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if p.SiteID == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "site_id is required")
			return
		}

		var site dbpkg.Site
		if err := db.Where("id = ?", p.SiteID).First(&site).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				accepted(ctx)
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist event")
			return
		}

		name := p.EventName
		if name == "" {
			name = "pageview"
		}

		rec := buildEvent(ctx, cfg, &site, name)
		rec.URL = p.URL
		rec.Referrer = p.Referrer
		rec.SessionID = p.SessionID
		rec.Language = p.Language

		props := datatypes.JSONMap{}
		for k, v := range p.Properties {
			props[k] = v
		}
		// Flatten the nested utm object so queries can address utm_source
		// and friends as plain property keys.
		if utm, ok := props["utm"].(map[string]any); ok {
			for k, v := range utm {
				if _, exists := props[k]; !exists {
					props[k] = v
				}
			}
		}
		rec.Properties = props

		if err := db.Create(&rec).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist event")
			return
		}

		eventsTotal.WithLabelValues(site.ID, name).Inc()
		if name == "engagement" {
			if d, ok := props["duration_seconds"].(float64); ok && d > 0 {
				engagementDuration.WithLabelValues(site.ID).Observe(d)
			}
		}

		accepted(ctx)
	}
}

// buildEvent fills the server-derived fields shared by the track and pixel
// paths: id, timestamps, expiry, and request-header enrichment.
func buildEvent(ctx *fasthttp.RequestCtx, cfg *config.Config, site *dbpkg.Site, name string) dbpkg.Event {
	now := time.Now()
	retention := cfg.RetentionDays
	if site.RetentionDays > 0 {
		retention = site.RetentionDays
	}
	var expiresAt *time.Time
	if retention > 0 {
		t := now.Add(time.Duration(retention) * 24 * time.Hour)
		expiresAt = &t
	}

	ua := string(ctx.Request.Header.UserAgent())
	ip := clientIP(string(ctx.Request.Header.Peek("x-forwarded-for")), ctx.RemoteAddr().String())

	rec := dbpkg.Event{
		ID:         ulid.Make().String(),
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		SiteID:     site.ID,
		EventName:  name,
		VisitorID:  visitorID(ip, ua),
		Browser:    browserFromUA(ua),
		OS:         osFromUA(ua),
		DeviceType: deviceTypeFromUA(ua),
	}
	if country := string(ctx.Request.Header.Peek("cf-ipcountry")); country != "" {
		rec.Country = &country
	}
	return rec
}

func accepted(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusAccepted)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"status":"accepted"}`)
}

// allowCORS marks a response usable from any origin; tracking payloads
// arrive from the instrumented sites themselves.
func allowCORS(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "content-type, x-api-key, authorization")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

// CORSPreflight answers OPTIONS requests on the public endpoints.
func CORSPreflight() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		allowCORS(ctx)
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
