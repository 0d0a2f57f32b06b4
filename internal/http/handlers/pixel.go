package handlers

import (
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"sitepulse/internal/config"
	dbpkg "sitepulse/internal/db"
)

// pixelGIF is a 1x1 transparent GIF.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0xff, 0xff, 0xff,
	0x00, 0x00, 0x00, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// PixelHandler serves the no-JS tracking pixel. The GIF is always returned
// immediately; the event insert happens after the fact so a slow database
// never shows up as a broken image.
func PixelHandler(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("image/gif")
		ctx.Response.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
		ctx.Response.Header.Set("Pragma", "no-cache")
		ctx.Response.Header.Set("Expires", "0")
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		ctx.SetBody(pixelGIF)

		siteID := string(ctx.QueryArgs().Peek("site_id"))
		if siteID == "" {
			// 'id' for shorter embed URLs.
			siteID = string(ctx.QueryArgs().Peek("id"))
		}
		if siteID == "" {
			return
		}

		ua := string(ctx.Request.Header.UserAgent())
		ip := clientIP(string(ctx.Request.Header.Peek("x-forwarded-for")), ctx.RemoteAddr().String())
		// The referer of the image request is the page embedding it.
		pageURL := string(ctx.Request.Header.Peek("Referer"))
		country := string(ctx.Request.Header.Peek("cf-ipcountry"))

		go insertPixelEvent(db, cfg, siteID, ua, ip, pageURL, country)
	}
}

func insertPixelEvent(db *gorm.DB, cfg *config.Config, siteID, ua, ip, pageURL, country string) {
	var site dbpkg.Site
	if err := db.Where("id = ?", siteID).First(&site).Error; err != nil {
		return
	}

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

	visitor := visitorID(ip, ua)
	url := pageURL
	if url == "" {
		url = "pixel"
	}

	rec := dbpkg.Event{
		ID:         ulid.Make().String(),
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		SiteID:     site.ID,
		EventName:  "pixel_view",
		URL:        url,
		SessionID:  fmt.Sprintf("px_%s_%d", visitor, now.UnixMilli()),
		VisitorID:  visitor,
		Browser:    browserFromUA(ua),
		OS:         osFromUA(ua),
		DeviceType: deviceTypeFromUA(ua),
	}
	if country != "" {
		rec.Country = &country
	}

	if err := db.Create(&rec).Error; err != nil {
		log.Printf("pixel insert error: %v", err)
		return
	}
	eventsTotal.WithLabelValues(site.ID, "pixel_view").Inc()
}
