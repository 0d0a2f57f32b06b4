package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"sitepulse/internal/config"
	"sitepulse/internal/db"
	"sitepulse/internal/http/handlers"
	appmw "sitepulse/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	db.StartRetentionWorker(sqlDB)
	db.StartAggregationWorker(sqlDB)

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}
	if cfg.BootstrapAPIKey != "" {
		if err := db.EnsureBootstrapAPIKey(sqlDB, cfg); err != nil {
			log.Printf("warning: failed to ensure bootstrap API key: %v", err)
		} else {
			log.Printf("bootstrap API key registered for admin user")
		}
	}

	handlers.InitPrometheusMetrics()
	appmw.InitHTTPMetrics()

	r := router.New()
	auth := appmw.APIKeyAuth(sqlDB)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	// Public tracking surface: what agents and pixels hit.
	r.POST("/v1/track", handlers.TrackHandler(sqlDB, cfg))
	r.OPTIONS("/v1/track", handlers.CORSPreflight())
	r.POST("/v1/config", handlers.SiteConfig(sqlDB))
	r.OPTIONS("/v1/config", handlers.CORSPreflight())
	r.GET("/pixel", handlers.PixelHandler(sqlDB, cfg))

	// BI export.
	r.GET("/v1/bi/schema", handlers.BISchema())
	r.POST("/v1/bi/query", auth(handlers.BIQuery(sqlDB)))
	r.OPTIONS("/v1/bi/query", handlers.CORSPreflight())

	// Stats read path.
	r.GET("/v1/stats/traffic", auth(handlers.TrafficSeries(sqlDB)))
	r.GET("/v1/stats/top-pages", auth(handlers.TopPages(sqlDB)))
	r.GET("/v1/stats/referrers", auth(handlers.TopReferrers(sqlDB)))
	r.GET("/v1/stats/recent", auth(handlers.RecentEvents(sqlDB)))
	r.GET("/v1/stats/event/{id}", auth(handlers.EventDetail(sqlDB)))

	// Management.
	r.POST("/v1/sites", auth(handlers.CreateSite(sqlDB)))
	r.GET("/v1/sites", auth(handlers.ListSites(sqlDB)))
	r.DELETE("/v1/sites/{id}", auth(handlers.DeleteSite(sqlDB)))
	r.POST("/v1/sites/{id}/goals", auth(handlers.CreateGoal(sqlDB)))
	r.GET("/v1/sites/{id}/goals", auth(handlers.ListGoals(sqlDB)))
	r.DELETE("/v1/sites/{id}/goals/{goalID}", auth(handlers.DeleteGoal(sqlDB)))
	r.POST("/v1/sites/{id}/funnels", auth(handlers.CreateFunnel(sqlDB)))
	r.GET("/v1/sites/{id}/funnels", auth(handlers.ListFunnels(sqlDB)))
	r.DELETE("/v1/sites/{id}/funnels/{funnelID}", auth(handlers.DeleteFunnel(sqlDB)))
	r.POST("/v1/apikeys", auth(handlers.CreateAPIKey(sqlDB)))
	r.GET("/v1/apikeys", auth(handlers.ListAPIKeys(sqlDB)))
	r.DELETE("/v1/apikeys/{id}", auth(handlers.RevokeAPIKey(sqlDB)))
	r.POST("/v1/account/delete", auth(handlers.DeleteAccount(sqlDB)))

	// Per-site filtered Prometheus export.
	r.GET("/v1/metrics", handlers.SiteMetricsHandler(sqlDB))

	handler := appmw.Observe(r.Handler)

	log.Printf("sitepulse listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
