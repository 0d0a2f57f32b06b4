package handlers

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
)

type createSiteRequest struct {
	Name          string          `json:"name"`
	Domain        string          `json:"domain"`
	RetentionDays int             `json:"retention_days"`
	Tags          json.RawMessage `json:"tags"`
}

// CreateSite registers a new measured property for the calling user and
// returns its public site id.
func CreateSite(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req createSiteRequest
		if !readJSON(ctx, &req) {
			return
		}
		if req.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "name is required")
			return
		}

		site := dbpkg.Site{
			ID:            uuid.NewString(),
			UserID:        user.ID,
			Name:          req.Name,
			Domain:        req.Domain,
			RetentionDays: req.RetentionDays,
		}
		if len(req.Tags) > 0 {
			site.Tags = datatypes.JSON(req.Tags)
		}
		if err := db.Create(&site).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create site")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"site": site})
	}
}

// ListSites returns the calling user's sites.
func ListSites(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var sites []dbpkg.Site
		if err := db.Where("user_id = ?", user.ID).Order("created_at").Find(&sites).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list sites")
			return
		}
		jsonResponse(ctx, map[string]any{"sites": sites})
	}
}

// DeleteSite removes a site and its data.
func DeleteSite(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		site, ok := mustSite(ctx, db, id)
		if !ok {
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			for _, model := range []any{&dbpkg.Event{}, &dbpkg.Goal{}, &dbpkg.Funnel{}, &dbpkg.HourlyStat{}} {
				if err := tx.Where("site_id = ?", site.ID).Delete(model).Error; err != nil {
					return err
				}
			}
			return tx.Delete(site).Error
		})
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete site")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "deleted"})
	}
}

type createGoalRequest struct {
	Name      string `json:"name"`
	EventName string `json:"event_name"`
	TargetURL string `json:"target_url"`
}

// CreateGoal adds a conversion goal to a site.
func CreateGoal(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		site, ok := mustSite(ctx, db, id)
		if !ok {
			return
		}
		var req createGoalRequest
		if !readJSON(ctx, &req) {
			return
		}
		if req.Name == "" || req.EventName == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "name and event_name are required")
			return
		}

		goal := dbpkg.Goal{
			SiteID:    site.ID,
			Name:      req.Name,
			EventName: req.EventName,
			TargetURL: req.TargetURL,
		}
		if err := db.Create(&goal).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create goal")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"goal": goal})
	}
}

// ListGoals returns a site's goals.
func ListGoals(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		site, ok := mustSite(ctx, db, id)
		if !ok {
			return
		}
		var goals []dbpkg.Goal
		if err := db.Where("site_id = ?", site.ID).Order("created_at").Find(&goals).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list goals")
			return
		}
		jsonResponse(ctx, map[string]any{"goals": goals})
	}
}

// DeleteGoal removes one goal from a site.
func DeleteGoal(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		site, ok := mustSite(ctx, db, id)
		if !ok {
			return
		}
		goalID, _ := ctx.UserValue("goalID").(string)
		res := db.Where("site_id = ? AND id = ?", site.ID, goalID).Delete(&dbpkg.Goal{})
		if res.Error != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete goal")
			return
		}
		if res.RowsAffected == 0 {
			errResponse(ctx, fasthttp.StatusNotFound, "goal not found")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "deleted"})
	}
}

type createFunnelRequest struct {
	Name  string          `json:"name"`
	Steps json.RawMessage `json:"steps"`
}

// CreateFunnel adds an ordered step sequence to a site.
func CreateFunnel(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		site, ok := mustSite(ctx, db, id)
		if !ok {
			return
		}
		var req createFunnelRequest
		if !readJSON(ctx, &req) {
			return
		}
		if req.Name == "" || len(req.Steps) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "name and steps are required")
			return
		}

		funnel := dbpkg.Funnel{
			SiteID: site.ID,
			Name:   req.Name,
			Steps:  datatypes.JSON(req.Steps),
		}
		if err := db.Create(&funnel).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create funnel")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"funnel": funnel})
	}
}

// ListFunnels returns a site's funnels.
func ListFunnels(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		site, ok := mustSite(ctx, db, id)
		if !ok {
			return
		}
		var funnels []dbpkg.Funnel
		if err := db.Where("site_id = ?", site.ID).Order("created_at").Find(&funnels).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list funnels")
			return
		}
		jsonResponse(ctx, map[string]any{"funnels": funnels})
	}
}

// DeleteFunnel removes one funnel from a site.
func DeleteFunnel(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		site, ok := mustSite(ctx, db, id)
		if !ok {
			return
		}
		funnelID, _ := ctx.UserValue("funnelID").(string)
		res := db.Where("site_id = ? AND id = ?", site.ID, funnelID).Delete(&dbpkg.Funnel{})
		if res.Error != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete funnel")
			return
		}
		if res.RowsAffected == 0 {
			errResponse(ctx, fasthttp.StatusNotFound, "funnel not found")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "deleted"})
	}
}

type configRequest struct {
	SiteID string `json:"site_id"`
}

// SiteConfig is the public endpoint agents poll for injectable tags. It
// returns an empty tag list rather than an error in every failure mode;
// configuration is additive and never required for tracking.
func SiteConfig(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		allowCORS(ctx)

		empty := map[string]any{"tags": []any{}}
		var req configRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.SiteID == "" {
			jsonResponse(ctx, empty)
			return
		}

		var site dbpkg.Site
		if err := db.Where("id = ?", req.SiteID).First(&site).Error; err != nil {
			jsonResponse(ctx, empty)
			return
		}

		var tags []any
		if len(site.Tags) > 0 {
			if err := json.Unmarshal(site.Tags, &tags); err != nil {
				tags = nil
			}
		}
		if tags == nil {
			tags = []any{}
		}
		jsonResponse(ctx, map[string]any{"tags": tags})
	}
}
