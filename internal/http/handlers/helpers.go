package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
	httpctx "sitepulse/internal/http/ctx"
)

// MustUser returns the current user from context, or sends 401 and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok || user == nil {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return nil, false
	}
	return user, true
}

// mustSite loads the site and enforces that the current user owns it.
func mustSite(ctx *fasthttp.RequestCtx, db *gorm.DB, siteID string) (*dbpkg.Site, bool) {
	user, ok := MustUser(ctx)
	if !ok {
		return nil, false
	}
	if siteID == "" {
		errResponse(ctx, fasthttp.StatusBadRequest, "site_id is required")
		return nil, false
	}

	var site dbpkg.Site
	if err := db.Where("id = ?", siteID).First(&site).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			errResponse(ctx, fasthttp.StatusNotFound, "site not found")
			return nil, false
		}
		errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
		return nil, false
	}
	if site.UserID != user.ID {
		errResponse(ctx, fasthttp.StatusForbidden, "access denied to this site")
		return nil, false
	}
	return &site, true
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}

// readJSON decodes the request body into dst, answering 400 on failure.
func readJSON(ctx *fasthttp.RequestCtx, dst any) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
