package handlers

import (
	"log"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
)

// DeleteAccount removes the calling user and everything they own. The
// bootstrap admin is protected so an instance can't lock itself out.
func DeleteAccount(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		if user.IsAdmin {
			errResponse(ctx, fasthttp.StatusForbidden, "the admin account cannot delete itself")
			return
		}

		if err := dbpkg.DeleteAccount(db, user.ID); err != nil {
			log.Printf("account deletion failed for user %d: %v", user.ID, err)
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete account")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "deleted"})
	}
}
