package middleware

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
	httpctx "sitepulse/internal/http/ctx"
)

// APIKeyAuth validates x-api-key headers against hashed keys in the
// database and stamps the key's last-used timestamp.
func APIKeyAuth(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			key := strings.TrimSpace(string(ctx.Request.Header.Peek("x-api-key")))
			if key == "" {
				// Accept Bearer tokens too, for clients that can only set
				// an Authorization header.
				auth := string(ctx.Request.Header.Peek("Authorization"))
				if strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimSpace(auth[len("Bearer "):])
				}
			}
			if key == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("API key required. Set x-api-key header.")
				return
			}

			var apiKey dbpkg.APIKey
			err := db.Where("key_hash = ? AND active = ?", dbpkg.HashKey(key), true).
				Preload("User").First(&apiKey).Error
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					ctx.SetStatusCode(fasthttp.StatusUnauthorized)
					ctx.SetBodyString("invalid or inactive API key")
					return
				}
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("database error")
				return
			}

			now := time.Now()
			db.Model(&apiKey).UpdateColumn("last_used_at", now)

			httpctx.SetAPIKey(ctx, &apiKey)
			httpctx.SetUser(ctx, &apiKey.User)
			next(ctx)
		}
	}
}
