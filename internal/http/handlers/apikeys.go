package handlers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "sitepulse/internal/db"
)

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

// CreateAPIKey issues a new key for the calling user. The clear value is
// returned exactly once; only its hash is stored.
func CreateAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req createAPIKeyRequest
		if !readJSON(ctx, &req) {
			return
		}
		if req.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "name is required")
			return
		}

		clear := "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		key := dbpkg.APIKey{
			UserID:    user.ID,
			Name:      req.Name,
			KeyHash:   dbpkg.HashKey(clear),
			KeyPrefix: clear[:8],
			Active:    true,
		}
		if err := db.Create(&key).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create API key")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{
			"id":         key.ID,
			"name":       key.Name,
			"key":        clear,
			"key_prefix": key.KeyPrefix,
		})
	}
}

// ListAPIKeys returns the calling user's keys, without key material.
func ListAPIKeys(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var keys []dbpkg.APIKey
		if err := db.Where("user_id = ?", user.ID).Order("created_at").Find(&keys).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list API keys")
			return
		}

		out := make([]map[string]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, map[string]any{
				"id":           k.ID,
				"name":         k.Name,
				"key_prefix":   k.KeyPrefix,
				"active":       k.Active,
				"created_at":   k.CreatedAt,
				"last_used_at": k.LastUsedAt,
			})
		}
		jsonResponse(ctx, map[string]any{"api_keys": out})
	}
}

// RevokeAPIKey deactivates one of the calling user's keys.
func RevokeAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		keyID, _ := ctx.UserValue("id").(string)
		res := db.Model(&dbpkg.APIKey{}).
			Where("user_id = ? AND id = ?", user.ID, keyID).
			Update("active", false)
		if res.Error != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to revoke API key")
			return
		}
		if res.RowsAffected == 0 {
			errResponse(ctx, fasthttp.StatusNotFound, "API key not found")
			return
		}
		jsonResponse(ctx, map[string]any{"status": "revoked"})
	}
}
