package db

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// APIKey authenticates programmatic access to the BI and management
// endpoints. Only a SHA-256 hash of the key material is stored; the clear
// value is shown once at creation.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// UserID links this key to the user who owns it.
	UserID uint `gorm:"index;not null"`

	// Name is a user-friendly identifier for this key (e.g. "looker-export").
	Name string `gorm:"size:128;not null"`

	// KeyHash is the hex SHA-256 of the key value.
	KeyHash string `gorm:"uniqueIndex;size:64;not null"`

	// KeyPrefix is the first characters of the clear key, kept for display.
	KeyPrefix string `gorm:"size:12"`

	// LastUsedAt is refreshed on every authenticated request.
	LastUsedAt *time.Time

	// Active indicates whether this key is currently enabled.
	Active bool `gorm:"default:true"`

	// User is the owner of this API key.
	User User `gorm:"foreignKey:UserID"`
}

// HashKey returns the hex SHA-256 digest under which a key is stored and
// looked up.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
