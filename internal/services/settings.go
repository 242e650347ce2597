package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/jarekbird/telegram-receiver/internal/repo"
)

// SettingsProvider exposes boolean feature flags to the handler and
// responder. Implementations must treat an unreadable flag as unset rather
// than failing the caller.
type SettingsProvider interface {
	// Enabled reports whether the flag named key is set to true.
	Enabled(ctx context.Context, key string) bool
}

// DBSettings reads feature flags from the shared SQLite system_settings
// table on every call. Flag lookups are cheap (primary-key reads against a
// local file) and callers need fresh values, so no cache sits in between.
type DBSettings struct {
	DB *gorm.DB
}

// Enabled returns the stored value of key. A missing row is false; a lookup
// failure is logged and reported as false.
func (s *DBSettings) Enabled(ctx context.Context, key string) bool {
	v, err := repo.GetSetting(ctx, s.DB, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("feature flag lookup failed")
		}
		return false
	}
	return v
}

// StaticSettings is a fixed in-memory flag set, used in tests and as a
// fallback when the shared database is not configured.
type StaticSettings map[string]bool

// Enabled reports the stored value of key, defaulting to false.
func (s StaticSettings) Enabled(_ context.Context, key string) bool { return s[key] }
