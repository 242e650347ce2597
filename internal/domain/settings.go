package domain

import "time"

// Well-known feature-flag keys stored in the shared system_settings table.
const (
	// SettingAudioOutputDisabled suppresses synthesized-voice replies even
	// when the originating message was audio.
	SettingAudioOutputDisabled = "telegram_audio_output_disabled"

	// SettingForwardDebugAck sends an immediate "processing" acknowledgment
	// to the chat before the automation forward completes.
	SettingForwardDebugAck = "telegram_forward_debug_ack"
)

// SystemSetting is a boolean feature flag shared across services through the
// embedded SQLite database. The table is external configuration, not domain
// data: rows are written by operators (or sibling services) and only read here.
type SystemSetting struct {
	Key       string    `json:"key"   gorm:"type:varchar(128);primaryKey"`
	Value     bool      `json:"value" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for SystemSetting.
func (SystemSetting) TableName() string { return "system_settings" }
