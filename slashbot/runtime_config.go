package slashbot

import (
	"log/slog"
)

var (
	columnRuntimeConfigPaused              = "paused"
	columnRuntimeConfigDiscordCustomStatus = "discord_custom_status"
)

// RuntimeConfig represents the runtime configuration of the bot. It
// stores settings that can be modified while the bot is running and
// persisted across restarts (e.g., being paused).
//
//nolint:lll // struct tags can't be split
type RuntimeConfig struct {
	ModelUintID
	ModelUnixTime

	// Paused indicates whether the bot is currently paused. While
	// paused, slash commands other than admin commands are rejected
	// with an ephemeral notice.
	Paused bool `json:"paused" gorm:"not null;default:false"`

	// DiscordCustomStatus is the custom status message displayed for the bot on Discord.
	DiscordCustomStatus string `json:"discord_custom_status" gorm:"type:string"`

	// MarkovLearnEnabled controls whether guild messages are collected
	// for Markov chain training.
	MarkovLearnEnabled bool `json:"markov_learn_enabled" gorm:"not null;default:true"`

	// DiscordErrorMessage is the fallback message sent when a command fails.
	DiscordErrorMessage string `json:"discord_error_message" gorm:"type:string" binding:"omitempty,min=1,max=100"`

	// RecoverPanic controls whether panics in command handlers are
	// recovered (true) or allowed to crash the bot (false, for tests)
	RecoverPanic bool `json:"recover_panic" gorm:"default:true"`

	// LogLevel is the general logging level for the application.
	LogLevel DBLogLevel `gorm:"default:INFO;type:string;check:log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`

	// DiscordLogLevel is the logging level for Discord-related operations.
	DiscordLogLevel DBLogLevel `gorm:"default:INFO;type:string;check:discord_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"discord_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`

	// DiscordGoLogLevel is the logging level for the DiscordGo library.
	DiscordGoLogLevel DBLogLevel `gorm:"default:WARN;column:discordgo_log_level;type:string;check:discordgo_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"discordgo_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`

	// DatabaseLogLevel is the logging level for database operations.
	DatabaseLogLevel DBLogLevel `gorm:"default:INFO;type:string;check:database_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"database_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`

	// APILogLevel is the logging level for API operations.
	APILogLevel DBLogLevel `gorm:"default:INFO;type:string;check:api_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"api_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
}

func (RuntimeConfig) TableName() string {
	return "config"
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Paused:              false,
		DiscordCustomStatus: DefaultDiscordCustomStatus,
		MarkovLearnEnabled:  true,
		DiscordErrorMessage: DefaultDiscordErrorMessage,
		RecoverPanic:        true,
		LogLevel:            DBLogLevel(slog.LevelInfo.String()),
		DiscordLogLevel:     DBLogLevel(slog.LevelWarn.String()),
		DiscordGoLogLevel:   DBLogLevel(slog.LevelWarn.String()),
		DatabaseLogLevel:    DBLogLevel(slog.LevelInfo.String()),
		APILogLevel:         DBLogLevel(slog.LevelInfo.String()),
	}
}

// setRuntimeLevels applies the persisted log levels to the bot's
// slog.LevelVar instances.
func (b *Bot) setRuntimeLevels(cfg RuntimeConfig) {
	b.config.LogLevel.Set(cfg.LogLevel.Level())
	b.config.Discord.LogLevel.Set(cfg.DiscordLogLevel.Level())
	b.config.Discord.DiscordGoLogLevel.Set(cfg.DiscordGoLogLevel.Level())
	b.config.DatabaseLogLevel.Set(cfg.DatabaseLogLevel.Level())
	b.config.API.LogLevel.Set(cfg.APILogLevel.Level())
}
