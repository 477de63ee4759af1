//nolint:lll // struct tags can't be split
package slashbot

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	EnvvarSetEnvPrefix = "SLASHBOT_ENV_PREFIX"
	DefaultEnvPrefix   = "SLASHBOT"

	DefaultDatabaseType          = "sqlite"
	DefaultDatabase              = "slashbot.sqlite3"
	DefaultLogLevel              = slog.LevelInfo
	DefaultStartupTimeout        = 30 * time.Second
	DefaultShutdownTimeout       = 60 * time.Second
	DefaultDatabaseSlowThreshold = 200 * time.Millisecond
	DefaultDatabaseLogLevel      = slog.LevelInfo
	DefaultDiscordLogLevel       = slog.LevelWarn
	DefaultDiscordgoLogLevel     = slog.LevelWarn
	DefaultAPILogLevel           = slog.LevelInfo

	DefaultDiscordGatewayIntent  = discordgo.IntentsAllWithoutPrivileged
	DefaultDiscordCustomStatus   = "/chat with me!"
	DefaultDiscordStartupMessage = "I'm here!"
	DefaultDiscordErrorMessage   = "sorry, something went wrong!"
	DefaultDiscordBusyMessage    = "I'm still working on your last message!"

	DefaultAdapterTimeout        = 10 * time.Second
	DefaultReminderSweepInterval = 5 * time.Second
	DefaultMarkovTrainInterval   = 30 * time.Minute
	DefaultLogPruneInterval      = 24 * time.Hour
	DefaultRuntimeConfigTTL      = 5 * time.Minute
	DefaultUserCacheTTL          = time.Hour

	DefaultOpenAIModel                = "gpt-4o-mini"
	DefaultOpenAIMaxTokens            = 1024
	DefaultOpenAIMaxRequestsPerSecond = 1.0
	DefaultAIQueueSize                = 100
	DefaultAIQueueMaxAge              = 3 * time.Minute

	DefaultAPIListen         = "127.0.0.1:5000"
	defaultListenNetwork     = "tcp"
	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 30 * time.Second
	DefaultAPICORSMaxAge     = 12 * time.Hour

	DefaultMarkovAttempts    = 10
	DefaultReminderMaxLength = 1024
	discordMaxMessageLength  = 2000
)

var (
	DefaultCORSAllowMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodOptions,
		http.MethodHead,
	}
	DefaultCORSAllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Accept",
		"Authorization",
		"Cache-Control",
	}
)

// Config is the full startup configuration for the bot. Values are
// populated by viper from environment variables (and an optional .env
// file) in cmd, then validated once before Run.
type Config struct {
	// Database connection string, or SQLite file path
	Database string `yaml:"database" mapstructure:"database" json:"database"`

	// DatabaseType specifies the type of database, either 'sqlite' or 'postgres'
	DatabaseType string `yaml:"database_type" mapstructure:"database_type" json:"database_type" binding:"oneof=sqlite postgres"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Discord configures the bot user itself
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// OpenAI configures the /generate_text adapter
	OpenAI *OpenAIConfig `yaml:"openai" mapstructure:"openai" json:"openai"`

	// Weather configures the OpenWeatherMap adapter
	Weather *WeatherConfig `yaml:"weather" mapstructure:"weather" json:"weather"`

	// Wolfram configures the Wolfram Alpha short answers adapter
	Wolfram *WolframConfig `yaml:"wolfram" mapstructure:"wolfram" json:"wolfram"`

	// API configures the backend status/admin HTTP server
	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`

	// AdapterTimeout bounds a single outbound adapter call. Calls past
	// the deadline are treated as failed and surfaced to the user.
	AdapterTimeout time.Duration `yaml:"adapter_timeout" mapstructure:"adapter_timeout" json:"adapter_timeout"`

	// StartupTimeout sets a limit on the amount of time the bot has to
	// initialize. If this is passed, the bot will abort startup.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After
	// this elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	// ReminderSweepInterval sets how often the scheduler checks for due reminders
	ReminderSweepInterval time.Duration `yaml:"reminder_sweep_interval" mapstructure:"reminder_sweep_interval" json:"reminder_sweep_interval"`

	// MarkovTrainInterval sets how often collected guild messages are
	// folded into the per-guild Markov chains
	MarkovTrainInterval time.Duration `yaml:"markov_train_interval" mapstructure:"markov_train_interval" json:"markov_train_interval"`

	// RuntimeConfigTTL sets the time-to-live for the RuntimeConfig cache
	RuntimeConfigTTL time.Duration `yaml:"runtime_config_ttl" mapstructure:"runtime_config_ttl" json:"runtime_config_ttl"`

	// UserCacheTTL sets the time-to-live for the User cache
	UserCacheTTL time.Duration `yaml:"user_cache_ttl" mapstructure:"user_cache_ttl" json:"user_cache_ttl"`

	// AIQueue holds the configuration for the text-generation queue
	AIQueue *QueueConfig `yaml:"ai_queue" mapstructure:"ai_queue" json:"ai_queue"`

	HTTPClient *http.Client `log:"[redacted]"`
}

// DiscordConfig configures the discord bot itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// NotificationChannelID, when set, receives the startup message and
	// operational notices (new users, rate limits)
	NotificationChannelID string `yaml:"notification_channel_id" mapstructure:"notification_channel_id" json:"notification_channel_id"`

	// StartupMessage is sent to the notification channel on connect
	StartupMessage string `yaml:"startup_message" mapstructure:"startup_message" json:"startup_message"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	httpClient *http.Client
}

// OpenAIConfig configures the chat-completion adapter behind /generate_text
type OpenAIConfig struct {
	// OpenAI API token. Leave empty to disable the /generate_text command.
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]"`

	// Model used for completions
	Model string `yaml:"model" mapstructure:"model" json:"model"`

	// MaxTokens caps a single completion response
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens" json:"max_tokens"`

	// MaxRequestsPerSecond throttles outbound completion requests
	MaxRequestsPerSecond float64 `yaml:"max_requests_per_second" mapstructure:"max_requests_per_second" json:"max_requests_per_second"`

	// SystemPrompt is prepended to every completion request
	SystemPrompt string `yaml:"system_prompt" mapstructure:"system_prompt" json:"system_prompt"`

	// OpenAI base log level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// WeatherConfig configures the OpenWeatherMap adapter
type WeatherConfig struct {
	// OpenWeatherMap API key. Leave empty to disable /weather and /forecast.
	APIKey string `yaml:"api_key" mapstructure:"api_key" json:"api_key" log:"[redacted]"`

	// BaseURL overrides the OpenWeatherMap endpoint (used in tests)
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
}

// WolframConfig configures the Wolfram Alpha short answers adapter
type WolframConfig struct {
	// Wolfram Alpha app ID. Leave empty to disable /wolfram.
	AppID string `yaml:"app_id" mapstructure:"app_id" json:"app_id" log:"[redacted]"`

	// BaseURL overrides the Wolfram endpoint (used in tests)
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
}

// QueueConfig configures the capacity and behavior of the AI request queue.
type QueueConfig struct {
	// Maximum queue size. 0=unlimited
	Size int `yaml:"size" mapstructure:"size" json:"size" binding:"min=0"`

	// Maximum age of a request that will be returned from the queue.
	// Requests older than this will be discarded. 0=unlimited
	MaxAge time.Duration `yaml:"max_age" mapstructure:"max_age" json:"max_age" binding:"min=0"`
}

// APIConfig configures the backend status/admin HTTP server
type APIConfig struct {
	// Enabled determines whether the HTTP server is started at all
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// The address and port on which the server should listen (e.g., "127.0.0.1:5000")
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required_if=Enabled true"`

	// The network type for listening (e.g., "tcp", "tcp4", "tcp6", "unix")
	ListenNetwork string `yaml:"listen_network" mapstructure:"listen_network" json:"listen_network" binding:"required_if=Enabled true,oneof=tcp tcp4 tcp6 unix"`

	// AdminUsername for the admin endpoints (pause/resume)
	AdminUsername string `yaml:"admin_username" mapstructure:"admin_username" json:"admin_username"`

	// AdminPasswordHash is an argon2id hash of the admin password,
	// as produced by the `hashpw` subcommand
	AdminPasswordHash string `yaml:"admin_password_hash" mapstructure:"admin_password_hash" json:"admin_password_hash" log:"[redacted]"`

	// The logging level for the API server
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Cross-origin configuration
	CORS CORSConfig `yaml:"cors" mapstructure:"cors" json:"cors"`

	// Maximum duration for reading the entire request, including the body
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout" binding:"required_if=Enabled true,min=1s"`

	// Amount of time allowed to read request headers
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum duration before timing out writes of the response
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout" binding:"required_if=Enabled true,min=1s"`

	// Maximum amount of time to wait for the next request when keep-alives are enabled
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout" binding:"required_if=Enabled true,min=1s"`
}

// CORSConfig specifies cross-origin resource sharing settings
type CORSConfig struct {
	AllowOrigins []string      `yaml:"allow_origins" mapstructure:"allow_origins" json:"allow_origins"`
	AllowMethods []string      `yaml:"allow_methods" mapstructure:"allow_methods" json:"allow_methods"`
	AllowHeaders []string      `yaml:"allow_headers" mapstructure:"allow_headers" json:"allow_headers"`
	MaxAge       time.Duration `yaml:"max_age" mapstructure:"max_age" json:"max_age"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

func DefaultCORSConfig() CORSConfig {
	methods := make([]string, len(DefaultCORSAllowMethods))
	copy(methods, DefaultCORSAllowMethods)

	headers := make([]string, len(DefaultCORSAllowHeaders))
	copy(headers, DefaultCORSAllowHeaders)

	return CORSConfig{
		AllowOrigins: []string{},
		AllowMethods: methods,
		AllowHeaders: headers,
		MaxAge:       DefaultAPICORSMaxAge,
	}
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	dbLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	openaiLogLevel := &slog.LevelVar{}
	apiLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	dbLogLevel.Set(DefaultDatabaseLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	openaiLogLevel.Set(DefaultLogLevel)
	apiLogLevel.Set(DefaultAPILogLevel)

	return &Config{
		Database:              DefaultDatabase,
		DatabaseType:          DefaultDatabaseType,
		DatabaseLogLevel:      dbLogLevel,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		LogLevel:              mainLogLevel,
		AdapterTimeout:        DefaultAdapterTimeout,
		StartupTimeout:        DefaultStartupTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,
		ReminderSweepInterval: DefaultReminderSweepInterval,
		MarkovTrainInterval:   DefaultMarkovTrainInterval,
		RuntimeConfigTTL:      DefaultRuntimeConfigTTL,
		UserCacheTTL:          DefaultUserCacheTTL,
		Discord: &DiscordConfig{
			GatewayIntents:    DefaultDiscordGatewayIntent,
			StartupMessage:    DefaultDiscordStartupMessage,
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
		},
		OpenAI: &OpenAIConfig{
			Model:                DefaultOpenAIModel,
			MaxTokens:            DefaultOpenAIMaxTokens,
			MaxRequestsPerSecond: DefaultOpenAIMaxRequestsPerSecond,
			LogLevel:             openaiLogLevel,
		},
		Weather: &WeatherConfig{},
		Wolfram: &WolframConfig{},
		AIQueue: &QueueConfig{
			Size:   DefaultAIQueueSize,
			MaxAge: DefaultAIQueueMaxAge,
		},
		API: &APIConfig{
			Enabled:           false,
			Listen:            DefaultAPIListen,
			ListenNetwork:     defaultListenNetwork,
			LogLevel:          apiLogLevel,
			CORS:              DefaultCORSConfig(),
			ReadTimeout:       DefaultReadTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}
