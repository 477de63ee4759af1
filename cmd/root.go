package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/saultyevil/slashbot/slashbot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg        = slashbot.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use: "slashbot [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// LevelToStringHookFunc converts string log levels into *slog.LevelVar
// fields during viper unmarshaling.
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		fmt.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Println("No .env file found")
		}
	}

	viper.SetDefault("database", slashbot.DefaultDatabase)
	viper.SetDefault("database_type", slashbot.DefaultDatabaseType)
	viper.SetDefault(
		"database_slow_threshold",
		slashbot.DefaultDatabaseSlowThreshold,
	)
	viper.SetDefault(
		"database_log_level",
		slashbot.DefaultDatabaseLogLevel.String(),
	)

	viper.SetDefault("log_level", slashbot.DefaultLogLevel.String())
	viper.SetDefault("api.log_level", slashbot.DefaultAPILogLevel.String())

	viper.SetDefault("startup_timeout", slashbot.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", slashbot.DefaultShutdownTimeout)
	viper.SetDefault("adapter_timeout", slashbot.DefaultAdapterTimeout)

	viper.SetDefault(
		"reminder_sweep_interval",
		slashbot.DefaultReminderSweepInterval,
	)
	viper.SetDefault(
		"markov_train_interval",
		slashbot.DefaultMarkovTrainInterval,
	)
	viper.SetDefault("runtime_config_ttl", slashbot.DefaultRuntimeConfigTTL)
	viper.SetDefault("user_cache_ttl", slashbot.DefaultUserCacheTTL)

	viper.SetDefault("ai_queue.size", slashbot.DefaultAIQueueSize)
	viper.SetDefault("ai_queue.max_age", slashbot.DefaultAIQueueMaxAge)

	// OpenAI config
	viper.SetDefault("openai.token", "")
	viper.SetDefault("openai.model", slashbot.DefaultOpenAIModel)
	viper.SetDefault("openai.max_tokens", slashbot.DefaultOpenAIMaxTokens)
	viper.SetDefault(
		"openai.max_requests_per_second",
		slashbot.DefaultOpenAIMaxRequestsPerSecond,
	)
	viper.SetDefault("openai.system_prompt", "")
	viper.SetDefault("openai.log_level", slashbot.DefaultLogLevel.String())

	// Weather/Wolfram adapters
	viper.SetDefault("weather.api_key", "")
	viper.SetDefault("wolfram.app_id", "")

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.notification_channel_id", "")
	viper.SetDefault(
		"discord.log_level",
		slashbot.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		slashbot.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		slashbot.DefaultDiscordGatewayIntent,
	)
	viper.SetDefault(
		"discord.startup_message",
		slashbot.DefaultDiscordStartupMessage,
	)

	// API config
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.listen", slashbot.DefaultAPIListen)
	viper.SetDefault("api.listen_network", "tcp")
	viper.SetDefault("api.admin_username", "")
	viper.SetDefault("api.admin_password_hash", "")
	viper.SetDefault("api.read_timeout", slashbot.DefaultReadTimeout)
	viper.SetDefault(
		"api.read_header_timeout",
		slashbot.DefaultReadHeaderTimeout,
	)
	viper.SetDefault("api.write_timeout", slashbot.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", slashbot.DefaultIdleTimeout)

	// API: CORS config
	viper.SetDefault(
		"api.cors.allow_headers",
		slashbot.DefaultCORSAllowHeaders,
	)
	viper.SetDefault(
		"api.cors.allow_methods",
		slashbot.DefaultCORSAllowMethods,
	)
	viper.SetDefault(
		"api.cors.allow_origins",
		[]string{},
	)
	viper.SetDefault("api.cors.max_age", slashbot.DefaultAPICORSMaxAge)

	envPrefix := os.Getenv(slashbot.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = slashbot.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// Convert values to correct types
	viper.Set(
		"api.cors.allow_headers",
		viper.GetStringSlice("api.cors.allow_headers"),
	)
	viper.Set(
		"api.cors.allow_origins",
		viper.GetStringSlice("api.cors.allow_origins"),
	)
	viper.Set(
		"api.cors.allow_methods",
		viper.GetStringSlice("api.cors.allow_methods"),
	)

	for _, key := range []string{
		"log_level",
		"database_log_level",
		"discord.log_level",
		"discord.discordgo_log_level",
		"openai.log_level",
		"api.log_level",
	} {
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Config file to use",
	)
}
