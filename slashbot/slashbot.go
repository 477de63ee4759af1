package slashbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
)

var (
	// When building, set these like:
	// -ldflags "-X github.com/saultyevil/slashbot/slashbot.Version=$$(date +'%Y%m%d')"

	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

var (
	defaultLogWriter io.Writer = os.Stdout

	structValidator = validator.New(
		validator.WithRequiredStructEnabled(),
	)
)

//nolint:gochecknoinits // validator must read the struct `binding` tags
func init() {
	structValidator.SetTagName("binding")
}

// Bot is the top-level slashbot instance: gateway session, command
// registry, scheduler, adapters, database, and the status API.
type Bot struct {
	config     *Config
	logger     *slog.Logger
	logHandler slog.Handler

	db      *gorm.DB
	writeDB DBI

	discord   *Discord
	registry  *Registry
	scheduler *Scheduler
	chains    *ChainStore
	api       *API

	weather *OWMClient
	wolfram *WolframClient
	booru   *BooruClient
	news    *NewsClient
	openai  *OpenAI
	queue   *GenerationQueue

	runtimeConfig   *RuntimeConfig
	runtimeConfigMu sync.RWMutex

	paused    atomic.Bool
	startedAt time.Time

	metricCommandsHandled atomic.Int64
	metricCommandErrors   atomic.Int64

	runMu      sync.Mutex
	signalStop chan struct{}

	// signalReady receives a signal when startup has finished (used
	// in tests)
	signalReady chan struct{}
}

// New creates a Bot from the given config. The gateway connection is
// not opened until Run.
func New(config *Config) (*Bot, error) {
	var errs []error

	switch config.DatabaseType {
	case dbTypeSQLite, dbTypePostgres:
		//
	default:
		errs = append(
			errs,
			errors.New("invalid database type (must be 'sqlite' or 'postgres')"),
		)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.AdapterTimeout}
	}

	b := &Bot{
		config:      config,
		signalReady: make(chan struct{}, 1),
	}

	b.logHandler = tint.NewHandler(
		defaultLogWriter, &tint.Options{
			Level:     b.config.LogLevel,
			AddSource: true,
		},
	)

	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	b.openai = NewOpenAI(config.OpenAI, b.logger)
	b.weather = NewOWMClient(config.Weather, config.HTTPClient)
	b.wolfram = NewWolframClient(config.Wolfram, config.HTTPClient)
	b.booru = NewBooruClient("", config.HTTPClient, rng)
	b.news = NewNewsClient("", config.HTTPClient)
	b.chains = NewChainStore(b.logger)
	b.queue = NewGenerationQueue(config.AIQueue, b.logger)

	b.config.Discord.httpClient = config.HTTPClient

	disc := newDiscord(b.config.Discord)

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.Discord.DiscordGoLogLevel,
				AddSource: true,
			},
		).WithAttrs([]slog.Attr{slog.String(loggerNameKey, "discordgo")}),
	)

	disc.logger = slog.New(
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.Discord.LogLevel,
				AddSource: true,
			},
		),
	).With(loggerNameKey, "discord")

	b.discord = disc
	disc.bot = b

	registry, err := buildRegistry(b)
	if err != nil {
		errs = append(errs, err)
	}
	b.registry = registry

	scheduler, err := NewScheduler(b.logger)
	if err != nil {
		errs = append(errs, err)
	}
	b.scheduler = scheduler

	api, err := newAPI(b, config.API)
	if err != nil {
		errs = append(errs, err)
	}
	b.api = api

	return b, errors.Join(errs...)
}

func (b *Bot) ValidateConfig() error {
	return structValidator.Struct(b.config)
}

// RegisterSlashCommands sends the registry's commands to the Discord
// bulk overwrite endpoint.
func (b *Bot) RegisterSlashCommands(options ...discordgo.RequestOption) (
	[]*discordgo.ApplicationCommand,
	error,
) {
	return b.discord.registerCommands(b.registry, options...)
}

// RegisterCommandsOnly creates a REST-only Discord session and
// overwrites the bot's slash commands without opening a gateway
// connection.
func (b *Bot) RegisterCommandsOnly(options ...discordgo.RequestOption) (
	[]*discordgo.ApplicationCommand,
	error,
) {
	session, err := b.discord.newSession()
	if err != nil {
		return nil, err
	}
	b.discord.session = session
	return b.RegisterSlashCommands(options...)
}

// RuntimeConfig returns a copy of the current runtime configuration.
func (b *Bot) RuntimeConfig() RuntimeConfig {
	b.runtimeConfigMu.RLock()
	defer b.runtimeConfigMu.RUnlock()
	if b.runtimeConfig == nil {
		return DefaultRuntimeConfig()
	}
	return *b.runtimeConfig
}

// Run starts the bot and blocks until the context is canceled or the
// bot is stopped. Initialization must complete within
// Config.StartupTimeout.
func (b *Bot) Run(ctx context.Context) error {
	// prevents concurrent runs
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.signalStop = make(chan struct{}, 1)
	b.startedAt = time.Now()
	logger := b.logger

	if err := b.ValidateConfig(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", b.config))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.signalStop:
			b.logger.Warn("got stop signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	runtimeWG := &sync.WaitGroup{}

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	initErr := make(chan error, 1)
	go func() {
		initErr <- b.initRun(startCtx)
	}()

	select {
	case <-startCtx.Done():
		return fmt.Errorf("startup cancelled or timed out")
	case err := <-initErr:
		if err != nil {
			logger.ErrorContext(ctx, "init error", tint.Err(err))
			return err
		}
	}

	if b.config.API.Enabled {
		go func() {
			httpErr := b.api.Serve(ctx)
			if httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
				b.logger.ErrorContext(ctx, "error serving api HTTP", tint.Err(httpErr))
			}
		}()
	}

	if err := b.initDiscordSession(ctx, runtimeWG); err != nil {
		logger.ErrorContext(ctx, "error starting discord session", tint.Err(err))
		return err
	}

	runtimeWG.Add(1)
	go func() {
		defer runtimeWG.Done()
		b.queue.Watch(ctx, b.openai)
	}()

	if err := b.startScheduler(ctx); err != nil {
		logger.ErrorContext(ctx, "error starting scheduler", tint.Err(err))
		return err
	}

	b.signalReady <- struct{}{}
	logger.InfoContext(ctx, "sent ready signal")

	<-ctx.Done()

	return b.shutdown(runtimeWG)
}

// Stop triggers a graceful shutdown.
func (b *Bot) Stop() {
	if b.signalStop != nil {
		select {
		case b.signalStop <- struct{}{}:
		default:
		}
	}
}

// initRun opens the database, loads persisted state, and primes the
// caches.
func (b *Bot) initRun(ctx context.Context) error {
	db, err := CreateDB(
		ctx,
		b.config.DatabaseType,
		b.config.Database,
		b.config.DatabaseLogLevel,
		b.config.DatabaseSlowThreshold,
	)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	b.db = db
	b.writeDB = NewDatabase(
		db,
		b.logger,
		b.config.DatabaseType == dbTypePostgres,
	)

	if err = b.loadRuntimeConfig(ctx); err != nil {
		return err
	}

	users := b.writeDB.LoadUsers()
	b.logger.InfoContext(ctx, "loaded users", "count", len(users))

	if err = b.chains.Load(db); err != nil {
		return err
	}

	return nil
}

// loadRuntimeConfig loads the persisted runtime configuration,
// creating the default row on first startup.
func (b *Bot) loadRuntimeConfig(ctx context.Context) error {
	var cfg RuntimeConfig
	err := b.db.WithContext(ctx).Order("id desc").First(&cfg).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("error loading runtime config: %w", err)
		}
		cfg = DefaultRuntimeConfig()
		if _, createErr := b.writeDB.Create(ctx, &cfg); createErr != nil {
			return fmt.Errorf("error creating runtime config: %w", createErr)
		}
	}

	b.runtimeConfigMu.Lock()
	b.runtimeConfig = &cfg
	b.runtimeConfigMu.Unlock()

	b.paused.Store(cfg.Paused)
	b.setRuntimeLevels(cfg)
	return nil
}

// refreshRuntimeConfig re-reads the runtime config row, picking up
// changes made by other instances or directly in the DB.
func (b *Bot) refreshRuntimeConfig(ctx context.Context) error {
	var cfg RuntimeConfig
	err := b.db.WithContext(ctx).Order("id desc").First(&cfg).Error
	if err != nil {
		return fmt.Errorf("error refreshing runtime config: %w", err)
	}

	b.runtimeConfigMu.Lock()
	b.runtimeConfig = &cfg
	b.runtimeConfigMu.Unlock()

	b.paused.Store(cfg.Paused)
	b.setRuntimeLevels(cfg)
	return nil
}

// initDiscordSession opens the gateway connection and registers event
// handlers.
func (b *Bot) initDiscordSession(
	ctx context.Context,
	runtimeWG *sync.WaitGroup,
) error {
	session, err := b.discord.newSession()
	if err != nil {
		return err
	}
	b.discord.session = session

	b.discord.discordgoRemoveHandlerFuncs = []func(){
		session.AddHandler(b.discord.handlerReady()),
		session.AddHandler(b.discord.handlerConnect()),
		session.AddHandler(b.discord.handlerDisconnect()),
		session.AddHandler(b.discord.handlerMessageCreate()),
		session.AddHandler(
			func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
				runtimeWG.Add(1)
				go func() {
					defer runtimeWG.Done()
					b.handleInteraction(ctx, i)
				}()
			},
		),
	}

	if err = session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}

	if _, err = b.RegisterSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	runtimeCfg := b.RuntimeConfig()
	if runtimeCfg.DiscordCustomStatus != "" {
		if statusErr := b.discord.updateCustomStatus(
			runtimeCfg.DiscordCustomStatus,
		); statusErr != nil {
			b.logger.WarnContext(
				ctx,
				"error setting custom status",
				tint.Err(statusErr),
			)
		}
	}
	return nil
}

// startScheduler registers the periodic jobs and starts the scheduler.
func (b *Bot) startScheduler(ctx context.Context) error {
	jobs := []struct {
		name     string
		interval time.Duration
		task     func(context.Context) error
	}{
		{"reminder_sweep", b.config.ReminderSweepInterval, b.sweepReminders},
		{"markov_retrain", b.config.MarkovTrainInterval, b.retrainChains},
		{"interaction_log_prune", DefaultLogPruneInterval, b.pruneInteractionLogs},
		{"runtime_config_refresh", b.config.RuntimeConfigTTL, b.refreshRuntimeConfig},
		{"user_cache_refresh", b.config.UserCacheTTL, b.refreshUserCache},
	}
	for _, job := range jobs {
		if err := b.scheduler.AddJob(ctx, job.name, job.interval, job.task); err != nil {
			return err
		}
	}
	b.scheduler.Start()
	return nil
}

// refreshUserCache reloads the user cache from the database, picking
// up rows changed outside the bot (an Ignored flag toggled directly in
// the DB, for example).
func (b *Bot) refreshUserCache(ctx context.Context) error {
	users := b.writeDB.LoadUsers()
	b.logger.DebugContext(ctx, "refreshed user cache", "count", len(users))
	return nil
}

// pruneInteractionLogs deletes interaction log rows older than 30 days.
func (b *Bot) pruneInteractionLogs(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -30).UnixMilli()
	rows, err := b.writeDB.Delete(&InteractionLog{}, "created_at < ?", cutoff)
	if err != nil {
		return fmt.Errorf("error pruning interaction logs: %w", err)
	}
	if rows > 0 {
		b.logger.InfoContext(ctx, "pruned interaction logs", "rows", rows)
	}
	return nil
}

// collectGuildMessage stores a gateway message for the next Markov
// retrain, if learning is enabled.
func (b *Bot) collectGuildMessage(m *discordgo.MessageCreate) {
	if !b.RuntimeConfig().MarkovLearnEnabled {
		return
	}
	msg := GuildMessage{
		GuildID: m.GuildID,
		Content: m.Content,
	}
	if _, err := b.writeDB.Create(context.Background(), &msg); err != nil {
		b.logger.Error("error storing guild message", tint.Err(err))
	}
}

// Pause pauses command handling. Returns false if already paused.
func (b *Bot) Pause(ctx context.Context) bool {
	if b.paused.Swap(true) {
		return false
	}
	b.logger.WarnContext(ctx, "pausing")
	if _, err := b.writeDB.UpdatesWhere(
		ctx,
		&RuntimeConfig{},
		map[string]any{columnRuntimeConfigPaused: true},
		"1 = 1",
	); err != nil {
		b.logger.ErrorContext(ctx, "error persisting pause", tint.Err(err))
	}
	return true
}

// Resume resumes command handling. Returns false if not paused.
func (b *Bot) Resume(ctx context.Context) bool {
	if !b.paused.Swap(false) {
		return false
	}
	b.logger.WarnContext(ctx, "resuming")
	if _, err := b.writeDB.UpdatesWhere(
		ctx,
		&RuntimeConfig{},
		map[string]any{columnRuntimeConfigPaused: false},
		"1 = 1",
	); err != nil {
		b.logger.ErrorContext(ctx, "error persisting resume", tint.Err(err))
	}
	return true
}

// handleInteraction dispatches one gateway interaction: audit log,
// user lookup, registry lookup, option validation, deferred ack,
// handler execution, response edit.
func (b *Bot) handleInteraction(
	ctx context.Context,
	i *discordgo.InteractionCreate,
) {
	logger := b.logger.With(
		slog.Group("interaction", interactionLogAttrs(*i)...),
	)
	ctx = WithLogger(ctx, logger)

	recoverPanics := b.RuntimeConfig().RecoverPanic
	defer func() {
		if !recoverPanics {
			return
		}
		if rc := recover(); rc != nil {
			logger.ErrorContext(ctx, "recovered from panic", "panic", rc)
		}
	}()

	discordUser := getDiscordUser(i)
	if discordUser == nil {
		logger.ErrorContext(
			ctx,
			"no user found in interaction",
			"interaction", structToSlogValue(i),
		)
		return
	}

	logger.InfoContext(
		ctx,
		"received new interaction",
		"user", structToSlogValue(discordUser),
	)

	interactionLog, err := newInteractionLog(i, discordUser)
	if err != nil {
		logger.ErrorContext(ctx, "error marshaling interaction", tint.Err(err))
	}
	defer func() {
		if interactionLog == nil {
			return
		}
		if _, createErr := b.writeDB.Create(ctx, interactionLog); createErr != nil {
			logger.ErrorContext(ctx, "error logging interaction", tint.Err(createErr))
		}
	}()

	if discordUser.Bot {
		logger.WarnContext(ctx, "user is bot, ignoring", "user", discordUser)
		return
	}

	switch i.Type {
	case discordgo.InteractionPing:
		_ = b.discord.session.InteractionRespond(
			i.Interaction,
			&discordgo.InteractionResponse{
				Type: discordgo.InteractionResponsePong,
			},
		)
	case discordgo.InteractionApplicationCommand:
		b.handleApplicationCommand(ctx, i, discordUser, interactionLog)
	default:
		logger.WarnContext(ctx, "unsupported interaction type", "type", i.Type)
	}
}

func (b *Bot) handleApplicationCommand(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	discordUser *discordgo.User,
	interactionLog *InteractionLog,
) {
	logger, ok := ContextLogger(ctx)
	if !ok || logger == nil {
		logger = b.logger
	}
	commandName := i.ApplicationCommandData().Name

	u, _, err := b.writeDB.GetOrCreateUser(ctx, *discordUser)
	if err != nil {
		logger.ErrorContext(ctx, "error getting user", tint.Err(err))
		return
	}
	logger = logger.With(slog.Group("user", userLogAttrs(*u)...))
	ctx = WithLogger(ctx, logger)

	cmd, err := b.registry.Lookup(commandName)
	if err != nil {
		logger.ErrorContext(ctx, "unknown command", tint.Err(err))
		b.respondEphemeral(ctx, i, fmt.Sprintf("I don't know the command `%s`!", commandName))
		return
	}

	if u.Ignored || (b.paused.Load() && !cmd.AdminOnly) {
		b.respondEphemeral(ctx, i, "I'm taking a break right now, try again later!")
		return
	}

	optionMap, err := validateOptions(
		cmd.ApplicationCommand,
		i.ApplicationCommandData().Options,
	)
	if err != nil {
		var optErr *OptionError
		if errors.As(err, &optErr) {
			logger.WarnContext(ctx, "option validation failed", tint.Err(err))
			b.respondEphemeral(ctx, i, optErr.Message)
			return
		}
		logger.ErrorContext(ctx, "error validating options", tint.Err(err))
		b.respondEphemeral(ctx, i, b.RuntimeConfig().DiscordErrorMessage)
		return
	}

	if ackErr := b.discord.session.InteractionRespond(
		i.Interaction,
		b.discord.ackResponse(false),
	); ackErr != nil {
		logger.ErrorContext(ctx, "error acknowledging interaction", tint.Err(ackErr))
		return
	}

	handlerCtx, cancel := context.WithTimeout(ctx, discordInteractionTokenLifespan)
	defer cancel()

	response, handlerErr := cmd.Handler(handlerCtx, b, i, optionMap)
	b.metricCommandsHandled.Add(1)

	if handlerErr != nil {
		b.metricCommandErrors.Add(1)
		content := b.RuntimeConfig().DiscordErrorMessage

		var optErr *OptionError
		if errors.As(handlerErr, &optErr) {
			content = optErr.Message
		} else {
			logger.ErrorContext(
				ctx,
				"command failed",
				"command", commandName,
				tint.Err(handlerErr),
			)
		}
		if interactionLog != nil {
			interactionLog.Error = NullableString(handlerErr.Error())
		}
		b.editResponse(ctx, i, &Response{Content: content})
		return
	}

	if response == nil {
		logger.WarnContext(ctx, "handler returned no response", "command", commandName)
		response = &Response{Content: b.RuntimeConfig().DiscordErrorMessage}
	}
	if interactionLog != nil {
		interactionLog.Response = truncate(response.Content, discordMaxMessageLength)
	}
	b.editResponse(ctx, i, response)
}

// respondEphemeral sends an immediate ephemeral message for an
// interaction that has not been acknowledged yet.
func (b *Bot) respondEphemeral(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	content string,
) {
	logger, _ := ContextLogger(ctx)
	if logger == nil {
		logger = b.logger
	}
	err := b.discord.session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		},
	)
	if err != nil {
		logger.ErrorContext(ctx, "error sending ephemeral response", tint.Err(err))
	}
}

// editResponse applies the handler's response as an edit of the
// deferred interaction response.
func (b *Bot) editResponse(
	ctx context.Context,
	i *discordgo.InteractionCreate,
	response *Response,
) {
	logger, _ := ContextLogger(ctx)
	if logger == nil {
		logger = b.logger
	}
	content := truncate(response.Content, discordMaxMessageLength)
	edit := &discordgo.WebhookEdit{Content: &content}
	if len(response.Embeds) > 0 {
		edit.Embeds = &response.Embeds
	}
	if _, err := b.discord.session.InteractionResponseEdit(
		i.Interaction,
		edit,
	); err != nil {
		logger.ErrorContext(ctx, "error editing interaction response", tint.Err(err))
	}
}

// shutdown waits for in-flight handlers to finish, bounded by
// Config.ShutdownTimeout, announcing progress every 10 seconds.
func (b *Bot) shutdown(runtimeWG *sync.WaitGroup) error {
	b.logger.Warn("shutting down")
	shutdownStart := time.Now()
	shutdownDeadline := shutdownStart.Add(b.config.ShutdownTimeout)

	if b.discord.session != nil {
		for _, removeHandler := range b.discord.discordgoRemoveHandlerFuncs {
			removeHandler()
		}
		if err := b.discord.session.Close(); err != nil {
			b.logger.Error("error closing discord session", tint.Err(err))
		}
	}

	if b.scheduler != nil {
		if err := b.scheduler.Shutdown(); err != nil {
			b.logger.Error("error stopping scheduler", tint.Err(err))
		}
	}

	announcementTicker := time.NewTicker(10 * time.Second)
	defer announcementTicker.Stop()

	doneCh := make(chan struct{}, 1)
	go func() {
		runtimeWG.Wait()
		doneCh <- struct{}{}
	}()

	for {
		select {
		case <-doneCh:
			b.logger.Info(
				"finished handling in-flight requests",
				"shutdown_duration", time.Since(shutdownStart),
			)
			return nil
		case now := <-announcementTicker.C:
			if now.After(shutdownDeadline) {
				return errors.New("shutdown deadline exceeded")
			}
			b.logger.Warn(
				"still waiting on in-flight requests",
				"deadline", shutdownDeadline,
			)
		}
	}
}
