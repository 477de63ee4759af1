package slashbot

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
)

const (
	apiPrefix        = "/api"
	apiHealthCheck   = "/api/health"
	apiPathStatus    = "/status"
	apiPathPause     = "/pause"
	apiPathResume    = "/resume"
	apiPathReminders = "/reminders"
	apiPathQuit      = "/quit"
	xRequestIDHeader = "X-Request-ID"
)

// API is the backend status/admin HTTP server. The health and status
// endpoints are public; pause/resume/quit require basic auth checked
// against the configured argon2id hash.
type API struct {
	config     *APIConfig
	httpServer *http.Server
	listener   net.Listener
	engine     *gin.Engine
	logger     *slog.Logger
	bot        *Bot
}

func newAPI(b *Bot, config *APIConfig) (*API, error) {
	setupLogger := slog.New(
		tint.NewHandler(
			os.Stdout, &tint.Options{
				Level:     config.LogLevel,
				AddSource: true,
			},
		),
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	api := &API{
		config: config,
		engine: r,
		bot:    b,
		logger: setupLogger.With(loggerNameKey, "api"),
	}

	httpServer := &http.Server{
		Addr:              config.Listen,
		Handler:           r,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	api.httpServer = httpServer

	corsConfig := cors.DefaultConfig()
	if len(config.CORS.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = config.CORS.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	if len(config.CORS.AllowMethods) > 0 {
		corsConfig.AllowMethods = config.CORS.AllowMethods
	}
	if len(config.CORS.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = config.CORS.AllowHeaders
	}
	if config.CORS.MaxAge > 0 {
		corsConfig.MaxAge = config.CORS.MaxAge
	}

	r.Use(
		gin.Recovery(),
		api.loggingMiddleware(),
		cors.New(corsConfig),
	)

	r.GET(apiHealthCheck, api.healthCheck)

	protected := r.Group(apiPrefix)
	protected.Use(api.authMiddleware())

	protected.GET(apiPathStatus, api.getStatus)
	protected.GET(apiPathReminders, api.getReminders)
	protected.POST(apiPathPause, api.pause)
	protected.POST(apiPathResume, api.resume)
	protected.POST(apiPathQuit, api.quit)

	return api, nil
}

func (a *API) Serve(ctx context.Context) error {
	if a.listener == nil {
		listenCfg := &net.ListenConfig{}
		ln, err := listenCfg.Listen(ctx, a.config.ListenNetwork, a.config.Listen)
		if err != nil {
			return err
		}
		a.listener = ln
	}
	a.logger.Info("api listening", "addr", a.config.Listen)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()
		_ = a.httpServer.Shutdown(shutdownCtx)
	}()

	return a.httpServer.Serve(a.listener)
}

func (a *API) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.logger.Info(
			"request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"client_ip", c.ClientIP(),
			xRequestIDHeader, c.GetHeader(xRequestIDHeader),
		)
	}
}

// authMiddleware validates basic auth credentials against the
// configured argon2id admin password hash.
func (a *API) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.config.AdminUsername == "" || a.config.AdminPasswordHash == "" {
			c.AbortWithStatusJSON(
				http.StatusForbidden,
				gin.H{"error": "admin credentials not configured"},
			)
			return
		}
		username, password, ok := c.Request.BasicAuth()
		if !ok || username != a.config.AdminUsername {
			c.Header("WWW-Authenticate", `Basic realm="slashbot"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		valid, err := verifyPassword(a.config.AdminPasswordHash, password)
		if err != nil {
			a.logger.Error("error verifying password", tint.Err(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if !valid {
			c.Header("WWW-Authenticate", `Basic realm="slashbot"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func (a *API) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type apiStatusResponse struct {
	StartedAt        time.Time `json:"started_at"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
	Paused           bool      `json:"paused"`
	Connected        bool      `json:"connected"`
	Commands         int       `json:"commands"`
	CommandsHandled  int64     `json:"commands_handled"`
	CommandErrors    int64     `json:"command_errors"`
	QueueDepth       int       `json:"queue_depth"`
	GatewayConnects  int64     `json:"gateway_connects"`
	MessagesObserved int64     `json:"messages_observed"`
}

func (a *API) getStatus(c *gin.Context) {
	b := a.bot
	c.JSON(http.StatusOK, apiStatusResponse{
		StartedAt:        b.startedAt,
		UptimeSeconds:    time.Since(b.startedAt).Seconds(),
		Paused:           b.paused.Load(),
		Connected:        b.discord.connected.Load(),
		Commands:         b.registry.Len(),
		CommandsHandled:  b.metricCommandsHandled.Load(),
		CommandErrors:    b.metricCommandErrors.Load(),
		QueueDepth:       b.queue.Len(),
		GatewayConnects:  b.discord.metricConnects.Load(),
		MessagesObserved: b.discord.metricMessagesSeen.Load(),
	})
}

func (a *API) getReminders(c *gin.Context) {
	reminders, err := PendingReminders(a.bot.db, c.Query("user_id"))
	if err != nil {
		a.logger.Error("error listing reminders", tint.Err(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

func (a *API) pause(c *gin.Context) {
	if a.bot.Pause(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"paused": true})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"error": "already paused"})
}

func (a *API) resume(c *gin.Context) {
	if a.bot.Resume(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"paused": false})
		return
	}
	c.JSON(http.StatusConflict, gin.H{"error": "not paused"})
}

func (a *API) quit(c *gin.Context) {
	a.logger.Warn("quit requested via api")
	c.JSON(http.StatusOK, gin.H{"stopping": true})
	a.bot.Stop()
}
