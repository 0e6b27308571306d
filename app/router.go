// Package app wires the dependencies, middleware and endpoints together
package app

import (
	"bitwise74/task-api/app/root"
	"bitwise74/task-api/app/task"
	"bitwise74/task-api/app/user"
	"bitwise74/task-api/aws"
	"bitwise74/task-api/db"
	"bitwise74/task-api/internal"
	"bitwise74/task-api/internal/service"
	"bitwise74/task-api/internal/store"
	"bitwise74/task-api/pkg/middleware"
	"bitwise74/task-api/pkg/security"
	"context"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"

	jsonBodyLimit = 1 << 20
)

// Options are the router settings that aren't dependencies
type Options struct {
	CORSOrigins    []string
	RateLimit      int
	Turnstile      middleware.TurnstileConfig
	AvatarCacheTTL time.Duration
	// CacheStore backs the response cache, in memory when nil
	CacheStore persist.CacheStore
	Metrics    *middleware.Metrics
}

func OptionsFromConfig(ctx context.Context) (Options, error) {
	o := Options{
		CORSOrigins: viper.GetStringSlice("host.cors_origins"),
		RateLimit:   viper.GetInt("security.rate_limit"),
		Turnstile: middleware.TurnstileConfig{
			Enabled: viper.GetBool("cloudflare.turnstile.enabled"),
			Secret:  viper.GetString("cloudflare.turnstile.secret_token"),
		},
		AvatarCacheTTL: time.Second * time.Duration(viper.GetInt("avatar.cache_ttl")),
	}

	cs, err := NewCacheStore(ctx, viper.GetString("redis.url"))
	if err != nil {
		return o, fmt.Errorf("failed to initialize response cache, %w", err)
	}
	o.CacheStore = cs

	if viper.GetBool("metrics.enabled") {
		o.Metrics = middleware.NewMetrics()
	}

	return o, nil
}

// NewDeps opens the database and builds every dependency from the loaded config
func NewDeps(ctx context.Context) (*internal.Deps, error) {
	gdb, err := db.New(viper.GetString("database.driver"), viper.GetString("database.dsn"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	hasher := security.NewWithParams(
		viper.GetUint32("security.hash_memory"),
		viper.GetUint32("security.hash_iterations"),
		uint8(viper.GetUint("security.hash_parallelism")),
	)

	issuer, err := security.NewTokenIssuer(viper.GetString("jwt.secret"))
	if err != nil {
		return nil, err
	}

	s := store.New(gdb, hasher)

	d := &internal.Deps{
		DB:       gdb,
		Store:    s,
		Sessions: service.NewSessions(s, issuer),
		Mailer:   service.LogMailer{},
		Avatars:  &service.DBAvatarStore{Store: s},
		AvatarPolicy: service.AvatarPolicy{
			MaxSize:              viper.GetInt64("avatar.max_size"),
			Dimension:            viper.GetInt("avatar.dimension"),
			CorruptIsClientError: viper.GetBool("avatar.corrupt_is_client_error"),
		},
	}

	if viper.GetBool("mail.enabled") {
		d.Mailer = service.NewSMTPMailer(
			viper.GetString("mail.host"),
			viper.GetInt("mail.port"),
			viper.GetString("mail.username"),
			viper.GetString("mail.password"),
			viper.GetString("mail.sender"),
		)
	}

	if viper.GetString("avatar.storage") == "s3" {
		c, err := aws.NewS3(ctx, aws.S3Config{
			AccessKey:       viper.GetString("aws.access_key"),
			SecretAccessKey: viper.GetString("aws.secret_access_key"),
			Region:          viper.GetString("aws.region"),
			Bucket:          viper.GetString("aws.bucket"),
			Endpoint:        viper.GetString("aws.endpoint"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}

		d.Avatars = service.NewS3AvatarStore(c)
	}

	return d, nil
}

// NewEngine registers the middleware and every endpoint. Background work
// started here stops with ctx.
func NewEngine(ctx context.Context, d *internal.Deps, o Options) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     o.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		ginzap.RecoveryWithZap(zap.L(), true),
	)

	if o.RateLimit > 0 {
		rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: o.RateLimit,
			Burst:             o.RateLimit * 2,
		})
		go rl.Run(ctx.Done())

		router.Use(rl.Middleware())
	}

	if o.Metrics != nil {
		router.Use(o.Metrics.Middleware())

		// GET /metrics			-> Prometheus metrics
		router.GET("/metrics", o.Metrics.Handler())
	}

	if o.CacheStore == nil {
		o.CacheStore = persist.NewMemoryStore(time.Minute)
	}
	d.AvatarCache = o.CacheStore

	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 2 << 20

	auth := middleware.NewAuthMiddleware(d.Sessions)
	turnstile := middleware.NewTurnstileMiddleware(o.Turnstile)
	jsonLimit := middleware.BodySizeLimiter(jsonBodyLimit)
	// Leave room for the multipart envelope around the image
	avatarLimit := middleware.BodySizeLimiter(d.AvatarPolicy.MaxSize + 64<<10)

	// HEAD /heartbeat		-> Used to check if the server is alive
	router.HEAD("/heartbeat", root.Heartbeat)

	// GET /validate		-> Validates a bearer token
	router.GET("/validate", auth, root.Validate)

	u := router.Group("/users")
	{
		// POST /users			-> Registers a new user and returns a token
		u.POST("", jsonLimit, turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /users/login		-> Logs in a user and returns a new token
		u.POST("/login", jsonLimit, turnstile, func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /users/logout		-> Revokes the token of the request
		u.POST("/logout", auth, func(c *gin.Context) { user.UserLogout(c, d) })

		// POST /users/logoutAll	-> Revokes every token of the user
		u.POST("/logoutAll", auth, func(c *gin.Context) { user.UserLogoutAll(c, d) })

		// GET /users/me		-> Returns the profile of the user
		u.GET("/me", auth, user.UserMe)

		// PATCH /users/me		-> Updates name, email, password or age
		u.PATCH("/me", auth, jsonLimit, func(c *gin.Context) { user.UserUpdate(c, d) })

		// DELETE /users/me		-> Deletes the user and everything it owns
		u.DELETE("/me", auth, func(c *gin.Context) { user.UserDelete(c, d) })

		// POST /users/me/avatar	-> Uploads a jpg or png avatar
		u.POST("/me/avatar", auth, avatarLimit, func(c *gin.Context) { user.AvatarUpload(c, d) })

		// DELETE /users/me/avatar	-> Removes the avatar
		u.DELETE("/me/avatar", auth, func(c *gin.Context) { user.AvatarDelete(c, d) })

		// GET /users/:id/avatar	-> Serves the avatar of any user as png
		u.GET("/:id/avatar", cacheFor(o.CacheStore, o.AvatarCacheTTL), func(c *gin.Context) { user.AvatarFetch(c, d) })
	}

	t := router.Group("/tasks", auth)
	{
		// POST /tasks			-> Creates a task owned by the user
		t.POST("", jsonLimit, func(c *gin.Context) { task.TaskCreate(c, d) })

		// GET /tasks			-> Lists, filters, sorts and pages the user's tasks
		t.GET("", func(c *gin.Context) { task.TaskList(c, d) })

		// GET /tasks/:id		-> Returns a task if the user owns it
		t.GET("/:id", func(c *gin.Context) { task.TaskFetch(c, d) })

		// PATCH /tasks/:id		-> Updates description or completed
		t.PATCH("/:id", jsonLimit, func(c *gin.Context) { task.TaskUpdate(c, d) })

		// DELETE /tasks/:id		-> Deletes a task owned by the user
		t.DELETE("/:id", func(c *gin.Context) { task.TaskDelete(c, d) })
	}

	return router
}

// NewRouter builds the engine from the loaded config and starts the
// background jobs. They stop when ctx is done.
func NewRouter(ctx context.Context) (*gin.Engine, error) {
	d, err := NewDeps(ctx)
	if err != nil {
		return nil, err
	}

	o, err := OptionsFromConfig(ctx)
	if err != nil {
		return nil, err
	}

	// With redis available mail goes through a retrying queue instead of
	// being sent from the request goroutine
	if url := viper.GetString("redis.url"); url != "" && viper.GetBool("mail.enabled") {
		opt, err := asynq.ParseRedisURI(url)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url, %w", err)
		}

		worker, err := service.StartMailWorker(opt, d.Mailer)
		if err != nil {
			return nil, err
		}

		client := asynq.NewClient(opt)
		d.Mailer = &service.QueueMailer{Client: client}

		go func() {
			<-ctx.Done()
			worker.Shutdown()
			client.Close()
		}()
	}

	// Tasks and tokens outliving their user are swept up periodically
	sched, err := service.OrphanCleanup(viper.GetString("cleanup.schedule"), d.Store)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		sched.Stop()
	}()

	return NewEngine(ctx, d, o), nil
}

// MakeLogger replaces the global zap logger
func MakeLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level, %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger, %w", err)
	}

	zap.ReplaceGlobals(log)
	return nil
}

// cacheFor caches successful responses for ttl. A zero ttl disables caching.
func cacheFor(store persist.CacheStore, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return cache.CacheByRequestPath(store, ttl)
}
