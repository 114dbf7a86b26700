package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/api/middleware"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository/postgres"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/scheduler"
	schedulerjobs "github.com/Logendranm/wifi-hotspot-system-pro/internal/scheduler/jobs"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/service"
	systemlog "github.com/Logendranm/wifi-hotspot-system-pro/pkg/logger"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		URL         string        `mapstructure:"url"`
		MaxConns    int           `mapstructure:"max_conns"`
		PingTimeout time.Duration `mapstructure:"ping_timeout"`
	} `mapstructure:"database"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
	Security struct {
		InternalToken     string `mapstructure:"internal_token"`
		InternalTokenFile string `mapstructure:"internal_token_file"`
	} `mapstructure:"security"`
	Sessions struct {
		MaxAge time.Duration `mapstructure:"max_age"`
	} `mapstructure:"sessions"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Debug struct {
		PprofEnabled bool `mapstructure:"pprof_enabled"`
	} `mapstructure:"debug"`
}

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "healthcheck":
			os.Exit(runHealthcheck())
		case "migrate":
			if err := runMigrateCommand(); err != nil {
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		case "create-admin":
			if err := runCreateAdminCommand(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, sanitizeCLIError(err))
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	logger, systemLogStore, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	isDebugMode := strings.EqualFold(cfg.App.Env, "development")
	if !isDebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dbPool, err := newDBPool(context.Background(), cfg)
	if err != nil {
		logger.Fatal("connect database failed", zap.Error(err))
	}
	defer dbPool.Close()

	userRepo := postgres.NewUserRepository(dbPool)
	planRepo := postgres.NewPlanRepository(dbPool)
	voucherRepo := postgres.NewVoucherRepository(dbPool)
	sessionRepo := postgres.NewSessionRepository(dbPool)
	paymentRepo := postgres.NewPaymentRepository(dbPool)
	auditRepo := postgres.NewAuditRepository(dbPool)

	jwtPrivateKey, err := loadRSAPrivateKey()
	if err != nil {
		logger.Fatal("load jwt private key failed", zap.Error(err))
	}
	middleware.SetJWTVerifyKey(&jwtPrivateKey.PublicKey)

	voucherSvc := service.NewVoucherService(voucherRepo, planRepo, paymentRepo, auditRepo, dbPool, logger)
	authSvc := service.NewAuthService(userRepo, auditRepo, voucherSvc, dbPool, jwtPrivateKey, logger)
	userSvc := service.NewUserService(userRepo, auditRepo, logger)
	planSvc := service.NewPlanService(planRepo, auditRepo, logger)
	sessionSvc := service.NewSessionService(sessionRepo, userRepo, auditRepo, logger)
	billingSvc := service.NewBillingService(userRepo, planRepo, paymentRepo, auditRepo, dbPool, logger)
	reportSvc := service.NewReportService(dbPool, logger)
	auditSvc := service.NewAuditService(auditRepo, logger)
	systemSvc := service.NewSystemService(dbPool, systemLogStore, logger)

	middleware.SetAuditRepository(auditRepo)

	sessionJob := schedulerjobs.NewSessionJob(sessionSvc, cfg.Sessions.MaxAge, logger)
	tokenJob := schedulerjobs.NewTokenJob(dbPool, logger)

	cronRunner := scheduler.NewScheduler(scheduler.Deps{
		SessionJob: sessionJob,
		TokenJob:   tokenJob,
	}, logger)
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg))
	router.Use(middleware.RequestLogger(logger))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	readyHandler := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Database.PingTimeout)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  "database unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}

	router.GET("/health", healthHandler)
	router.GET("/health/ready", readyHandler)

	internalMetrics := router.Group("/internal")
	internalMetrics.Use(middleware.InternalTokenAuth(cfg.Security.InternalToken))
	internalMetrics.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if isDebugMode && cfg.Debug.PprofEnabled {
		registerPprofRoutes(router)
		logger.Info("pprof endpoint enabled", zap.String("path", "/debug/pprof/"))
	}

	api.RegisterRoutes(router, api.Services{
		Auth:    authSvc,
		User:    userSvc,
		Plan:    planSvc,
		Voucher: voucherSvc,
		Session: sessionSvc,
		Billing: billingSvc,
		Report:  reportSvc,
		Audit:   auditSvc,
		System:  systemSvc,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}

func loadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HOTSPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "HOTSPOT_DATABASE_URL", "DATABASE_URL")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("security.internal_token", "")
	v.SetDefault("security.internal_token_file", "")
	v.SetDefault("sessions.max_age", "24h")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("debug.pprof_enabled", false)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if strings.TrimSpace(cfg.Security.InternalToken) == "" && strings.TrimSpace(cfg.Security.InternalTokenFile) != "" {
		// #nosec G304 -- path is provided by operator config.
		raw, err := os.ReadFile(strings.TrimSpace(cfg.Security.InternalTokenFile))
		if err != nil {
			return Config{}, fmt.Errorf("read security.internal_token_file failed: %w", err)
		}
		cfg.Security.InternalToken = strings.TrimSpace(string(raw))
	}

	if cfg.Database.URL == "" {
		return Config{}, errors.New("database.url is required")
	}
	if cfg.Database.MaxConns <= 0 {
		return Config{}, errors.New("database.max_conns must be greater than 0")
	}
	if cfg.Database.PingTimeout <= 0 {
		return Config{}, errors.New("database.ping_timeout must be greater than 0")
	}
	if cfg.Sessions.MaxAge <= 0 {
		return Config{}, errors.New("sessions.max_age must be greater than 0")
	}

	if len(cfg.CORS.AllowOrigins) == 0 {
		return Config{}, errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return Config{}, errors.New("cors.allow_origins must not contain wildcard *")
		}
	}

	return cfg, nil
}

func newLogger(cfg Config) (*zap.Logger, *systemlog.SystemLogStore, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.App.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}
	if cfg.Log.Encoding != "" {
		zapCfg.Encoding = cfg.Log.Encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger failed: %w", err)
	}

	logStore := systemlog.NewSystemLogStore(1000)
	logger = systemlog.WrapZapLogger(logger, logStore)
	return logger, logStore, nil
}

func newDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database.url failed: %w", err)
	}

	const maxInt32 = int(^uint32(0) >> 1)
	if cfg.Database.MaxConns > maxInt32 {
		return nil, fmt.Errorf("database.max_conns must be <= %d", maxInt32)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns) // #nosec G115 -- validated upper bound above.

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.PingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	return pool, nil
}

func buildCORSMiddleware(cfg Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func registerPprofRoutes(router *gin.Engine) {
	pprofGroup := router.Group("/debug/pprof")
	pprofGroup.GET("/", gin.WrapF(pprof.Index))
	pprofGroup.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	pprofGroup.GET("/profile", gin.WrapF(pprof.Profile))
	pprofGroup.GET("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.POST("/symbol", gin.WrapF(pprof.Symbol))
	pprofGroup.GET("/trace", gin.WrapF(pprof.Trace))
	pprofGroup.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
	pprofGroup.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
	pprofGroup.GET("/heap", gin.WrapH(pprof.Handler("heap")))
}

func loadRSAPrivateKey() (*rsa.PrivateKey, error) {
	pem := strings.TrimSpace(os.Getenv("HOTSPOT_JWT_PRIVATE_KEY"))
	if pem == "" {
		path := strings.TrimSpace(os.Getenv("HOTSPOT_JWT_PRIVATE_KEY_FILE"))
		if path != "" {
			// #nosec G304 -- path is provided by operator environment variable.
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			pem = string(raw)
		}
	}
	if pem == "" {
		return nil, errors.New("jwt private key not configured")
	}
	return jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
}

func runMigrateCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	migrationDir := "/migrations"
	if _, statErr := os.Stat(migrationDir); statErr != nil {
		migrationDir = "./migrations"
	}

	migrator, err := migrate.New("file://"+migrationDir, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer migrator.Close() //nolint:errcheck

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations failed: %w", err)
	}

	fmt.Println("migrations applied successfully")
	return nil
}

func runCreateAdminCommand(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var username string
	var password string
	var email string

	fs.StringVar(&username, "username", "admin", "admin username")
	fs.StringVar(&password, "password", "", "admin password")
	fs.StringVar(&email, "email", "", "admin email")

	if err := fs.Parse(args); err != nil {
		return err
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return errors.New("username is required")
	}
	if !isStrongPassword(password) {
		return errors.New("password must be >=12 chars and include upper/lowercase letters and digits")
	}
	if email == "" {
		email = username + "@hotspot.local"
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database config failed: %w", err)
	}
	poolCfg.MaxConns = 2

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect database failed: %w", err)
	}
	defer pool.Close()

	var existingID string
	err = pool.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&existingID)
	if err == nil {
		fmt.Printf("admin user '%s' already exists, skip\n", username)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("query admin user failed: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}

	_, err = pool.Exec(
		ctx,
		`INSERT INTO users (
			id, username, email, password_hash, role, status,
			data_balance, time_balance, created_at, updated_at
		) VALUES (
			gen_random_uuid(), $1, $2, $3, 'admin', 'active',
			0, 0, NOW(), NOW()
		)`,
		username,
		email,
		string(hashed),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			fmt.Printf("admin user '%s' already exists, skip\n", username)
			return nil
		}
		return fmt.Errorf("create admin failed: %w", err)
	}

	fmt.Printf("admin user '%s' created successfully\n", username)
	return nil
}

func isStrongPassword(password string) bool {
	if len(password) < 12 {
		return false
	}
	hasLower := regexp.MustCompile(`[a-z]`).MatchString(password)
	hasUpper := regexp.MustCompile(`[A-Z]`).MatchString(password)
	hasDigit := regexp.MustCompile(`[0-9]`).MatchString(password)
	return hasLower && hasUpper && hasDigit
}

func runHealthcheck() int {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health/ready")
	if err != nil {
		return 1
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func sanitizeCLIError(err error) string {
	if err == nil {
		return ""
	}

	text := strings.ReplaceAll(err.Error(), "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}
