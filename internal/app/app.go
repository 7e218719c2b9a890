package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quebec-alerts/alerts-api/internal/cache"
	"github.com/quebec-alerts/alerts-api/internal/config"
	"github.com/quebec-alerts/alerts-api/internal/emailer"
	adminHandler "github.com/quebec-alerts/alerts-api/internal/handlers/admin"
	scheduleHandler "github.com/quebec-alerts/alerts-api/internal/handlers/schedule"
	statusHandler "github.com/quebec-alerts/alerts-api/internal/handlers/status"
	subscriptionHandler "github.com/quebec-alerts/alerts-api/internal/handlers/subscription"
	"github.com/quebec-alerts/alerts-api/internal/metrics"
	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/notifier"
	"github.com/quebec-alerts/alerts-api/internal/repository/sqlite"
	"github.com/quebec-alerts/alerts-api/internal/services/email"
	"github.com/quebec-alerts/alerts-api/internal/services/logger"
	"github.com/quebec-alerts/alerts-api/internal/services/schedule"
	"github.com/quebec-alerts/alerts-api/internal/services/snow"
	"github.com/quebec-alerts/alerts-api/internal/services/subscriptions"

	_ "modernc.org/sqlite"
)

const (
	timeoutDuration = 5 * time.Second

	fileMode = 0o644

	metricsNamespace = "alerts_api"
)

type App struct {
	cfg config.Config
	log *log.Logger
}

type ServiceContainer struct {
	ScheduleService     *schedule.Service
	SnowService         *snow.Service
	SubscriptionService *subscriptions.Service
	EmailService        *email.Service
	Notificator         *notifier.Notifier
	Metrics             *metrics.Metrics

	Router *gin.Engine
	Srv    *http.Server
	Db     *sql.DB

	fileLogger *zap.Logger
}

func New(cfg config.Config, logger *log.Logger) *App {
	return &App{
		cfg: cfg,
		log: logger,
	}
}

func (a *App) Init() ServiceContainer {
	a.log.Println("Initializing application")

	db, err := CreateSqliteDb("sqlite", a.cfg.DB.Source)
	if err != nil {
		a.log.Panic(err)
	}

	if err := InitSqliteDb(db, a.cfg.DB.Dialect, a.cfg.DB.MigrationsPath); err != nil {
		a.log.Panic(err)
	}

	m := metrics.NewMetrics(metricsNamespace, db, a.cfg.DB.Source)

	router := gin.Default()
	router.Use(m.HTTPMiddleware())

	apiServer := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	fileLogger, err := newFileLogger(a.cfg.LogsPath)
	if err != nil {
		a.log.Panicf("failed to create file logger: %v", err)
	}

	httpLogClient := &http.Client{
		Transport: logger.NewRoundTripper(fileLogger),
		Timeout:   30 * time.Second,
	}

	subscriberRepo := sqlite.NewSubscriberRepository(db, a.log)
	zoneRepo := sqlite.NewZoneRepository(db, a.log)
	reminderRepo := sqlite.NewReminderRepository(db, a.log)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Address,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	scheduleCache := cache.NewMetricsDecorator[models.RawSchedule](
		cache.NewRedisClient[models.RawSchedule](redisClient, a.log),
		m,
	)

	infoCollecteClient := schedule.NewInfoCollecteClient(
		a.cfg.Scraper.URL,
		httpLogClient,
		a.log,
		a.cfg.Scraper.RateInterval(),
	)
	breakerFetcher := schedule.NewBreakerFetcher("info-collecte", infoCollecteClient)
	cachedFetcher := schedule.NewCachedFetcher(
		schedule.NewInstrumentedFetcher(breakerFetcher, m),
		scheduleCache,
		a.log,
		a.cfg.Scraper.CacheTTL(),
	)
	scheduleService := schedule.NewService(
		zoneRepo,
		cachedFetcher,
		a.cfg.Scraper.CacheTTL(),
		a.log,
		time.Now,
	)

	geocoderClient := snow.NewBreakerClient("arcgis-geocoder", httpLogClient)
	mapClient := snow.NewBreakerClient("deneigement-map", httpLogClient)
	geocoder := snow.NewArcGISGeocoder(a.cfg.Snow.GeocoderURL, geocoderClient, a.log)
	stationClient := snow.NewDeneigementClient(a.cfg.Snow.MapURL, mapClient, a.log)
	snowService := snow.NewService(geocoder, stationClient, a.cfg.Snow.SearchRadiusMeters, a.log)

	smtpService := emailer.NewSMTPService(a.cfg.SMTP)
	emailEnabled := a.cfg.SMTP.Enabled && smtpService != nil
	emailService := email.NewService(smtpService, a.cfg.TemplatesDir, emailEnabled, a.log)

	subscriptionService := subscriptions.NewService(
		subscriberRepo,
		zoneRepo,
		scheduleService,
		geocoder,
		snowService,
		emailService,
		a.log,
		time.Now,
	)

	notificator := notifier.New(
		subscriberRepo,
		zoneRepo,
		reminderRepo,
		emailService,
		snowService,
		a.log,
		m,
		a.cfg.Notifier.WasteCronSpec,
		a.cfg.Notifier.SnowCronSpec,
		time.Now,
	)

	return ServiceContainer{
		ScheduleService:     scheduleService,
		SnowService:         snowService,
		SubscriptionService: subscriptionService,
		EmailService:        emailService,
		Notificator:         notificator,
		Metrics:             m,

		Router: router,
		Srv:    apiServer,
		Db:     db,

		fileLogger: fileLogger,
	}
}

func (a *App) Start(srvContainer ServiceContainer) error {
	a.log.Println("Starting server on", srvContainer.Srv.Addr)

	subHandler := subscriptionHandler.NewHandler(srvContainer.SubscriptionService, a.log, srvContainer.Metrics)
	schedHandler := scheduleHandler.NewHandler(srvContainer.ScheduleService, a.log, time.Now)
	snowHandler := statusHandler.NewHandler(srvContainer.SnowService, a.log)
	sweepHandler := adminHandler.NewHandler(srvContainer.Notificator, a.log, time.Now)

	api := srvContainer.Router.Group("/api")
	{
		api.POST("/subscribe", subHandler.Subscribe)
		api.PUT("/preferences", subHandler.UpdatePreferences)
		api.GET("/subscriber/:email", subHandler.Get)
		api.POST("/unsubscribe", subHandler.Unsubscribe)

		api.GET("/schedule/:postalCode", schedHandler.Get)
		api.GET("/status/:postalCode", snowHandler.Get)

		api.POST("/check-now", sweepHandler.CheckNow)
		api.POST("/run-reminders", sweepHandler.RunReminders)
	}
	srvContainer.Router.GET("/metrics", gin.WrapH(srvContainer.Metrics.Handler()))

	if err := srvContainer.Notificator.Start(context.Background()); err != nil {
		return err
	}

	if err := srvContainer.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (a *App) Stop(srvContainer ServiceContainer) error {
	a.log.Println("Stopping application")

	srvContainer.Notificator.Stop()
	a.log.Println("Notifier stopped")

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()

	if err := srvContainer.Srv.Shutdown(ctx); err != nil {
		a.log.Println("HTTP shutdown error:", err)
	} else {
		a.log.Println("HTTP server stopped")
	}

	if err := srvContainer.Db.Close(); err != nil {
		a.log.Println("DB close error:", err)
	} else {
		a.log.Println("Database closed")
	}

	if err := srvContainer.fileLogger.Sync(); err != nil {
		a.log.Printf("failed to sync file logger: %v", err)
	}

	a.log.Println("Shutdown complete")
	return nil
}

func CreateSqliteDb(driver, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("database name cannot be empty")
	}
	connectionString := "file:" + name + "?cache=shared&mode=rwc"
	db, err := sql.Open(driver, connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func InitSqliteDb(db *sql.DB, dialect, migrationPath string) error {
	log.Println("Initializing migrations:", migrationPath)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	if err := goose.Up(db, migrationPath); err != nil {
		return err
	}

	return nil
}

func newFileLogger(filePath string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(filePath)), 0o755); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(filepath.Clean(filePath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return nil, err
	}

	writer := zapcore.AddSync(file)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		writer,
		zap.InfoLevel,
	)
	return zap.New(core), nil
}
