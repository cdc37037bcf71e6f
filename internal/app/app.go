package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/HireLedger/internal/billing"
	"github.com/router-for-me/HireLedger/internal/config"
	"github.com/router-for-me/HireLedger/internal/db"
	"github.com/router-for-me/HireLedger/internal/gateway"
	"github.com/router-for-me/HireLedger/internal/http/api/admin"
	"github.com/router-for-me/HireLedger/internal/http/api/callback"
	"github.com/router-for-me/HireLedger/internal/http/api/front"
	"github.com/router-for-me/HireLedger/internal/logging"
	"github.com/router-for-me/HireLedger/internal/payment"
	"github.com/router-for-me/HireLedger/internal/ratelimit"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := openDatabase(dsn)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Info("migrations applied")
	return nil
}

// deps holds the wired services behind the HTTP surface.
type deps struct {
	conn      *gorm.DB
	jwt       config.JWTConfig
	gateway   config.GatewayConfig
	limiter   *ratelimit.Manager
	ipLimiter *ratelimit.IPLimiter
	engine    *billing.Engine
	catalog   *billing.Catalog
	guard     *billing.Guard
	ledger    *billing.Ledger
	orders    *payment.Orchestrator
}

// RunServer boots the ledger API. portOverride, when positive, wins over the
// config file and PORT env.
func RunServer(ctx context.Context, cfg config.AppConfig, portOverride int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	serverCfg, err := config.LoadServerConfig(configPath, config.DefaultPort)
	if err != nil {
		return err
	}
	if portOverride > 0 {
		serverCfg.Port = portOverride
	}
	logCloser, err := logging.Setup(logging.Options{
		Debug:         serverCfg.Debug,
		LoggingToFile: serverCfg.LoggingToFile,
		LogDir:        serverCfg.LogDir,
	})
	if err != nil {
		return err
	}
	defer closeQuietly(logCloser)

	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := openDatabase(dsn)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	adminCreds, _ := config.LoadBootstrapAdmin(configPath)
	if _, errBootstrap := EnsureBootstrapAdmin(conn, adminCreds); errBootstrap != nil {
		return errBootstrap
	}

	jwtCfg, _ := config.LoadJWTConfig(configPath)
	if strings.TrimSpace(jwtCfg.Secret) == "" {
		return fmt.Errorf("missing jwt secret (set `jwt.secret` or %s)", config.EnvJWTSecret)
	}

	gatewayCfg, errGateway := config.LoadGatewayConfig(configPath)
	if errors.Is(errGateway, config.ErrMissingGatewayCredentials) {
		log.WithError(errGateway).Warn("payment gateway not configured; order creation will fail")
	} else if errGateway != nil {
		return errGateway
	}

	rateCfg, _ := config.LoadRateLimitConfig(configPath)
	limiter := ratelimit.NewManager(ratelimit.StaticSettings(ratelimit.SettingsConfig{
		Limit:         rateCfg.Limit,
		RedisEnabled:  rateCfg.Redis.Enabled,
		RedisAddr:     rateCfg.Redis.Addr,
		RedisPassword: rateCfg.Redis.Password,
		RedisDB:       rateCfg.Redis.DB,
		RedisPrefix:   rateCfg.Redis.Prefix,
	}), nil, nil)
	defer closeQuietly(limiter)

	d := newDeps(conn, jwtCfg, gatewayCfg, limiter, ratelimit.NewIPLimiter(rateCfg.CallbackPerSecond, rateCfg.CallbackBurst))

	sweeperCfg, _ := config.LoadSweeperConfig(configPath)
	if sweeperCfg.Enabled {
		sweeper := payment.NewSweeper(conn, sweeperCfg.Schedule, sweeperCfg.Grace)
		if errStart := sweeper.Start(ctx); errStart != nil {
			return errStart
		}
	}

	if serverCfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", serverCfg.Port),
		Handler:           newRouter(d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.WithFields(log.Fields{
		"addr":   srv.Addr,
		"config": configPath,
	}).Info("starting ledger server")
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	log.Info("ledger server stopped")
	return nil
}

func newDeps(conn *gorm.DB, jwtCfg config.JWTConfig, gatewayCfg config.GatewayConfig, limiter *ratelimit.Manager, ipLimiter *ratelimit.IPLimiter) *deps {
	client := gateway.NewClient(gateway.Config{
		TmnCode:    gatewayCfg.TmnCode,
		HashSecret: gatewayCfg.HashSecret,
		PayURL:     gatewayCfg.PayURL,
		ReturnURL:  gatewayCfg.ReturnURL,
	})
	engine := billing.NewEngine(conn)
	catalog := billing.NewCatalog(conn)
	return &deps{
		conn:      conn,
		jwt:       jwtCfg,
		gateway:   gatewayCfg,
		limiter:   limiter,
		ipLimiter: ipLimiter,
		engine:    engine,
		catalog:   catalog,
		guard:     billing.NewGuard(conn),
		ledger:    billing.NewLedger(conn),
		orders:    payment.NewOrchestrator(conn, client, engine, catalog, gatewayCfg.OrderTTL),
	}
}

// newRouter registers every route group on a fresh engine.
func newRouter(d *deps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())
	engine.Use(corsMiddleware())

	admin.RegisterAdminRoutes(engine, d.conn, d.jwt, admin.Services{
		Engine:  d.engine,
		Catalog: d.catalog,
		Ledger:  d.ledger,
	})
	front.RegisterFrontRoutes(engine, d.conn, d.jwt, front.Services{
		Catalog: d.catalog,
		Guard:   d.guard,
		Ledger:  d.ledger,
		Orders:  d.orders,
		Limiter: d.limiter,
	})
	callback.RegisterPaymentRoutes(engine, d.orders, d.ipLimiter, d.gateway.FrontendResultURL)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

func openDatabase(dsn string) (*gorm.DB, error) {
	if info, errDescribe := db.DescribeDSN(dsn); errDescribe == nil {
		log.WithField("database", info.String()).Info("opening database")
	} else {
		return nil, fmt.Errorf("invalid database dsn: %w", errDescribe)
	}
	return db.Open(dsn)
}

func closeDatabase(conn *gorm.DB) {
	if conn == nil {
		return
	}
	if sqlDB, errDB := conn.DB(); errDB == nil {
		closeQuietly(sqlDB)
	}
}

func closeQuietly(c io.Closer) {
	if c == nil {
		return
	}
	if errClose := c.Close(); errClose != nil {
		log.WithError(errClose).Warn("close failed")
	}
}
