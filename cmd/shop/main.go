package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	cartapp "github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/persistence/cartfile"
	"github.com/storefront/backend/internal/infrastructure/storefront"
	"github.com/storefront/backend/internal/interfaces/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logCfg := logger.CLIConfig()
	if cfg.Log.Level == "debug" {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openCartRepository(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open cart storage", zap.String("storage", cfg.Cart.Storage), zap.Error(err))
		return 1
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Warn("Error closing cart storage", zap.Error(err))
		}
	}()

	store, err := cartapp.NewStore(ctx, repo,
		cartapp.WithStorageKey(cfg.Cart.Key),
		cartapp.WithLogger(log),
	)
	if err != nil {
		log.Error("Failed to load cart", zap.Error(err))
		return 1
	}

	client, err := storefront.NewClient(storefront.Config{
		BaseURL: cfg.Checkout.APIBaseURL,
		Timeout: cfg.Checkout.Timeout,
		Token:   cfg.Checkout.Token,
		Logger:  log,
	})
	if err != nil {
		log.Error("Invalid checkout API configuration", zap.Error(err))
		return 1
	}

	currency, err := valueobject.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		log.Error("Invalid checkout currency", zap.Error(err))
		return 1
	}

	appCfg := cli.Config{
		Cart:     store,
		Placer:   client,
		Payments: client,
		UserID:   tokenUser(cfg, log),
		Currency: currency,
		Language: displayLanguage(),
		Logger:   log,
	}
	if jwtService := auth.NewJWTService(cfg.JWT); jwtService.Enabled() {
		appCfg.Tokens = jwtService
	}

	if err := cli.New(appCfg).Run(ctx, os.Args[1:]); err != nil {
		// Without arguments the usage text is the whole answer.
		if len(os.Args) > 1 {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

// openCartRepository selects the snapshot repository for cart.storage.
func openCartRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (cart.SnapshotRepository, func() error, error) {
	switch cfg.Cart.Storage {
	case "file":
		log.Debug("Using file cart storage", zap.String("path", cfg.Cart.Path))
		return cartfile.New(cfg.Cart.Path), func() error { return nil }, nil

	case "sqlite":
		path := cfg.Cart.Path
		if filepath.Ext(path) == ".json" {
			path = strings.TrimSuffix(path, ".json") + ".db"
		}
		db, err := persistence.NewDatabaseWithLogger(&config.DatabaseConfig{Driver: "sqlite", Path: path},
			logger.NewGormLogger(log, logger.MapGormLogLevel("warn")))
		if err != nil {
			return nil, nil, err
		}
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Debug("Using sqlite cart storage", zap.String("path", path))
		return persistence.NewGormCartSnapshotRepository(db.DB), db.Close, nil

	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Debug("Using redis cart storage", zap.String("addr", cfg.Redis.Addr()))
		return cache.NewRedisCartSnapshotRepository(client, "", cfg.Cart.RedisTTL), client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cart storage %q (file, sqlite, redis)", cfg.Cart.Storage)
	}
}

// tokenUser reads the user id from the configured checkout token when the
// signing secret is available locally. The API re-validates the token.
func tokenUser(cfg *config.Config, log *zap.Logger) string {
	if cfg.Checkout.Token == "" {
		return ""
	}
	jwtService := auth.NewJWTService(cfg.JWT)
	if !jwtService.Enabled() {
		return ""
	}
	claims, err := jwtService.ValidateAccessToken(cfg.Checkout.Token)
	if err != nil {
		log.Warn("Checkout token is not valid for this server", zap.Error(err))
		return ""
	}
	return claims.UserID
}

// displayLanguage picks the locale for money formatting from LANG.
func displayLanguage() language.Tag {
	lang := os.Getenv("LANG")
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil || lang == "" || lang == "C" || lang == "POSIX" {
		return language.English
	}
	return tag
}
