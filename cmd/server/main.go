package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-account-service/accounts"
	"github.com/jrsteele09/go-account-service/accounts/postgres"
	fakeaccountrepo "github.com/jrsteele09/go-account-service/accounts/repofake"
	"github.com/jrsteele09/go-account-service/auth"
	"github.com/jrsteele09/go-account-service/internal/config"
	"github.com/jrsteele09/go-account-service/internal/ratelimit"
	"github.com/jrsteele09/go-account-service/media"
	"github.com/jrsteele09/go-account-service/media/mediafake"
	"github.com/jrsteele09/go-account-service/media/s3store"
	"github.com/jrsteele09/go-account-service/password"
	"github.com/jrsteele09/go-account-service/server"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const revokedCacheCleanupInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	setupLogger(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accountRepo, closeRepo, err := openAccountRepo(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepo()

	mediaStore, err := openMediaStore(ctx, c)
	if err != nil {
		return err
	}

	issuer, err := token.NewIssuer(c)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}
	hasher := password.NewHasher(password.WithCost(c.GetBcryptCost()), password.WithWorkers(c.GetHashWorkers()))

	options := []auth.AccountServiceOption{auth.WithStoreTimeout(c.GetStoreTimeout())}
	redisOptions, closeRedis, err := redisBackedOptions(ctx, c)
	if err != nil {
		return err
	}
	defer closeRedis()
	options = append(options, redisOptions...)

	accountService, err := auth.NewAccountService(auth.Repos{Accounts: accountRepo, Media: mediaStore}, hasher, issuer, options...)
	if err != nil {
		return err
	}

	handler, err := server.New(c, accountService)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func setupLogger(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openAccountRepo(ctx context.Context, c config.Config) (accounts.Repo, func(), error) {
	if c.GetStoreDriver() != config.StoreDriverPostgres {
		log.Warn().Msg("Using in-memory account store; accounts are lost on restart")
		return fakeaccountrepo.NewFakeAccountRepo(), func() {}, nil
	}

	db, err := postgres.Open(ctx, c.GetDatabaseURL())
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Err(err).Msg("Closing database")
		}
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		closeDB()
		return nil, nil, err
	}
	return postgres.NewAccountRepo(db), closeDB, nil
}

func openMediaStore(ctx context.Context, c config.Config) (media.Store, error) {
	if c.GetMediaDriver() != config.MediaDriverS3 {
		log.Warn().Msg("Using in-memory media store; uploads are lost on restart")
		return mediafake.NewFakeMediaStore(), nil
	}
	store, err := s3store.New(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("creating S3 media store: %w", err)
	}
	return store, nil
}

// redisBackedOptions enables login throttling and, when configured, access
// token revocation on logout. Without REDIS_ADDR throttling is off and
// revocations are kept in process memory.
func redisBackedOptions(ctx context.Context, c config.Config) ([]auth.AccountServiceOption, func(), error) {
	var options []auth.AccountServiceOption

	if c.GetRedisAddr() == "" {
		if c.GetRevokeAccessOnLogout() {
			cache := token.NewInMemoryRevokedTokenCache()
			go cleanupRevoked(ctx, cache)
			options = append(options, auth.WithRevokedTokenCache(cache))
		}
		return options, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.Err(err).Msg("Closing redis client")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		closeClient()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", c.GetRedisAddr(), err)
	}

	options = append(options, auth.WithLoginLimiter(ratelimit.New(client, ratelimit.Config{
		MaxLoginAttempts:      c.GetLoginMaxAttempts(),
		LoginCooldownDuration: c.GetLoginCooldown(),
	})))
	if c.GetRevokeAccessOnLogout() {
		options = append(options, auth.WithRevokedTokenCache(token.NewRedisRevokedTokenCache(client)))
	}
	return options, closeClient, nil
}

func cleanupRevoked(ctx context.Context, cache *token.InMemoryRevokedTokenCache) {
	ticker := time.NewTicker(revokedCacheCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Cleanup()
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
