package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/erazemk/inventar/internal/api"
	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/revocation"
	"github.com/erazemk/inventar/internal/storage"
	"github.com/erazemk/inventar/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	fs := flag.NewFlagSet("inventar", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dsn string
	fs.StringVar(&dsn, "db", "", "")
	fs.StringVar(&dsn, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: inventar [flags]

Flags:
  -c, -config <path>      YAML config file (default: none)
  -d, -db <dsn>           database path or DSN (default: inventar.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Settings can also be given as INVENTAR_* environment variables or in a .env file.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database, cfg.Database.Driver); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "driver", cfg.Database.Driver)

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		// Generated on first run and kept in the settings table.
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("getting JWT secret: %w", err)
		}
	}

	files, images, err := openStorage(cfg)
	if err != nil {
		return err
	}

	revoked, closeRevoked, err := openRevocation(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer closeRevoked()

	service := inventory.NewService(database, files)
	if _, err := service.Recount(ctx); err != nil {
		return err
	}

	handler := api.NewRouter(api.Options{
		DB:             database,
		JWTSecret:      jwtSecret,
		Service:        service,
		Revoked:        revoked,
		AllowedOrigins: cfg.AllowedOrigins,
		Images:         images,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// openStorage returns the configured file store and, for local storage, the
// handler that serves it.
func openStorage(cfg *config.Config) (storage.Store, http.Handler, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		s3cfg := cfg.Storage.S3
		files, err := storage.NewS3(storage.S3Config{
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			PublicURL: s3cfg.PublicURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening s3 storage: %w", err)
		}
		slog.Info("storage ready", "backend", "s3", "bucket", s3cfg.Bucket)
		return files, nil, nil

	default:
		if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("creating storage directory: %w", err)
		}
		files := storage.NewLocal(cfg.Storage.Dir, cfg.Storage.BaseURL)
		slog.Info("storage ready", "backend", "local", "dir", cfg.Storage.Dir)
		return files, files.Handler(), nil
	}
}

// openRevocation returns the configured revocation list and a function that
// releases its resources.
func openRevocation(ctx context.Context, cfg *config.Config, database *sql.DB) (revocation.List, func(), error) {
	if cfg.Revocation.Backend != config.RevocationRedis {
		return &revocation.SQL{DB: database}, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Revocation.RedisAddr,
		Password: cfg.Revocation.RedisPassword,
		DB:       cfg.Revocation.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	slog.Info("revocation ready", "backend", "redis", "addr", cfg.Revocation.RedisAddr)
	return revocation.NewRedis(client), func() { client.Close() }, nil
}
