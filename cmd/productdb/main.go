// Command productdb serves a product catalog stored in a flat file over a
// JSON REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/maruel/productdb/internal/server"
	"github.com/maruel/productdb/internal/server/handlers"
	"github.com/maruel/productdb/internal/server/ipgeo"
	"github.com/maruel/productdb/internal/storage"
	"github.com/maruel/productdb/internal/storage/history"
)

// envPrefix prefixes the environment variables overriding unset flags.
const envPrefix = "PRODUCTDB_"

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "productdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	fs := flag.CommandLine
	version := fs.Bool("version", false, "Print version and exit")
	httpAddr := fs.String("http", "localhost:8080", "Address to listen on (e.g., localhost:8080, :8080, 0.0.0.0:8080)")
	dataDir := fs.String("data-dir", "./data", "Data directory")
	logLevel := fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	configPath := fs.String("config", "", "Path to server_config.yaml (default: <data-dir>/server_config.yaml)")
	geoDB := fs.String("geo-db", "", "Path to MaxMind MMDB file for IP geolocation (optional)")
	issueToken := fs.String("issue-token", "", "Print a bearer token for this subject and exit")
	tokenTTL := fs.Duration("token-ttl", 0, "Lifetime of the token printed by -issue-token; 0 never expires")
	fs.Parse(os.Args[1:]) //nolint:errcheck // ExitOnError
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", fs.Args())
	}
	if err := applyEnv(fs, os.LookupEnv, "http", "data-dir", "log-level", "geo-db"); err != nil {
		return err
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	slog.SetDefault(newLogger(ll, os.Getenv("JOURNAL_STREAM") != ""))
	if err := setLevel(ll, *logLevel); err != nil {
		return err
	}

	if *configPath == "" {
		*configPath = filepath.Join(*dataDir, storage.ConfigFileName)
	}
	serverCfg, err := storage.LoadServerConfig(*configPath)
	if err != nil {
		return err
	}

	if *issueToken != "" {
		tok, err := server.IssueToken(serverCfg.Auth.Secret(), *issueToken, *tokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}
		fmt.Println(tok)
		return nil
	}

	products, err := storage.OpenProducts(*dataDir, &serverCfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open product table: %w", err)
	}
	slog.InfoContext(ctx, "Product table ready", "path", products.Path(), "format", products.Codec().Name(), "records", products.Len())

	var repo *history.Repo
	if serverCfg.Storage.History {
		if repo, err = history.Open(products.Path()); err != nil {
			return err
		}
		if _, err := repo.Commit(ctx, "", "Startup snapshot"); err != nil {
			return fmt.Errorf("failed to record initial history: %w", err)
		}
		slog.InfoContext(ctx, "History enabled", "file", products.Path())
	}

	var geoChecker *ipgeo.Checker
	if *geoDB != "" {
		geoChecker, err = ipgeo.Open(*geoDB)
		if err != nil {
			return fmt.Errorf("failed to open geo database: %w", err)
		}
		defer func() { _ = geoChecker.Close() }()
		slog.InfoContext(ctx, "IP geolocation enabled", "db", *geoDB)
	}

	// Watch own executable for modifications (for development restarts)
	if err := watchExecutable(ctx, stop); err != nil {
		return fmt.Errorf("failed to watch executable: %w", err)
	}

	addr := *httpAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	buildVersion, buildGoVersion, buildRevision, buildDirty := getBuildInfo()
	router := server.NewRouter(products, &server.Config{
		ServerConfig: *serverCfg,
		Build: handlers.BuildInfo{
			Version:   buildVersion,
			GoVersion: buildGoVersion,
			Revision:  buildRevision,
			Dirty:     buildDirty,
		},
		IPGeo:   geoChecker,
		History: repo,
	})
	defer router.Close()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", addr, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// applyEnv sets each named flag not given on the command line from its
// PRODUCTDB_* environment variable, e.g. -data-dir from PRODUCTDB_DATA_DIR.
func applyEnv(fs *flag.FlagSet, lookup func(string) (string, bool), names ...string) error {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for _, name := range names {
		if set[name] {
			continue
		}
		key := envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		if err := fs.Set(name, v); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func setLevel(ll *slog.LevelVar, level string) error {
	switch level {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}
	return nil
}

// newLogger returns a tint logger on stderr, colored when stderr is a
// terminal.
func newLogger(ll *slog.LevelVar, underSystemd bool) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:       ll,
		TimeFormat:  "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:     !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: replaceAttr(underSystemd),
	}))
}

// replaceAttr drops empty attributes and localhost IPs, and the time when
// running under systemd (it adds its own).
func replaceAttr(underSystemd bool) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		if a.Key == "ip" {
			if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
				return slog.Attr{}
			}
		}
		skip := false
		switch t := a.Value.Any().(type) {
		case string:
			skip = t == ""
		case bool:
			skip = !t
		case uint64:
			skip = t == 0
		case int64:
			skip = t == 0
		case float64:
			skip = t == 0
		case time.Time:
			skip = t.IsZero()
		case time.Duration:
			skip = t == 0
		case nil:
			skip = true
		}
		if skip {
			return slog.Attr{}
		}
		return a
	}
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("productdb %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

// watchExecutable watches the current executable for modifications and calls
// stop to trigger graceful shutdown when detected.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
