// Command bolbill is the voice order-intake server for small-retail POS
// counters. It reads final speech fragments from stdin (one per line), runs
// them through the transcript pipeline, and keeps the session cart on an
// admin HTTP endpoint alongside /metrics and health probes.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kiranaops/bolbill/internal/cart"
	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/command"
	"github.com/kiranaops/bolbill/internal/config"
	"github.com/kiranaops/bolbill/internal/dispatch"
	"github.com/kiranaops/bolbill/internal/draft"
	"github.com/kiranaops/bolbill/internal/extract"
	"github.com/kiranaops/bolbill/internal/health"
	"github.com/kiranaops/bolbill/internal/notify"
	"github.com/kiranaops/bolbill/internal/observe"
	"github.com/kiranaops/bolbill/internal/pricing"
	"github.com/kiranaops/bolbill/internal/resolve"
	"github.com/kiranaops/bolbill/internal/units"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	sessionID := flag.String("session", "counter-1", "session identifier for this counter")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "bolbill: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "bolbill: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("bolbill starting",
		"config", *configPath,
		"store", cfg.Store.Name,
		"sale_mode", cfg.Store.SaleMode,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "bolbill"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()
	if metrics == nil {
		slog.Error("failed to initialise metrics")
		return 1
	}

	// ── Catalog ───────────────────────────────────────────────────────────────
	store, err := loadCatalog(cfg)
	if err != nil {
		slog.Error("failed to load catalog", "err", err)
		return 1
	}

	// ── Draft store ───────────────────────────────────────────────────────────
	checkers := []health.Checker{health.Catalog(store)}
	var drafts draft.Store
	if dsn := cfg.Drafts.PostgresDSN; dsn != "" {
		pg, err := draft.NewPostgresStore(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect draft store", "err", err)
			return 1
		}
		defer pg.Close()
		drafts = draft.NewResilient(pg, draft.ResilientConfig{})
		checkers = append(checkers, health.Drafts(pg))
		slog.Info("draft store connected", "backend", "postgres")
	} else {
		drafts = draft.NewMemStore()
		slog.Info("draft store in memory only")
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	svc := pricing.New()
	extractor, interpreter := buildStages(cfg)
	dispatcher := dispatch.NewDispatcher(
		store,
		extractor,
		interpreter,
		cart.NewEngine(svc, svc, cfg.Store.SaleMode),
		drafts,
		notify.NewLog(logger),
		metrics,
		dispatch.WithDedupWindow(cfg.Engine.DedupWindow.Std()),
	)

	session := dispatch.NewSession(*sessionID)
	if err := dispatcher.RestoreDraft(ctx, session); err != nil {
		slog.Warn("could not restore cart draft", "session", *sessionID, "err", err)
	} else if session.Cart.Len() > 0 {
		slog.Info("cart draft restored", "session", *sessionID, "lines", session.Cart.Len())
	}

	listener := dispatch.NewListener(dispatcher, session, metrics, cfg.Engine.EffectiveSilenceTimeout())
	listener.Start(ctx)

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.Empty() {
			return
		}
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.VocabularyChanged || d.TuningChanged {
			extractor, interpreter := buildStages(new)
			dispatcher.Retune(extractor, interpreter, new.Engine.DedupWindow.Std())
			slog.Info("pipeline retuned",
				"vocabulary_changed", d.VocabularyChanged,
				"tuning_changed", d.TuningChanged,
			)
		}
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveAdmin(ctx, cfg.Server.ListenAddr, metrics, session, checkers)
	})
	g.Go(func() error {
		return readFragments(ctx, listener, session)
	})

	slog.Info("server ready — speak orders on stdin, Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadCatalog builds the product store from the configured seed file, or the
// built-in demo catalog when no path is set.
func loadCatalog(cfg *config.Config) (*catalog.MemStore, error) {
	if cfg.Catalog.Path == "" {
		return catalog.NewMemStore(demoCatalog()...)
	}
	cf, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	store, err := catalog.NewMemStore(cf.Products...)
	if err != nil {
		return nil, err
	}
	slog.Info("catalog loaded", "path", cfg.Catalog.Path, "products", len(cf.Products))
	return store, nil
}

// buildStages constructs the extractor and interpreter from engine tuning.
// Called at startup and again on every hot reload that touches vocabulary or
// tuning values.
func buildStages(cfg *config.Config) (*extract.Extractor, *command.Interpreter) {
	extractor := extract.NewExtractor(extract.WithOverlapTolerance(cfg.Engine.OverlapTolerance))
	resolver := resolve.New(
		resolve.WithFuzzyThreshold(cfg.Engine.FuzzyThreshold),
		resolve.WithVocabulary(cfg.Engine.Vocabulary),
	)
	return extractor, command.NewInterpreter(resolver)
}

// readFragments feeds stdin lines to the listener as final speech fragments.
// Two control lines are recognised: "/cancel" flushes and clears the session,
// "/cart" prints the current cart.
func readFragments(ctx context.Context, l *dispatch.Listener, s *dispatch.Session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch line {
			case "":
				continue
			case "/cancel":
				l.Cancel()
				l.Start(ctx)
				fmt.Println("session cleared")
			case "/cart":
				printCart(s)
			default:
				l.OnFragment(line, true)
			}
		}
	}
}

func printCart(s *dispatch.Session) {
	lines := s.Cart.Lines()
	if len(lines) == 0 {
		fmt.Println("cart is empty")
		return
	}
	for _, ln := range lines {
		fmt.Printf("  %-20s %g %-4s ₹%.2f\n", ln.ProductName, ln.Quantity, ln.Unit, ln.LineTotal)
	}
	fmt.Printf("  total: ₹%.2f\n", s.Cart.Total())
}

// serveAdmin runs the admin HTTP server: Prometheus metrics, health probes,
// and a read-only cart endpoint for the counter display.
func serveAdmin(ctx context.Context, addr string, metrics *observe.Metrics, s *dispatch.Session, checkers []health.Checker) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(s.Cart.Snapshot()); err != nil {
			http.Error(w, "encode error", http.StatusInternalServerError)
		}
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// demoCatalog is the built-in product set used when no seed file is
// configured, matching a typical kirana counter.
func demoCatalog() []catalog.Product {
	return []catalog.Product{
		{ID: "sugar-1", Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 48, CostPrice: 42, GSTPercent: 5, Stock: 60},
		{ID: "salt-1", Name: "salt", NativeUnit: units.Kilogram, SellingPrice: 24, CostPrice: 18, GSTPercent: 5, Stock: 40},
		{ID: "rice-1", Name: "basmati rice", NativeUnit: units.Kilogram, SellingPrice: 110, CostPrice: 95, GSTPercent: 5, Stock: 100},
		{ID: "atta-1", Name: "wheat flour", NativeUnit: units.Kilogram, SellingPrice: 45, CostPrice: 38, GSTPercent: 5, Stock: 80},
		{ID: "milk-1", Name: "milk", NativeUnit: units.Litre, SellingPrice: 58, CostPrice: 52, GSTPercent: 0, Stock: 30},
		{ID: "oil-1", Name: "mustard oil", NativeUnit: units.Litre, SellingPrice: 165, CostPrice: 148, GSTPercent: 5, Stock: 25},
		{ID: "tea-1", Name: "tea", NativeUnit: units.Kilogram, SellingPrice: 340, CostPrice: 290, GSTPercent: 5, Stock: 12},
		{ID: "soap-1", Name: "bath soap", NativeUnit: units.Piece, SellingPrice: 35, CostPrice: 28, GSTPercent: 18, Stock: 90},
		{ID: "candle-1", Name: "candle", NativeUnit: units.Piece, SellingPrice: 10, CostPrice: 6, GSTPercent: 12, Stock: 200},
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
