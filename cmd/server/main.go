// Package main runs the settlement server: the in-memory engine behind the
// HTTP API, the websocket event stream, Prometheus metrics and the durable
// journal (PostgreSQL for records, ClickHouse for analytics timeseries).
//
// The engine has no internal scheduler. Scans, finalizations and resets are
// permissionless keeper calls arriving over the API; this process only hosts
// the state and the transport.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ghostpool/internal/api"
	custmem "ghostpool/internal/custody/memory"
	"ghostpool/internal/domain"
	"ghostpool/internal/engine"
	"ghostpool/internal/entropy"
	"ghostpool/internal/observability"
	"ghostpool/internal/storage"
	chstore "ghostpool/internal/storage/clickhouse"
	"ghostpool/internal/storage/memory"
	"ghostpool/internal/storage/migrations"
	pgstore "ghostpool/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	addr := flag.String("addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory journal instead of PostgreSQL/ClickHouse")
	adminToken := flag.String("admin-token", os.Getenv("ADMIN_TOKEN"), "Bearer token for /v1/admin endpoints (empty disables them)")
	boostSigner := flag.String("boost-signer", os.Getenv("BOOST_SIGNER"), "Base58 ed25519 public key authorizing boost grants")
	treasury := flag.String("treasury", envOr("TREASURY_ACCOUNT", "treasury"), "Treasury account for cascade remainders")
	levelsFile := flag.String("levels-file", os.Getenv("LEVELS_FILE"), "JSON file with level configs (empty uses the genesis tiers)")
	gaugeInterval := flag.Duration("gauge-interval", 15*time.Second, "Interval for refreshing level gauges")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for an in-memory journal)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	journal, cleanup, err := createJournal(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create journal: %v", err)
	}
	defer cleanup()

	levels, err := loadLevels(*levelsFile)
	if err != nil {
		logger.Fatalf("Failed to load level configs: %v", err)
	}

	metrics := observability.NewMetrics("")
	hub := api.NewHub(metrics, log.New(os.Stdout, "[ws] ", log.LstdFlags))

	// Value custody is the host environment's concern. This binary holds
	// balances in process memory; a deployment against a real vault swaps
	// in its own custody.Custody.
	bank := custmem.New()

	eng, err := engine.New(engine.Options{
		Custody:         bank,
		Entropy:         &entropy.CryptoSource{},
		Journal:         journal,
		Levels:          levels,
		TreasuryAccount: *treasury,
		BoostSigner:     *boostSigner,
		Logger:          logger,
		// The sink runs under the engine lock; both targets only touch
		// their own state, never the engine.
		EventSink: func(ev domain.Event) {
			metrics.ObserveEvent(ev)
			hub.Publish(ev)
		},
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	apiServer := api.NewServer(api.Options{
		Engine:     eng,
		Hub:        hub,
		Metrics:    metrics,
		AdminToken: *adminToken,
		Logger:     log.New(os.Stdout, "[api] ", log.LstdFlags),
	})

	startedAt := time.Now()
	routes := apiServer.Routes()

	mux := http.NewServeMux()
	mux.Handle("/v1/", routes)
	mux.Handle("/ws", routes)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		handleStatus(w, eng, hub, startedAt)
	})

	// Faucet for local runs against the in-memory bank.
	if *adminToken != "" {
		mux.HandleFunc("POST /v1/admin/faucet", func(w http.ResponseWriter, r *http.Request) {
			handleFaucet(w, r, bank, *adminToken)
		})
	}

	go runGaugeLoop(ctx, eng, metrics, *gaugeInterval)

	httpServer := &http.Server{Addr: *addr, Handler: mux}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// loadLevels reads level configs from a JSON file, or returns nil so the
// engine falls back to domain.DefaultLevelConfigs().
func loadLevels(path string) ([]domain.LevelConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var levels []domain.LevelConfig
	if err := json.Unmarshal(data, &levels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("%s contains no level configs", path)
	}
	return levels, nil
}

// createJournal builds the journal for the selected backend.
func createJournal(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*storage.Journal, func(), error) {
	if useMemory {
		return memory.NewJournal(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	journal := pgstore.NewJournal(pool)
	journal.Snapshots = chstore.NewLevelSnapshotStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return journal, cleanup, nil
}

// runGaugeLoop refreshes the per-level gauges from engine views. Gauges
// can't be driven from the event sink: the sink runs under the engine lock
// and the views need it.
func runGaugeLoop(ctx context.Context, eng *engine.Engine, metrics *observability.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, level := range eng.Levels() {
				state, err := eng.LevelStateView(level)
				if err != nil {
					continue
				}
				label := strconv.Itoa(level)
				metrics.TotalValueLocked.WithLabelValues(label).Set(float64(state.TotalStaked))
				metrics.AlivePositions.WithLabelValues(label).Set(float64(state.AliveCount))
			}
			metrics.ResetDeadline.Set(float64(eng.ResetView().DeadlineMs))
		}
	}
}

// statusResponse is the JSON response for /status.
type statusResponse struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	Paused           bool   `json:"paused"`
	Levels           int    `json:"levels"`
	TotalValueLocked int64  `json:"total_value_locked"`
	ResetDeadlineMs  int64  `json:"reset_deadline_ms"`
	ResetEpoch       int64  `json:"reset_epoch"`
	WSSubscribers    int    `json:"ws_subscribers"`
}

func handleStatus(w http.ResponseWriter, eng *engine.Engine, hub *api.Hub, startedAt time.Time) {
	reset := eng.ResetView()
	resp := statusResponse{
		Status:           "running",
		Uptime:           time.Since(startedAt).String(),
		Paused:           eng.Paused(),
		Levels:           len(eng.Levels()),
		TotalValueLocked: eng.TotalValueLocked(),
		ResetDeadlineMs:  reset.DeadlineMs,
		ResetEpoch:       reset.Epoch,
		WSSubscribers:    hub.Subscribers(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// faucetRequest credits the in-memory bank for local testing.
type faucetRequest struct {
	User   string `json:"user"`
	Amount int64  `json:"amount"`
}

func handleFaucet(w http.ResponseWriter, r *http.Request, bank *custmem.Custody, token string) {
	if r.Header.Get("Authorization") != "Bearer "+token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req faucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.User == "" || req.Amount <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	bank.Credit(req.User, req.Amount)
	w.WriteHeader(http.StatusOK)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
