/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Initialize SQLite store
  3. Optionally seed demo data (rate profile, rules, tax tables)
  4. Create API handler and router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080, env PORT)
  -db      SQLite database path (default: payroll.db, env DATABASE_PATH)
           Use ":memory:" for an in-memory database
  -seed    Seed demo data on startup (default: false)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database, seeded
  ./server -db="./data/payroll.db" -seed

  # Run with in-memory database
  ./server -db=":memory:" -seed

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/pay"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/tax"
)

func main() {
	// .env is optional; flags and real env win over it.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "payroll.db"), "SQLite database path")
	seed := flag.Bool("seed", false, "seed demo data on startup")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	if *seed {
		if err := seedDemoData(context.Background(), store); err != nil {
			logger.Error("failed to seed demo data", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("demo data seeded")
	}

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			slog.Int("port", *port),
			slog.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// seedDemoData loads a standard casual rate profile, its penalty rules, the
// baseline coefficient tables, and one demo user with an untaxed fortnight.
func seedDemoData(ctx context.Context, store *sqlite.Store) error {
	span := pay.DaySpan{StartMinute: 6 * 60, EndMinute: 21 * 60}
	profile := pay.RateProfile{
		ID:                          "casual-standard",
		Name:                        "Casual Standard",
		BaseRate:                    decimal.RequireFromString("26.55"),
		CasualLoading:               decimal.Zero,
		OvertimeTier1Multiplier:     decimal.RequireFromString("1.5"),
		OvertimeTier2Multiplier:     decimal.RequireFromString("2"),
		DailyOvertimeThresholdHours: decimal.NewFromInt(10),
		OvertimeOnSpanBoundary:      true,
		OvertimeOnDailyLimit:        true,
	}
	// Ordinary hours Monday through Friday; weekends have no span, so the
	// span-boundary check never fires there.
	for d := time.Monday; d <= time.Friday; d++ {
		profile.OrdinarySpan[d] = span
	}
	if err := store.SaveRateProfile(ctx, profile); err != nil {
		return err
	}

	saturday := time.Saturday
	sunday := time.Sunday
	rules := []pay.PenaltyRule{
		{ID: "evening", Name: "Evening", StartMinute: 18 * 60, EndMinute: 22 * 60,
			Multiplier: decimal.RequireFromString("1.25"), Priority: 10, Active: true},
		{ID: "night", Name: "Night", StartMinute: 22 * 60, EndMinute: 6 * 60,
			Multiplier: decimal.RequireFromString("1.5"), Priority: 20, Active: true},
		{ID: "saturday", Name: "Saturday", StartMinute: 0, EndMinute: pay.MinutesPerDay,
			Day: &saturday, Multiplier: decimal.RequireFromString("1.5"), Priority: 30, Active: true},
		{ID: "sunday", Name: "Sunday", StartMinute: 0, EndMinute: pay.MinutesPerDay,
			Day: &sunday, Multiplier: decimal.RequireFromString("1.75"), Priority: 30, Active: true},
	}
	for _, r := range rules {
		if err := store.SavePenaltyRule(ctx, profile.ID, r); err != nil {
			return err
		}
	}

	for _, scale := range []tax.Scale{
		tax.ScaleNoThreshold, tax.ScaleThresholdClaimed,
		tax.ScaleForeignResident, tax.ScaleNoTFN,
	} {
		if err := store.SaveTable(ctx, tax.FallbackTaxYear, tax.FallbackTable(scale)); err != nil {
			return err
		}
	}
	if err := store.SaveTable(ctx, tax.FallbackTaxYear, tax.FallbackSupplementaryTable()); err != nil {
		return err
	}

	if err := store.SaveTaxSettings(ctx, "demo-user", tax.TaxSettings{
		ClaimedTaxFreeThreshold: true,
		HasTaxFileNumber:        true,
		MedicareExemption:       tax.MedicareExemptionNone,
		ExtraWithholding:        decimal.Zero,
	}); err != nil {
		return err
	}

	gross := decimal.NewFromInt(2000)
	return store.SavePayPeriod(ctx, tax.PayPeriod{
		ID:       uuid.NewString(),
		UserID:   "demo-user",
		Type:     tax.PeriodFortnightly,
		EndDate:  time.Date(2024, time.September, 15, 0, 0, 0, 0, time.UTC),
		Gross:    &gross,
		TimeZone: "Australia/Sydney",
	})
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
