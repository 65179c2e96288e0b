package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/snxdash/internal/api"
	"github.com/mtlprog/snxdash/internal/config"
	"github.com/mtlprog/snxdash/internal/database"
	"github.com/mtlprog/snxdash/internal/depot"
	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/export"
	"github.com/mtlprog/snxdash/internal/gov"
	"github.com/mtlprog/snxdash/internal/metrics"
	"github.com/mtlprog/snxdash/internal/rates"
	"github.com/mtlprog/snxdash/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "snxdash",
		Usage: "Synthetix staking dashboard backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "network", Usage: "network name (overrides NETWORK)"},
			&cli.StringFlag{Name: "rpc-url", Usage: "Ethereum JSON-RPC URL (overrides ETH_RPC_URL)"},
			&cli.StringFlag{Name: "rates-source", Usage: "chain or coingecko (overrides RATES_SOURCE)"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and background workers",
				Action: serve,
			},
			{
				Name:  "balances",
				Usage: "print a wallet's USD-valued holdings as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Required: true, Usage: "wallet address"},
				},
				Action: printBalances,
			},
			{
				Name:  "export",
				Usage: "write a wallet's holdings to an XLSX file or a Google sheet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Required: true, Usage: "wallet address"},
					&cli.StringFlag{Name: "xlsx", Usage: "output workbook path"},
					&cli.StringFlag{Name: "sheet-id", Usage: "Google spreadsheet ID (needs GOOGLE_CREDENTIALS_JSON)"},
				},
				Action: exportHoldings,
			},
			{
				Name:  "refresh-rates",
				Usage: "fetch the price table once and store it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sqlite", Usage: "store in a SQLite file instead of DATABASE_URL"},
				},
				Action: refreshRates,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("snxdash: %v", err)
	}
}

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(c *cli.Context) config.Config {
	cfg := config.Load()
	if v := c.String("network"); v != "" {
		cfg.Network = v
	}
	if v := c.String("rpc-url"); v != "" {
		cfg.EthRPCURL = v
	}
	if v := c.String("rates-source"); v != "" {
		cfg.RatesSource = v
	}
	return cfg
}

func serve(c *cli.Context) error {
	ctx := c.Context
	cfg := loadConfig(c)

	// Connect to database
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := openPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	st, err := newStack(ctx, cfg, rates.NewPgQuoteRepository(pool))
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	if err := m.Register(metrics.NewRatesCollector(st.rates)); err != nil {
		return fmt.Errorf("registering rates collector: %w", err)
	}

	// Start workers
	ratesWorker := worker.NewRatesWorker(m.InstrumentRefresher(st.rates), cfg.RatesWorkerInterval)
	go ratesWorker.Run(ctx)

	if cfg.ExportEnabled() {
		writer, err := export.NewSheetsWriter(ctx, cfg.ExportSheetID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return err
		}
		session, err := st.session(cfg.ExportWallet)
		if err != nil {
			return err
		}
		exportWorker := worker.NewExportWorker(export.NewService(st.wallet, writer), session, cfg.ExportWorkerInterval)
		go exportWorker.Run(ctx)
	}

	hub := gov.NewHub(cfg.GovHubURL, cfg.IndexerRetryMax, cfg.IndexerRetryBaseDelay)
	deps := api.Deps{
		Balances:       st.wallet,
		Debt:           st.debt,
		FeePool:        st.feePool,
		Depot:          depot.NewService(depot.NewClient(cfg.DepotSubgraphURL, cfg.IndexerRetryMax, cfg.IndexerRetryBaseDelay), cfg.QueryCacheTTL),
		Rates:          st.rates,
		Networks:       st,
		DefaultNetwork: st.network.Name,
		Proposals:      hub,
	}

	switch {
	case cfg.GovSignerKey == "":
		slog.Info("GOV_SIGNER_KEY not set, voting disabled")
	case cfg.AdminAPIKey == "":
		slog.Warn("ADMIN_API_KEY not set, voting disabled")
	default:
		signer, err := gov.NewHubSigner(hub, cfg.GovSignerKey)
		if err != nil {
			return err
		}
		slog.Info("voting enabled", "signer", signer.Address())
		deps.Signer = signer
	}

	// Start HTTP server
	srv := api.NewServer(cfg.HTTPPort, deps, m, cfg.AdminAPIKey)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// oneShotStack builds a stack over an in-memory SQLite rate store and fills it once.
func oneShotStack(c *cli.Context) (*stack, func(), error) {
	ctx := c.Context
	cfg := loadConfig(c)

	db, err := database.OpenSQLite(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	repo, err := rates.NewSQLiteQuoteRepository(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	st, err := newStack(ctx, cfg, repo)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	cleanup := func() {
		st.Close()
		db.Close()
	}

	if err := st.rates.Refresh(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return st, cleanup, nil
}

func (s *stack) session(address string) (domain.Session, error) {
	if !common.IsHexAddress(address) {
		return domain.Session{}, fmt.Errorf("invalid wallet address %q", address)
	}
	return domain.Session{
		WalletAddress: common.HexToAddress(address).Hex(),
		Network:       s.network.Domain(),
		AppReady:      true,
	}, nil
}

func printBalances(c *cli.Context) error {
	st, cleanup, err := oneShotStack(c)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := st.session(c.String("address"))
	if err != nil {
		return err
	}

	res, err := st.wallet.Balances(c.Context, session)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func exportHoldings(c *cli.Context) error {
	xlsxPath, sheetID := c.String("xlsx"), c.String("sheet-id")
	if (xlsxPath == "") == (sheetID == "") {
		return errors.New("exactly one of --xlsx or --sheet-id is required")
	}

	st, cleanup, err := oneShotStack(c)
	if err != nil {
		return err
	}
	defer cleanup()

	session, err := st.session(c.String("address"))
	if err != nil {
		return err
	}

	var writer export.Writer
	if xlsxPath != "" {
		writer = export.NewXLSXWriter(xlsxPath)
	} else {
		if st.cfg.GoogleCredentialsJSON == "" {
			return errors.New("GOOGLE_CREDENTIALS_JSON is required for --sheet-id")
		}
		writer, err = export.NewSheetsWriter(c.Context, sheetID, st.cfg.GoogleCredentialsJSON)
		if err != nil {
			return err
		}
	}

	if err := export.NewService(st.wallet, writer).Export(c.Context, session); err != nil {
		return err
	}
	slog.Info("holdings exported", "wallet", session.WalletAddress)
	return nil
}

func refreshRates(c *cli.Context) error {
	ctx := c.Context
	cfg := loadConfig(c)

	var repo rates.QuoteRepository
	if path := c.String("sqlite"); path != "" {
		db, err := database.OpenSQLite(ctx, path)
		if err != nil {
			return err
		}
		defer db.Close()
		sqliteRepo, err := rates.NewSQLiteQuoteRepository(ctx, db)
		if err != nil {
			return err
		}
		repo = sqliteRepo
	} else {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL or --sqlite is required")
		}
		pool, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = rates.NewPgQuoteRepository(pool)
	}

	st, err := newStack(ctx, cfg, repo)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.rates.Refresh(ctx); err != nil {
		return err
	}

	quotes, err := st.rates.Quotes(ctx)
	if err != nil {
		return err
	}
	for _, q := range quotes {
		fmt.Fprintf(c.App.Writer, "%-8s %s\n", q.Symbol, q.PriceInUSD.String())
	}
	return nil
}

func openPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	return database.Open(ctx, databaseURL, migrations)
}
