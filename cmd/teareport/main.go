// Command teareport runs the techno-economic analysis over a stored
// extraction session and writes the multi-sheet Excel report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"log/slog"

	"teacli/internal/config"
	"teacli/internal/economics"
	"teacli/internal/exporter"
	"teacli/internal/infrastructure"
	"teacli/internal/storage"
	"teacli/pkg/contracts/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "teareport: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = flag.String("config", "", "configuration file (YAML)")
		sessionID  = flag.String("session", "", "session ID (default: latest complete session)")
		costsFile  = flag.String("costs", "", "vendor cost-estimate text file")
		outFile    = flag.String("out", "", "report path (default under the reports directory)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	store, err := storage.Open(cfg.Paths.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	id := *sessionID
	if id == "" {
		id, err = store.LatestSessionID(ctx)
		if err != nil {
			return err
		}
	}
	session, err := store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if session.Status != domain.SessionComplete {
		logger.Warn("analyzing a session that did not complete",
			slog.String("session", id),
			slog.String("status", string(session.Status)))
	}

	streams, err := store.StreamsBySession(ctx, id)
	if err != nil {
		return err
	}
	equipment, err := store.EquipmentBySession(ctx, id)
	if err != nil {
		return err
	}
	hexes, err := store.HeatExchangersBySession(ctx, id)
	if err != nil {
		return err
	}

	var vendorCosts []domain.CostItem
	if *costsFile != "" {
		vendorCosts, err = economics.ParseCostFile(*costsFile, logger)
		if err != nil {
			return err
		}
	}

	analyzer := economics.NewAnalyzer(cfg.Economics, logger)
	result := analyzer.Analyze(cfg.ProjectName, streams, equipment, hexes, vendorCosts)
	result.DataSources = append(result.DataSources, fmt.Sprintf("extraction session %s", id))

	out := *outFile
	if out == "" {
		if err := os.MkdirAll(cfg.Paths.ReportsDir, 0o755); err != nil {
			return fmt.Errorf("creating reports directory: %w", err)
		}
		out = filepath.Join(cfg.Paths.ReportsDir, fmt.Sprintf("tea-report-%s.xlsx", id))
	}

	if err := exporter.New(logger).Export(out, result, equipment, hexes, cfg.Economics); err != nil {
		return err
	}
	fmt.Printf("report for session %s written to %s (NPV %.0f USD, payback %.1f years)\n",
		id, out, result.NPV, result.PaybackYears)
	return nil
}
