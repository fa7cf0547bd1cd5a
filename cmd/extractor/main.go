// Command extractor runs one extraction session: it opens a simulation
// file, extracts and classifies its streams and equipment, merges the
// optional heat-exchanger workbook and persists everything under a new
// session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"teacli/internal/classify"
	"teacli/internal/config"
	"teacli/internal/extract"
	"teacli/internal/hex"
	"teacli/internal/infrastructure"
	"teacli/internal/pipeline"
	"teacli/internal/sim"
	"teacli/internal/storage"
	"teacli/pkg/contracts/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "extractor: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = flag.String("config", "", "configuration file (YAML)")
		simFile    = flag.String("sim", "", "simulation snapshot file (required)")
		hexFile    = flag.String("hex", "", "heat-exchanger detail workbook")
		modelsFile = flag.String("models", "", "equipment model workbook")
		notes      = flag.String("notes", "", "free-form note stored on the session")
	)
	flag.Parse()

	if *simFile == "" {
		flag.Usage()
		return fmt.Errorf("-sim is required")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	store, err := storage.Open(cfg.Paths.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	matcher := classify.NewTypeMatcher(logger)
	if *modelsFile != "" {
		if err := matcher.LoadModelWorkbook(*modelsFile); err != nil {
			return err
		}
	}

	extractor := extract.New(classify.NewClassifier(logger), matcher, logger)
	runner := pipeline.NewRunner(store, logger,
		pipeline.ExtractionStage(sim.NewSnapshotConnector(logger), extractor),
		pipeline.HeatExchangerStage(hex.NewLoader(logger), hex.NewMapper(logger)),
	)

	session := domain.ExtractionSession{
		ID:             domain.NewSessionID(time.Now()),
		ExtractionTime: time.Now().UTC(),
		SimFilePath:    *simFile,
		HexFilePath:    *hexFile,
		Notes:          *notes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := runner.Run(ctx, session)
	if err != nil {
		return err
	}

	for _, warning := range state.Warnings {
		logger.Warn("extraction warning", slog.String("detail", warning))
	}
	fmt.Printf("session %s: %d streams, %d equipment, %d heat exchangers (%d warnings)\n",
		session.ID, len(state.Streams), len(state.Equipment), len(state.HeatExchangers), len(state.Warnings))
	return nil
}
