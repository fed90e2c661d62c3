package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/bigram-stripes/internal/common"
	"github.com/dtnitsch/bigram-stripes/models"
	"github.com/dtnitsch/bigram-stripes/pkg/bigram"
	"github.com/dtnitsch/bigram-stripes/pkg/caching"
	"github.com/dtnitsch/bigram-stripes/pkg/corpus"
	"github.com/dtnitsch/bigram-stripes/pkg/db"
	"github.com/dtnitsch/bigram-stripes/pkg/manifest"
	"github.com/dtnitsch/bigram-stripes/pkg/mapreduce"
	"github.com/dtnitsch/bigram-stripes/pkg/output"
	"github.com/dtnitsch/bigram-stripes/pkg/storage"
)

// Report describes a finished run.
type Report struct {
	RunID       int64
	Splits      int
	Result      *mapreduce.Result
	SummaryPath string
	Duration    time.Duration
}

func RunAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := ResolveConfig(c)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return cli.Exit(err.Error(), 2)
	}

	sanitized, invalid := common.SanitizeInputs(cfg.Inputs)
	if len(invalid) > 0 {
		for _, in := range invalid {
			logger.Error("invalid input", "input", in)
		}
		return cli.Exit(fmt.Sprintf("%d invalid input(s)", len(invalid)), 2)
	}
	cfg.Inputs = sanitized

	var database *db.DB
	if !c.Bool("no-db") {
		database, err = db.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return cli.Exit(err.Error(), 2)
		}
		defer database.Close()
	}

	report, err := Execute(c.Context, cfg, database, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("job failed: %v", err), 1)
	}

	if report.RunID != 0 {
		fmt.Printf("Run %d: ", report.RunID)
	}
	fmt.Printf("%d records in %d part file(s), %s\n",
		report.Result.Counters.ReduceOutputRecords, len(report.Result.Partitions), report.Duration.Round(time.Millisecond))
	fmt.Printf("Summary: %s\n", report.SummaryPath)
	return nil
}

// ResolveConfig layers CLI flags over the optional --config file and validates the result.
func ResolveConfig(c *cli.Context) (models.JobConfig, error) {
	cfg := models.DefaultJobConfig()
	if path := c.String("config"); path != "" {
		loaded, err := models.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.IsSet("input") {
		cfg.Inputs = c.StringSlice("input")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("reducers") {
		n, err := strconv.Atoi(c.String("reducers"))
		if err != nil {
			return cfg, fmt.Errorf("%w: reducers must be a number, got %q", models.ErrInvalidConfig, c.String("reducers"))
		}
		cfg.Reducers = n
	}
	if c.IsSet("mappers") {
		cfg.Mappers = c.Int("mappers")
	}
	if c.IsSet("split-lines") {
		cfg.SplitLines = c.Int("split-lines")
	}
	if c.IsSet("spill-records") {
		cfg.SpillRecords = c.Int("spill-records")
	}
	if c.Bool("no-combiner") {
		cfg.Combiner = false
	}
	if c.IsSet("in-mapper-combining") {
		cfg.InMapperCombining = c.Bool("in-mapper-combining")
	}
	if c.IsSet("max-attempts") {
		cfg.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	if c.IsSet("cache-dir") {
		cfg.CacheDir = c.String("cache-dir")
	}
	if c.IsSet("cache-ttl") {
		cfg.CacheTTL = c.String("cache-ttl")
	}

	if cfg.CacheTTL != "" {
		if _, err := time.ParseDuration(cfg.CacheTTL); err != nil {
			return cfg, fmt.Errorf("%w: cache ttl: %w", models.ErrInvalidConfig, err)
		}
	}
	return cfg, cfg.Validate()
}

// Execute runs the job described by cfg: it clears the output directory,
// loads and splits the inputs, runs map and reduce, writes one part file per
// reducer followed by the success marker and summary, and records the run in
// database when one is given.
func Execute(ctx context.Context, cfg models.JobConfig, database *db.DB, logger *slog.Logger) (*Report, error) {
	startTime := time.Now()
	report := &Report{}

	if database != nil {
		runID, err := database.CreateRun(cfg.Inputs, cfg.Output, cfg.Reducers, cfg.Combiner, cfg.InMapperCombining)
		if err != nil {
			return nil, err
		}
		report.RunID = runID
		logger = logger.With("run_id", runID)
	}

	err := execute(ctx, cfg, logger, report, startTime)
	report.Duration = time.Since(startTime)

	if database != nil {
		if err == nil {
			err = database.InsertOutputs(report.RunID, report.Result.Partitions)
		}
		if err == nil {
			err = database.FinishRun(report.RunID, manifest.CounterMap(report.Result.Counters), report.Duration)
		}
		if err != nil {
			if failErr := database.FailRun(report.RunID, err, report.Duration); failErr != nil {
				logger.Warn("Failed to record run failure", "error", failErr)
			}
		}
	}
	if err != nil {
		logger.Error("Job failed", "error", err, "duration", report.Duration)
		return nil, err
	}

	logger.Info("Job complete", "duration", report.Duration, "output", cfg.Output)
	return report, nil
}

func execute(ctx context.Context, cfg models.JobConfig, logger *slog.Logger, report *Report, startTime time.Time) error {
	s := &storage.Storage{}
	logger.Info("Starting job", "inputs", cfg.Inputs, "output", cfg.Output, "reducers", cfg.Reducers,
		"combiner", cfg.Combiner, "in_mapper_combining", cfg.InMapperCombining)

	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("Clearing output directory", "output", cfg.Output)
	if err := s.Reset(cfg.Output); err != nil {
		return err
	}

	loader := corpus.NewLoader(cfg.SplitLines, logger)
	if cfg.CacheDir != "" {
		var ttl time.Duration
		if cfg.CacheTTL != "" {
			ttl, _ = time.ParseDuration(cfg.CacheTTL)
		}
		cache, err := caching.NewCache(cfg.CacheDir, ttl)
		if err != nil {
			return err
		}
		loader.Cache = cache
	}

	splits, err := loader.Load(ctx, cfg.Inputs)
	if err != nil {
		return err
	}
	report.Splits = len(splits)
	logger.Info("Input loaded", "inputs", len(cfg.Inputs), "splits", len(splits))

	job := mapreduce.BigramJob(cfg.Combiner, cfg.InMapperCombining)
	result, err := mapreduce.Run(ctx, job, splits, mapreduce.Options{
		Mappers:      cfg.Mappers,
		Reducers:     cfg.Reducers,
		SpillRecords: cfg.SpillRecords,
		MaxAttempts:  cfg.MaxAttempts,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	report.Result = result

	partRecords := make([]int64, len(result.Partitions))
	for i, outputs := range result.Partitions {
		n, err := writePart(s, cfg.Output, i, outputs)
		if err != nil {
			return err
		}
		partRecords[i] = n
	}
	if err := s.MarkSuccess(cfg.Output); err != nil {
		return err
	}

	report.SummaryPath, err = manifest.GenerateSummary(manifest.RunInfo{
		RunID:           report.RunID,
		Inputs:          cfg.Inputs,
		InputSplits:     len(splits),
		Reducers:        cfg.Reducers,
		Combiner:        cfg.Combiner,
		InMapperCombine: cfg.InMapperCombining,
		Duration:        time.Since(startTime),
		Result:          result,
		PartRecords:     partRecords,
	}, cfg.Output, s)
	if err != nil {
		logger.Warn("Failed to write summary", "error", err)
	}
	return nil
}

func writePart(s *storage.Storage, dir string, i int, outputs []bigram.Output) (int64, error) {
	f, err := s.CreatePart(dir, i)
	if err != nil {
		return 0, err
	}

	w := output.NewWriter(f)
	err = w.WriteAll(outputs)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", storage.PartFileName(i), err)
	}
	return w.Count(), nil
}
