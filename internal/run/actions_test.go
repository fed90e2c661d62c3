package run

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/bigram-stripes/models"
	"github.com/dtnitsch/bigram-stripes/pkg/db"
	"github.com/dtnitsch/bigram-stripes/pkg/manifest"
	"github.com/dtnitsch/bigram-stripes/pkg/storage"
)

var discard = slog.New(slog.DiscardHandler)

func resolve(t *testing.T, args ...string) (models.JobConfig, error) {
	t.Helper()

	var (
		cfg models.JobConfig
		err error
	)
	app := &cli.App{
		Name: "bigram",
		Commands: []*cli.Command{{
			Name:  "run",
			Flags: Flags(),
			Action: func(c *cli.Context) error {
				cfg, err = ResolveConfig(c)
				return nil
			},
		}},
	}
	if runErr := app.Run(append([]string{"bigram", "run"}, args...)); runErr != nil {
		t.Fatalf("app.Run() error = %v", runErr)
	}
	return cfg, err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func jobConfig(inputs []string, out string) models.JobConfig {
	cfg := models.DefaultJobConfig()
	cfg.Inputs = inputs
	cfg.Output = out
	return cfg
}

// readOutput concatenates the part files of dir in partition order.
func readOutput(t *testing.T, dir string, reducers int) string {
	t.Helper()
	var sb strings.Builder
	for i := range reducers {
		data, err := os.ReadFile(filepath.Join(dir, storage.PartFileName(i)))
		if err != nil {
			t.Fatalf("reading part %d: %v", i, err)
		}
		sb.Write(data)
	}
	return sb.String()
}

func TestResolveConfig(t *testing.T) {
	cfgPath := writeFile(t, filepath.Join(t.TempDir(), "job.yaml"), "inputs: [a.txt]\noutput: out\nreducers: 2\nmappers: 3\n")

	cfg, err := resolve(t, "--config", cfgPath, "--reducers", "5", "--no-combiner", "--spill-records", "100")
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}
	if cfg.Reducers != 5 {
		t.Errorf("Reducers = %d, want flag value 5", cfg.Reducers)
	}
	if cfg.Mappers != 3 {
		t.Errorf("Mappers = %d, want file value 3", cfg.Mappers)
	}
	if cfg.Combiner || cfg.SpillRecords != 100 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Inputs) != 1 || cfg.Output != "out" {
		t.Errorf("inputs/output from file lost: %+v", cfg)
	}
}

func TestResolveConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "non-numeric reducers", args: []string{"--input", "a", "--output", "o", "--reducers", "three"}},
		{name: "zero reducers", args: []string{"--input", "a", "--output", "o", "--reducers", "0"}},
		{name: "missing output", args: []string{"--input", "a"}},
		{name: "missing input", args: []string{"--output", "o"}},
		{name: "bad cache ttl", args: []string{"--input", "a", "--output", "o", "--cache-ttl", "soon"}},
		{name: "missing config file", args: []string{"--config", "/nonexistent/job.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolve(t, tt.args...)
			if !errors.Is(err, models.ErrInvalidConfig) {
				t.Errorf("ResolveConfig() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "in", "doc.txt"), "the quick the fox\n")
	out := filepath.Join(dir, "out")
	writeFile(t, filepath.Join(out, "stale.txt"), "old output")

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer database.Close()

	cfg := jobConfig([]string{in}, out)
	report, err := Execute(context.Background(), cfg, database, discard)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "quick\t\t1.0\nquick\tthe\t1.0\nthe\t\t2.0\nthe\tfox\t0.5\nthe\tquick\t0.5\n"
	if got := readOutput(t, out, 1); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	s := &storage.Storage{}
	if !s.Succeeded(out) {
		t.Error("success marker missing")
	}
	if s.HasFile(filepath.Join(out, "stale.txt")) {
		t.Error("output directory not cleared")
	}

	summary, err := manifest.LoadSummary(out, s)
	if err != nil {
		t.Fatalf("LoadSummary() error = %v", err)
	}
	if summary.RunID != report.RunID || summary.Parts[0].Records != 5 {
		t.Errorf("summary = %+v", summary)
	}

	run, err := database.GetRunByID(report.RunID)
	if err != nil {
		t.Fatalf("GetRunByID() error = %v", err)
	}
	if run.Status != db.StatusSucceeded {
		t.Errorf("run.Status = %q, want %q", run.Status, db.StatusSucceeded)
	}
	rows, err := database.LookupBigrams(report.RunID, "the")
	if err != nil {
		t.Fatalf("LookupBigrams() error = %v", err)
	}
	if len(rows) != 3 || rows[0].Frequency != 2 {
		t.Errorf("LookupBigrams(the) = %v", rows)
	}
}

func TestExecute_SameOutputAcrossSettings(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for i := range 200 {
		lines = append(lines, strings.Repeat("to be or not ", i%5)+"that is the question")
	}
	in := writeFile(t, filepath.Join(dir, "hamlet.txt"), strings.Join(lines, "\n"))

	base := jobConfig([]string{in}, filepath.Join(dir, "base"))
	base.Reducers = 3
	if _, err := Execute(context.Background(), base, nil, discard); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	want := readOutput(t, base.Output, 3)

	variants := []func(*models.JobConfig){
		func(c *models.JobConfig) {},
		func(c *models.JobConfig) { c.Combiner = false },
		func(c *models.JobConfig) { c.SplitLines = 7; c.Mappers = 8 },
		func(c *models.JobConfig) { c.SpillRecords = 5; c.InMapperCombining = true },
	}
	for i, mutate := range variants {
		cfg := base
		cfg.Output = filepath.Join(dir, "variant")
		mutate(&cfg)
		if _, err := Execute(context.Background(), cfg, nil, discard); err != nil {
			t.Fatalf("variant %d: Execute() error = %v", i, err)
		}
		if got := readOutput(t, cfg.Output, 3); got != want {
			t.Errorf("variant %d: output differs", i)
		}
	}
}

func TestExecute_FailureRecorded(t *testing.T) {
	dir := t.TempDir()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer database.Close()

	cfg := jobConfig([]string{filepath.Join(dir, "missing.txt")}, filepath.Join(dir, "out"))
	if _, err := Execute(context.Background(), cfg, database, discard); err == nil {
		t.Fatal("Execute() error = nil, want missing input failure")
	}

	runs, err := database.ListRuns(1)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].Status != db.StatusFailed || runs[0].Error == "" {
		t.Errorf("runs = %+v, want one failed run", runs)
	}
	if (&storage.Storage{}).Succeeded(cfg.Output) {
		t.Error("success marker written for a failed run")
	}
}

func TestExecute_KeepsInputsOutsideOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "corpus", "doc.txt"), "the quick the fox\n")

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	defer database.Close()

	cfg := jobConfig([]string{in}, dir)
	if _, err := Execute(context.Background(), cfg, database, discard); !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("Execute() error = %v, want ErrInvalidConfig", err)
	}
	if !(&storage.Storage{}).HasFile(in) {
		t.Error("input deleted by output reset")
	}
}
