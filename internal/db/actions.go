package db

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/dtnitsch/bigram-stripes/pkg/db"
	"github.com/dtnitsch/bigram-stripes/pkg/output"
)

func RunsAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to list runs: %v", err), 1)
	}

	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(w io.Writer, runs []dbpkg.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return
	}

	// Print table header
	fmt.Fprintf(w, "%-6s %-20s %-10s %-8s %-10s %-10s %-30s\n",
		"ID", "Created", "Status", "Reducers", "Records", "Duration", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-10s %-8d %-10d %-10s %-30s\n",
			r.RunID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Status,
			r.Reducers,
			r.Counters["reduce_output_records"],
			r.Duration.String(),
			r.OutputDir,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'bigram show <id>' to see details\n")
}

// ShowAction shows details for a specific run
func ShowAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	run, err := database.GetRunByID(runID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to get run: %v", err), 1)
	}

	printRun(os.Stdout, run)
	return nil
}

func printRun(w io.Writer, r *dbpkg.Run) {
	fmt.Fprintf(w, "Run %d\n", r.RunID)
	fmt.Fprintf(w, "  Created:     %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Status:      %s\n", r.Status)
	if r.Error != "" {
		fmt.Fprintf(w, "  Error:       %s\n", r.Error)
	}
	fmt.Fprintf(w, "  Output:      %s\n", r.OutputDir)
	fmt.Fprintf(w, "  Reducers:    %d\n", r.Reducers)
	fmt.Fprintf(w, "  Combiner:    %t (in-mapper: %t)\n", r.Combiner, r.InMapperCombining)
	fmt.Fprintf(w, "  Duration:    %s\n", r.Duration)
	fmt.Fprintf(w, "  Fingerprint: %s\n", r.InputFingerprint)

	fmt.Fprintf(w, "\nInputs (%d):\n", len(r.Inputs))
	for _, in := range r.Inputs {
		fmt.Fprintf(w, "  %s\n", in)
	}

	if len(r.Counters) > 0 {
		fmt.Fprintln(w, "\nCounters:")
		for _, name := range slices.Sorted(maps.Keys(r.Counters)) {
			fmt.Fprintf(w, "  %-24s %d\n", name, r.Counters[name])
		}
	}
}

// QueryAction prints the stored total and relative frequencies for one left word.
func QueryAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: bigram query [--run ID] WORD", 2)
	}
	word := c.Args().First()

	database, err := openDB(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer database.Close()

	runID := c.Int64("run")
	if runID == 0 {
		runID, err = latestRunID(database)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	rows, err := database.LookupBigrams(runID, word)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(rows) == 0 {
		fmt.Printf("No bigrams starting with %q in run %d\n", word, runID)
		return nil
	}

	printBigrams(os.Stdout, rows)
	return nil
}

func printBigrams(w io.Writer, rows []dbpkg.BigramRow) {
	for _, b := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Left, b.Right, output.FormatFrequency(float32(b.Frequency)))
	}
}
