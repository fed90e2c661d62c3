package db

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	dbpkg "github.com/dtnitsch/bigram-stripes/pkg/db"
)

// GetRunIDOrLatest returns the run ID from args, or the latest run if not provided
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		return latestRunID(database)
	}

	runID, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run ID: %s", c.Args().First())
	}
	return runID, nil
}

// latestRunID returns the most recently created run.
func latestRunID(database *dbpkg.DB) (int64, error) {
	runs, err := database.ListRuns(1)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	if len(runs) == 0 {
		return 0, fmt.Errorf("no runs found. Run 'bigram run --input ... --output ...' first")
	}
	return runs[0].RunID, nil
}

func openDB(c *cli.Context) (*dbpkg.DB, error) {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
