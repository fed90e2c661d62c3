package run

import (
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/bigram-stripes/pkg/db"
)

// Flags are the options of the run command.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Input file, directory or http(s) URL (repeatable)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory (removed and recreated)",
		},
		// Parsed by hand so a non-numeric value is reported as a config error.
		&cli.StringFlag{
			Name:    "reducers",
			Aliases: []string{"r"},
			Usage:   "Number of reduce partitions / part files",
		},
		&cli.IntFlag{
			Name:  "mappers",
			Usage: "Number of parallel map workers",
		},
		&cli.IntFlag{
			Name:  "split-lines",
			Usage: "Lines per input split",
		},
		&cli.IntFlag{
			Name:  "spill-records",
			Usage: "Spill (and combine) map output every N records; 0 spills once per split",
		},
		&cli.BoolFlag{
			Name:  "no-combiner",
			Usage: "Disable the combiner",
		},
		&cli.BoolFlag{
			Name:  "in-mapper-combining",
			Usage: "Merge stripes per line inside the mapper",
		},
		&cli.IntFlag{
			Name:  "max-attempts",
			Usage: "Attempts per task before the job fails",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML job configuration file",
		},
		&cli.StringFlag{
			Name:  "db",
			Value: db.DefaultDBName,
			Usage: "Run history database",
		},
		&cli.BoolFlag{
			Name:  "no-db",
			Usage: "Do not record the run",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Cache fetched URL inputs in this directory",
		},
		&cli.StringFlag{
			Name:  "cache-ttl",
			Usage: "Maximum age of cached URL inputs (e.g. 1h, 24h); empty never expires",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Only log errors",
		},
	}
}
