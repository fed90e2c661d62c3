package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	dbcmd "github.com/dtnitsch/bigram-stripes/internal/db"
	"github.com/dtnitsch/bigram-stripes/internal/run"
	"github.com/dtnitsch/bigram-stripes/internal/stream"
	"github.com/dtnitsch/bigram-stripes/pkg/db"
	"github.com/dtnitsch/bigram-stripes/pkg/help"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// Errors reaching here are usage errors (bad flags, unknown commands);
		// action failures exit through cli.Exit with their own status.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{
		Name:  "db",
		Value: db.DefaultDBName,
		Usage: "Run history database",
	}

	return &cli.App{
		Name:  "bigram",
		Usage: "Bigram relative frequencies with the stripes MapReduce pattern",
		Action: func(c *cli.Context) error {
			fmt.Print(help.ColdstartYAML)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Run the full job locally and write part files to the output directory",
				UsageText: "bigram run --input PATH [--input PATH...] --output DIR [--reducers N]",
				Flags:     run.Flags(),
				Action:    run.RunAction,
			},
			{
				Name:  "map",
				Usage: "Streaming mapper: text lines on stdin, key<TAB>stripe records on stdout",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "in-mapper-combining",
						Usage: "Emit one merged stripe per left word and line",
					},
				},
				Action: stream.MapAction,
			},
			{
				Name:   "combine",
				Usage:  "Streaming combiner: key-sorted records on stdin, merged records on stdout",
				Action: stream.CombineAction,
			},
			{
				Name:   "reduce",
				Usage:  "Streaming reducer: key-sorted records on stdin, left<TAB>right<TAB>frequency on stdout",
				Action: stream.ReduceAction,
			},
			{
				Name:  "runs",
				Usage: "List recorded runs, newest first",
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Maximum number of runs to list",
					},
				},
				Action: dbcmd.RunsAction,
			},
			{
				Name:      "show",
				Usage:     "Show details of a run (latest if no ID given)",
				ArgsUsage: "[RUN_ID]",
				Flags:     []cli.Flag{dbFlag},
				Action:    dbcmd.ShowAction,
			},
			{
				Name:      "query",
				Usage:     "Print the stored total and frequencies for a left word",
				ArgsUsage: "WORD",
				Flags: []cli.Flag{
					dbFlag,
					&cli.Int64Flag{
						Name:  "run",
						Usage: "Run ID (latest if omitted)",
					},
				},
				Action: dbcmd.QueryAction,
			},
		},
	}
}
