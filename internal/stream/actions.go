package stream

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func MapAction(c *cli.Context) error {
	if err := Map(os.Stdin, os.Stdout, c.Bool("in-mapper-combining")); err != nil {
		return cli.Exit(fmt.Sprintf("map failed: %v", err), 1)
	}
	return nil
}

func CombineAction(c *cli.Context) error {
	if err := Combine(os.Stdin, os.Stdout); err != nil {
		return cli.Exit(fmt.Sprintf("combine failed: %v", err), 1)
	}
	return nil
}

func ReduceAction(c *cli.Context) error {
	if err := Reduce(os.Stdin, os.Stdout); err != nil {
		return cli.Exit(fmt.Sprintf("reduce failed: %v", err), 1)
	}
	return nil
}
