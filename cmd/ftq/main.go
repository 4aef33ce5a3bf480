// Command ftq is the fixed time quantum OS noise benchmark.
package main

import (
	"fmt"
	"os"

	"github.com/danpilch/ftq/pkg/cli"
)

func main() {
	if err := cli.NewFTQCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ftq: %v\n", err)
		os.Exit(1)
	}
}
