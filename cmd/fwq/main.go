// Command fwq is the fixed work quantum OS noise benchmark.
package main

import (
	"fmt"
	"os"

	"github.com/danpilch/ftq/pkg/cli"
)

func main() {
	if err := cli.NewFWQCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fwq: %v\n", err)
		os.Exit(1)
	}
}
