// Command ledger records entries and prints the ledger views in a terminal.
package main

import (
	"context"
	"fmt"
	"os"

	"fintrack/internal/cli"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}
