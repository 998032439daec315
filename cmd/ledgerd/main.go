package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"game-economy-ledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ledgerd: %v\n", err)
		os.Exit(1)
	}
}
