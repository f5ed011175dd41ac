package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imtihanhq/imtihanctl/internal/cli"
)

// set at build time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := cli.New(Version, BuildTime)

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
