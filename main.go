package main

import (
	"os"

	"github.com/tradecouncil/tradecouncil/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
