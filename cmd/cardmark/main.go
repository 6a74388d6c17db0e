package main

import (
	"os"

	"github.com/dshills/cardmark/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
