package main

import (
	"os"

	"github.com/dshills/funnel/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
