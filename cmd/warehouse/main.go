// Command warehouse loads scraped Telegram data from the data lake into the
// warehouse, processes object detector output, and serves the query API.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/tbourn/telegram-warehouse/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	if err := cli.NewRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
