// Command hrwatch polls wearable heart-rate data and flags spikes above
// each user's baseline.
package main

import (
	"os"

	"github.com/custodia-labs/hrwatch/internal/adapters/driving/cli"
	"github.com/custodia-labs/hrwatch/internal/logger"
)

// version is overridden at build time:
//
//	go build -ldflags "-X main.version=1.2.0" ./cmd/hrwatch
var version = "dev"

func main() {
	cli.SetVersion(version)
	err := cli.Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
