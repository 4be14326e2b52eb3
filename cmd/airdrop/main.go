// Command airdrop runs the Solana SPL token airdrop service.
//
// Usage:
//
//	airdrop serve                 # start the HTTP API
//	airdrop token --user-id ops   # issue an API token
//	airdrop migrate               # apply Postgres and ClickHouse migrations
//	airdrop validate list.csv     # check a recipient list offline
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
