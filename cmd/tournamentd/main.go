// Package main is the entry point for the tournament service daemon.
package main

import (
	"os"

	"casino-tournaments/cmd/tournamentd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
