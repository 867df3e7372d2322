// Package main provides the dedupe CLI: in-process duplicate scans and a
// front end for the dedupd daemon.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
