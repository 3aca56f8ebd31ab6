// Command searchctl runs keyword queries against the configured posting store
// and manages a local development index.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
