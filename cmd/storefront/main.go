// Command storefront runs the chat storefront backend and its admin tools.
//
//	@title			go-storefront API
//	@version		1.0
//	@description	Chat-driven digital goods storefront: catalog, payment sessions and downloads.
//	@BasePath		/api/v1
package main

import (
	"fmt"
	"os"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
