// Command tabsync inspects and edits the local social data store.
//
// Usage:
//
//	tabsync --config tabsync.yaml tables
//	tabsync put posts '{"author_id":"u1","text":"hello"}'
//	tabsync watch posts
package main

import (
	"context"
	"os"

	"github.com/roach88/tabsync/internal/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
