// shopctl drives a shopping session from the terminal.
//
// Examples:
//
//	shopctl login --token $TOKEN --remember
//	shopctl cart add 64f1c0 M
//	shopctl cart qty 64f1c0 M 3
//	shopctl wishlist toggle 64f1c0
//	shopctl order place --street "1 Main St" --city Springfield --state IL \
//	    --zip 62701 --country US --mobile 5551234567 --email jo@example.com
//	shopctl --format json orders
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"shopsync/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewRootCommand(cli.OpenFromConfig), os.Args[1:])
	stop()
	os.Exit(code)
}
