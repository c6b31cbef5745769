package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bgunnarsson/sqlfacade/internal/cli"
)

var execute = func() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func main() {
	execute()
}
