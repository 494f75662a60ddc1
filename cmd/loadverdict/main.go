// cmd/loadverdict/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/FairForge/loadverdict/internal/cli"
	"github.com/FairForge/loadverdict/internal/common"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(common.ExitCode(err))
}
