// Package main is the entry point for shadercachec, the shader cache
// prebuild and inspection tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/shadercache/cmd/shadercachec/commands"

	_ "github.com/gogpu/shadercache/backend/naga"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cli := commands.New()
	if err := cli.Execute(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
