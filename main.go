package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ardnew/pyplay/cli"
	"github.com/ardnew/pyplay/cli/cmd"
	"github.com/ardnew/pyplay/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cli.Run(ctx, os.Exit, os.Args[1:]...)

	stop()

	if err != nil {
		// failed programs and exercises already printed their own report
		if !cmd.Reported(err) {
			log.Error("run failed", slog.Any("error", err))
		}

		os.Exit(1)
	}
}
