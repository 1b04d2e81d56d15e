// contestctl is the operator CLI of the contest API: database migrations, the flag
// registry and screening inspection.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wikimedia/contest-api/cmd/server/contestctl/cmds"
	"github.com/wikimedia/contest-api/internal/exiterror"
	"github.com/wikimedia/contest-api/internal/logger"
	"github.com/wikimedia/contest-api/internal/otel"
)

func runApp(ctx context.Context) int {
	shutdown, err := otel.SetupOTelSDK(ctx, "contestctl", otel.ExporterNone)
	if err != nil {
		logger.Logger.Warn("failed to setup otel sdk", "error", err)
	}
	defer func() {
		if fail := shutdown(context.Background()); fail != nil {
			logger.Logger.Warn("no clean shutdown for otel", "error", fail)
		}
	}()

	err = cmds.Execute(ctx)
	if err != nil {
		var ee exiterror.ExitError
		if errors.As(err, &ee) {
			if ee.Err != nil {
				fmt.Fprintln(os.Stderr, "Error: "+ee.Err.Error())
			}
			return ee.Code
		}

		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		return exiterror.CodeErrored
	}

	return 0
}

func main() {
	logger.InitSlog(slog.LevelWarn)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	code := runApp(ctx)
	cancel()

	os.Exit(code)
}
