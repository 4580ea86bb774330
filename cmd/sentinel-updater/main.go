// Command sentinel-updater collects spec contributions into the sentinel database
package main

import (
	"context"
	"os"

	"sentinel/internal/cli"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
)

func main() {
	if err := cli.New().ExecuteContext(context.Background()); err != nil {
		logger.Get().Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("sentinel-updater failed")
		os.Exit(perr.ExitCode(err))
	}
}
