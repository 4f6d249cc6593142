package main

import (
	"os"

	"smart-parking/internal/logging"
)

func main() {
	if err := Execute(); err != nil {
		logging.Logger().Error().Err(err).Msg("smart-parking exited")
		os.Exit(1)
	}
}
