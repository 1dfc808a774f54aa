package main

import (
	"os"

	"github.com/danmuck/cs2kit/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()
	if err := newApp().Run(os.Args); err != nil {
		log.Error().Err(err).Msg("cs2ctl failed")
		os.Exit(1)
	}
}
