package main

import (
	"flashsell-engine/app"
	"flashsell-engine/config"
	"flashsell-engine/logging"
)

func main() {
	// Load config from .env file
	cfg := config.LoadFromEnv()

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Create and start app
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		logging.Fatal().Err(err).Msg("flashsell engine exited")
	}
}
