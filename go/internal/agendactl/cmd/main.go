package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/mcdev12/streamagenda/go/internal/agendactl"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	if err := agendactl.Execute(); err != nil {
		os.Exit(1)
	}
}
