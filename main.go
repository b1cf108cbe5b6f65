package main

import (
	"github.com/rs/zerolog/log"

	"wedding-gate/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
