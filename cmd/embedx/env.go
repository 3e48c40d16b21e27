package main

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// envPrefix scopes the library settings read by config.WithEnv
const envPrefix = "EMBED_"

// Env holds the settings only the CLI knows about. Provider, output and
// server settings are read by config.WithEnv under the same prefix.
type Env struct {
	Manifest string `env:"EMBED_MANIFEST" env-description:"manifest file, empty for the bundled one"`
}

func readEnv() (Env, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Env{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	return env, nil
}
