// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/robalobadob/numguess/apps/go-server/internal/game"
)

// Config is the full server configuration. Every field has an env key.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/app.db"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"numguess_token"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	Env            string `env:"NODE_ENV" envDefault:"development"`

	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`

	GameMin         int `env:"GAME_MIN" envDefault:"1"`
	GameMax         int `env:"GAME_MAX" envDefault:"100"`
	GameMaxAttempts int `env:"GAME_MAX_ATTEMPTS" envDefault:"10"`

	WSGuessInterval time.Duration `env:"WS_GUESS_INTERVAL" envDefault:"200ms"`
	WSGuessBurst    int           `env:"WS_GUESS_BURST" envDefault:"5"`
}

// Load parses the process environment into a Config. The game range is
// not checked here so command line flags can still override it; call
// Validate once all overrides are applied.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// Validate checks the settings that feed the game engine.
func (c Config) Validate() error {
	return c.Game(nil).Validate()
}

// Production reports whether cookies should be marked Secure.
func (c Config) Production() bool { return c.Env == "production" }

// JWTTTL is the token lifetime.
func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTExpiresDays) * 24 * time.Hour
}

// Game returns the engine configuration; a nil src keeps the engine default.
func (c Config) Game(src game.RandomSource) game.Config {
	return game.Config{
		Min:         c.GameMin,
		Max:         c.GameMax,
		MaxAttempts: c.GameMaxAttempts,
		Rand:        src,
	}
}
