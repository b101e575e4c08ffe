package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config points the suite at a running relay. The suite is skipped when RELAY_URL is empty.
type Config struct {
	RelayURL string `envconfig:"RELAY_URL"`
	// Secrets of the two configured participants
	FirstSecret  string `envconfig:"E2E_FIRST_SECRET"`
	SecondSecret string `envconfig:"E2E_SECOND_SECRET"`
	// Must match the relay's REVEAL_DURATION
	RevealDuration time.Duration `envconfig:"E2E_REVEAL_DURATION" default:"5s"`
	// E2E_DEBUG_JSON dumps every received frame
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
