package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings holds process configuration read from the environment.
type Settings struct {
	Addr        string        `env:"SIMON_ADDR" envDefault:"0.0.0.0:5000"`
	BoardsFile  string        `env:"SIMON_BOARDS_FILE"`
	StaticDir   string        `env:"SIMON_STATIC_DIR" envDefault:"./static"`
	TurnTimeout time.Duration `env:"SIMON_TURN_TIMEOUT" envDefault:"10s"`
	Debug       bool          `env:"SIMON_DEBUG"`

	PreShowDelay    time.Duration `env:"SIMON_PRESHOW_DELAY" envDefault:"1500ms"`
	StepDelay       time.Duration `env:"SIMON_STEP_DELAY" envDefault:"1s"`
	LevelPauseDelay time.Duration `env:"SIMON_LEVEL_PAUSE" envDefault:"2500ms"`

	Discovery Discovery `envPrefix:"SIMON_DISCOVERY_"`
	Ngrok     Ngrok     `envPrefix:"NGROK_"`
}

// Discovery configures the multicast beacon boards use to find the server.
type Discovery struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Group    string        `env:"GROUP" envDefault:"224.1.1.1:5007"`
	Message  string        `env:"MESSAGE" envDefault:"ESP8266_SERVER_HERE"`
	Interval time.Duration `env:"INTERVAL" envDefault:"5s"`
	TTL      int           `env:"TTL" envDefault:"2"`
}

// Ngrok configures the optional public tunnel.
type Ngrok struct {
	Enabled   bool   `env:"ENABLED"`
	AuthToken string `env:"AUTHTOKEN"`
	Domain    string `env:"DOMAIN"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := ParseEnv(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
