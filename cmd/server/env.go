package main

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// serverEnv overrides flag values. Unset variables keep the flag value.
type serverEnv struct {
	Addr         string `env:"RB_ADDR"`
	DataDir      string `env:"RB_DATA_DIR"`
	ConfigPath   string `env:"RB_CONFIG"`
	LangDir      string `env:"RB_LANG_DIR"`
	ConsoleToken string `env:"RB_CONSOLE_TOKEN"`
	PlayerSecret string `env:"RB_PLAYER_SECRET"`
	AdminHTTP    bool   `env:"RB_ENABLE_ADMIN_HTTP"`
	PprofHTTP    bool   `env:"RB_ENABLE_PPROF_HTTP"`
	DeployEnv    string `env:"DEPLOY_ENV"`
}

func parseEnv(e *serverEnv) error {
	if err := env.Parse(e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func defaultEnableAdminHTTP(deployEnv string) bool {
	switch strings.ToLower(strings.TrimSpace(deployEnv)) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
