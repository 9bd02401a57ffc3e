package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/gonewx/particlesim/pkg/telemetry"
)

// EnvPrefix is prepended to every runner environment variable.
const EnvPrefix = "PARTICLESIM_"

// RunnerEnv 命令行工具的环境变量配置
type RunnerEnv struct {
	Scene   string `env:"SCENE" envDefault:"data/scenes/fountain.yaml"`
	OutDir  string `env:"OUT_DIR" envDefault:"out"`
	Workers int    `env:"WORKERS"` // 覆盖场景里的 worker 数，0 表示不覆盖

	Chart        bool   `env:"CHART" envDefault:"true"`
	GPUPrecision string `env:"GPU_PRECISION" envDefault:"float32"`
	Profile      string `env:"PROFILE"` // cpu, mem 或空
	History      bool   `env:"HISTORY" envDefault:"true"`

	Log   telemetry.LogConfig
	Trace telemetry.TraceConfig
}

// ParseRunnerEnv reads the PARTICLESIM_* variables of the process.
func ParseRunnerEnv() (RunnerEnv, error) {
	return parseRunnerEnv(env.Options{Prefix: EnvPrefix})
}

// ParseRunnerEnvFrom reads the variables from environ instead of the process.
func ParseRunnerEnvFrom(environ map[string]string) (RunnerEnv, error) {
	return parseRunnerEnv(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func parseRunnerEnv(opts env.Options) (RunnerEnv, error) {
	var cfg RunnerEnv
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Profile {
	case "", "cpu", "mem":
	default:
		return cfg, fmt.Errorf("parse env: %sPROFILE must be cpu or mem, got %q", EnvPrefix, cfg.Profile)
	}
	if cfg.Workers < 0 {
		return cfg, fmt.Errorf("parse env: %sWORKERS must be >= 0", EnvPrefix)
	}
	return cfg, nil
}
