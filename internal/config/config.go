package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	RoomIdleTimeout time.Duration `mapstructure:"room_idle_timeout"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	AIDelayMin      time.Duration `mapstructure:"ai_delay_min"`
	AIDelayMax      time.Duration `mapstructure:"ai_delay_max"`

	MsgRateLimit  int           `mapstructure:"msg_rate_limit"`
	MsgRateWindow time.Duration `mapstructure:"msg_rate_window"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("static_path", "./dist")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("room_idle_timeout", "60s")
	v.SetDefault("sweep_interval", "30s")
	v.SetDefault("ai_delay_min", "400ms")
	v.SetDefault("ai_delay_max", "900ms")
	v.SetDefault("msg_rate_limit", 40)
	v.SetDefault("msg_rate_window", "10s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Static: %s\n", cfg.Mode, cfg.Port, cfg.StaticPath)
	return &cfg, nil
}
