package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	JWT      JWTConfig       `mapstructure:"jwt"`
	Game     GameConfig      `mapstructure:"game"`
	Admin    AdminSeedConfig `mapstructure:"admin"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type GameConfig struct {
	RoundSeconds   int   `mapstructure:"roundSeconds"`   // betting phase length
	ResultSeconds  int   `mapstructure:"resultSeconds"`  // result dwell length
	StartingWallet int64 `mapstructure:"startingWallet"` // coins for a fresh guest
	TopUpGrant     int64 `mapstructure:"topUpGrant"`     // free-coins reward size
}

type AdminSeedConfig struct {
	DefaultUsername string `mapstructure:"defaultUsername"`
	DefaultPassword string `mapstructure:"defaultPassword"`
}

var GlobalConfig *Config

func LoadConfig(path string) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	applyGameDefaults(&cfg.Game)
	GlobalConfig = &cfg
}

func applyGameDefaults(g *GameConfig) {
	if g.RoundSeconds <= 0 {
		g.RoundSeconds = 10
	}
	if g.ResultSeconds <= 0 {
		g.ResultSeconds = 3
	}
	if g.StartingWallet <= 0 {
		g.StartingWallet = 1000
	}
	if g.TopUpGrant <= 0 {
		g.TopUpGrant = 100
	}
}
