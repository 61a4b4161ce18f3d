package bootstrap

import (
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort       string `mapstructure:"SERVER_PORT"`
	RedisUrl         string `mapstructure:"REDIS_URL"`
	MongoUri         string `mapstructure:"MONGO_URI"`
	MongoDatabase    string `mapstructure:"MONGO_DB"`
	IsLocalCors      bool   `mapstructure:"LOCAL_CORS"`
	MistralApiKey    string `mapstructure:"MISTRAL_API_KEY"`
	MistralModels    string `mapstructure:"MISTRAL_MODELS"` // comma-separated, ordered
	AiMoveTimeoutSec int    `mapstructure:"AI_MOVE_TIMEOUT_SEC"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "chess_mate"
	}
	if cfg.MistralModels == "" {
		cfg.MistralModels = "mistral-large-latest,mistral-small-latest"
	}
	if cfg.AiMoveTimeoutSec <= 0 {
		cfg.AiMoveTimeoutSec = 10
	}

	return &cfg, nil
}
