package config

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/starkex-recovery/disbursal-service/admin"
	"github.com/starkex-recovery/disbursal-service/db"
	"github.com/starkex-recovery/disbursal-service/etherman"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/metrics"
	"github.com/starkex-recovery/disbursal-service/server"
)

// Config struct
type Config struct {
	Log      log.Config
	Database db.Config
	Etherman etherman.Config
	Admin    admin.Config
	Server   server.Config
	Metrics  metrics.Config
}

// Load loads the configuration
func Load(configFilePath string) (*Config, error) {
	var cfg Config
	viper.SetConfigType("toml")

	err := viper.ReadConfig(bytes.NewBuffer([]byte(DefaultValues)))
	if err != nil {
		return nil, err
	}
	err = viper.Unmarshal(&cfg, viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc()))
	if err != nil {
		return nil, err
	}
	if configFilePath != "" {
		dirName, fileName := filepath.Split(configFilePath)

		fileExtension := strings.TrimPrefix(filepath.Ext(fileName), ".")
		fileNameWithoutExtension := strings.TrimSuffix(fileName, "."+fileExtension)

		viper.AddConfigPath(dirName)
		viper.SetConfigName(fileNameWithoutExtension)
		viper.SetConfigType(fileExtension)
	}
	viper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.SetEnvPrefix("DISBURSAL")
	err = viper.ReadInConfig()
	if err != nil {
		_, ok := err.(viper.ConfigFileNotFoundError)
		if ok {
			log.Infof("config file not found")
		} else {
			log.Infof("error reading config file: %v", err)
			return nil, err
		}
	}

	err = viper.Unmarshal(&cfg, viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc()))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
