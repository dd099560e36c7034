package main

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type demoConfig struct {
	Data struct {
		Root               string `mapstructure:"root"`
		ValueLogFileSizeMB int64  `mapstructure:"value_log_file_size_mb"`
	} `mapstructure:"Data"`
	Document string   `mapstructure:"document"`
	Replicas []string `mapstructure:"replicas"`
	GC       struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"GC"`
	Debug bool `mapstructure:"debug"`
}

// initConfig 读取 YAML 配置。path 为空时在 ./config 和当前目录下查找 demoConfig.yaml，
// 找不到配置文件时使用默认值。
func initConfig(path string) (*demoConfig, error) {
	cfg := &demoConfig{}
	v := viper.New()
	v.SetDefault("Data.root", "./tmp/yep_text_demo")
	v.SetDefault("Data.value_log_file_size_mb", 64)
	v.SetDefault("document", "notes")
	v.SetDefault("replicas", []string{"alice", "bob"})
	v.SetDefault("GC.interval", "30s")
	v.SetDefault("debug", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("demoConfig")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if len(cfg.Replicas) < 2 {
		return nil, errors.New("at least two replicas are required")
	}
	return cfg, nil
}
