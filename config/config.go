package config

import (
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
}

type TransportConfig struct {
	PingIntervalSeconds  int `mapstructure:"ping_interval_seconds"`
	ReconnectMaxAttempts int `mapstructure:"reconnect_max_attempts"`
	ReconnectStepSeconds int `mapstructure:"reconnect_step_seconds"`
}

type PollConfig struct {
	ConversationsSeconds int `mapstructure:"conversations_seconds"`
	MessagesSeconds      int `mapstructure:"messages_seconds"`
	LogoutCheckSeconds   int `mapstructure:"logout_check_seconds"`
}

type StorageConfig struct {
	// Backend selects the durable key-value store: memory, file or redis.
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Addr    string `mapstructure:"addr"`
	Pass    string `mapstructure:"password"`
	DB      int    `mapstructure:"db"`
	Prefix  string `mapstructure:"prefix"`
}

type AssistantConfig struct {
	TranscriptCap int `mapstructure:"transcript_cap"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Poll      PollConfig      `mapstructure:"poll"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	LogLevel  string          `mapstructure:"log_level"`

	// derived
	PingInterval      time.Duration
	ReconnectStep     time.Duration
	ConversationsPoll time.Duration
	MessagesPoll      time.Duration
	LogoutCheck       time.Duration
}

// Load reads the config file at path and applies defaults. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns a config usable without a config file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080/api"
	}
	if c.Server.WSURL == "" {
		c.Server.WSURL = "ws://localhost:8080/api/chat/ws"
	}
	if c.Transport.PingIntervalSeconds == 0 {
		c.Transport.PingIntervalSeconds = 30
	}
	if c.Transport.ReconnectMaxAttempts == 0 {
		c.Transport.ReconnectMaxAttempts = 5
	}
	if c.Transport.ReconnectStepSeconds == 0 {
		c.Transport.ReconnectStepSeconds = 2
	}
	if c.Poll.ConversationsSeconds == 0 {
		c.Poll.ConversationsSeconds = 30
	}
	if c.Poll.MessagesSeconds == 0 {
		c.Poll.MessagesSeconds = 5
	}
	if c.Poll.LogoutCheckSeconds == 0 {
		c.Poll.LogoutCheckSeconds = 2
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Assistant.TranscriptCap == 0 {
		c.Assistant.TranscriptCap = 200
	}

	c.PingInterval = time.Duration(c.Transport.PingIntervalSeconds) * time.Second
	c.ReconnectStep = time.Duration(c.Transport.ReconnectStepSeconds) * time.Second
	c.ConversationsPoll = time.Duration(c.Poll.ConversationsSeconds) * time.Second
	c.MessagesPoll = time.Duration(c.Poll.MessagesSeconds) * time.Second
	c.LogoutCheck = time.Duration(c.Poll.LogoutCheckSeconds) * time.Second
}
