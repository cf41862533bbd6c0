package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Receiver ReceiverConfig `mapstructure:"receiver"`
	Trunk    TrunkConfig    `mapstructure:"trunk"`
	Iden     IdenConfig     `mapstructure:"iden"`
	Web      WebConfig      `mapstructure:"web"`
	Database DatabaseConfig `mapstructure:"database"`
	RadioID  RadioIDConfig  `mapstructure:"radioid"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds server identification.
type ServerConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// ReceiverConfig holds the C1/C2 symbol-source and protocol-enablement
// configuration: where dibits come from and which protocol families the
// dispatch table should register handlers for.
type ReceiverConfig struct {
	// Source is "file" or "live".
	Source string `mapstructure:"source"`
	// InputFile is the path to a packed-dibit capture, used when Source is "file".
	InputFile string `mapstructure:"input_file"`
	// TEDSps is the default timing-error-detector samples-per-symbol
	// passed to tuner hooks on retune.
	TEDSps int `mapstructure:"ted_sps"`
	// Protocols lists the enabled protocol families by name (e.g.
	// "p25p1", "p25p2", "dmr", "nxdn", "dstar", "ysf", "m17", "x2tdma",
	// "edacs", "dpmr"). An empty list enables all of them.
	Protocols []string `mapstructure:"protocols"`
	// SyncTolerance is the default Hamming-distance tolerance applied to
	// every registered sync pattern.
	SyncTolerance int `mapstructure:"sync_tolerance"`

	// Artifacts configures optional recording/export sinks.
	Artifacts ArtifactConfig `mapstructure:"artifacts"`
}

// ArtifactConfig configures the optional file-output writers in pkg/artifact.
type ArtifactConfig struct {
	MBEDumpPath  string `mapstructure:"mbe_dump_path"`  // empty disables
	LRRPLogPath  string `mapstructure:"lrrp_log_path"`  // empty disables
	EventLogPath string `mapstructure:"event_log_path"` // empty disables
}

// TrunkConfig holds the C5 trunking state machine's timing knobs and
// follow policy, plus the known-good primary control channel frequency.
type TrunkConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	PrimaryCCFreqHz    uint64  `mapstructure:"primary_cc_freq_hz"`
	Hangtime           float64 `mapstructure:"hangtime"`
	RetuneBackoff      float64 `mapstructure:"retune_backoff"`
	CCHuntGrace        float64 `mapstructure:"cc_hunt_grace"`
	ForceReleaseMargin float64 `mapstructure:"force_release_margin"`
	GrantVoiceTimeout  float64 `mapstructure:"grant_voice_timeout"`

	FollowGroups     bool `mapstructure:"follow_groups"`
	FollowPrivate    bool `mapstructure:"follow_private"`
	FollowData       bool `mapstructure:"follow_data"`
	FollowEncrypted  bool `mapstructure:"follow_encrypted"`
	PreferCandidates bool `mapstructure:"prefer_candidates"`
	LCWRetune        bool `mapstructure:"lcw_retune"`

	CandidateFreqsHz []uint64 `mapstructure:"candidate_freqs_hz"`
}

// IdenConfig points at an optional CSV band-plan file imported into the
// trunk state machine's identifier table at startup.
type IdenConfig struct {
	BandPlanFile string `mapstructure:"band_plan_file"` // empty skips import
}

// WebConfig holds web dashboard configuration.
type WebConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	AuthRequired bool   `mapstructure:"auth_required"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
}

// DatabaseConfig holds call-history persistence configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RadioIDConfig holds DMR ID -> callsign directory sync configuration.
type RadioIDConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MQTTConfig holds MQTT client configuration.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/dsd-nexus")
	}

	viper.SetEnvPrefix("DSDRX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults.
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - also OK.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.name", "dsd-nexus")
	viper.SetDefault("server.description", "Software-defined digital voice receiver core")

	// Receiver defaults
	viper.SetDefault("receiver.source", "live")
	viper.SetDefault("receiver.ted_sps", 10)
	viper.SetDefault("receiver.sync_tolerance", 2)
	viper.SetDefault("receiver.protocols", []string{})

	// Trunk defaults
	viper.SetDefault("trunk.enabled", false)
	viper.SetDefault("trunk.hangtime", 2.0)
	viper.SetDefault("trunk.retune_backoff", 1.0)
	viper.SetDefault("trunk.cc_hunt_grace", 3.0)
	viper.SetDefault("trunk.force_release_margin", 0.5)
	viper.SetDefault("trunk.grant_voice_timeout", 1.5)
	viper.SetDefault("trunk.follow_groups", true)
	viper.SetDefault("trunk.follow_private", false)
	viper.SetDefault("trunk.follow_data", false)
	viper.SetDefault("trunk.follow_encrypted", false)
	viper.SetDefault("trunk.prefer_candidates", true)
	viper.SetDefault("trunk.lcw_retune", true)

	// Web defaults
	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
	viper.SetDefault("web.auth_required", false)

	// Database defaults
	viper.SetDefault("database.path", "data/dsd-nexus.db")

	// RadioID defaults
	viper.SetDefault("radioid.enabled", false)

	// MQTT defaults
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.topic_prefix", "dsd/nexus")
	viper.SetDefault("mqtt.client_id", "dsd-nexus")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retained", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 7)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.host", "0.0.0.0")
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("metrics.path", "/metrics")
}
