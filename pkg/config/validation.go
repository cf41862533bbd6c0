package config

import "fmt"

// validate validates the configuration.
func validate(cfg *Config) error {
	switch cfg.Receiver.Source {
	case "file":
		if cfg.Receiver.InputFile == "" {
			return fmt.Errorf("receiver.input_file is required when receiver.source is \"file\"")
		}
	case "live":
		// A live source is wired by cmd/dsdrx to a concrete front end;
		// no file path is required here.
	default:
		return fmt.Errorf("receiver.source must be \"file\" or \"live\", got %q", cfg.Receiver.Source)
	}
	if cfg.Receiver.TEDSps <= 0 {
		return fmt.Errorf("receiver.ted_sps must be positive")
	}
	if cfg.Receiver.SyncTolerance < 0 {
		return fmt.Errorf("receiver.sync_tolerance must not be negative")
	}

	if cfg.Trunk.Enabled && cfg.Trunk.PrimaryCCFreqHz == 0 {
		return fmt.Errorf("trunk.primary_cc_freq_hz is required when trunk is enabled")
	}

	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be between 1 and 65535")
		}
	}

	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	return nil
}
