// Package config reifies the module-level settings the original indexer
// read from Django settings/environment as an explicit, constructor-injected
// Config struct (see SPEC_FULL.md §9, "Global state -> explicit
// collaborators"), loaded via viper from environment variables and an
// optional config file, environment winning over the file; the CLI's own
// flags are applied on top by each subcommand.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries every knob the pipeline, loader, resolver and CLI need.
// None of it is read from package-level globals at runtime.
type Config struct {
	GetChunkSize  int // items fetched per Item Source chunk
	SaveChunkSize int // rows per Bulk Loader slice (max_chunk_size)
	GroupSize     int // items per import window in a chord fan-out (S in spec.md §4.6)

	StoreDSN           string
	ItemSourceBaseURL  string
	ItemSourceAPIKey   string
	BrokerURL          string

	MaxNetworkRetries int
	RetryBaseDelay    time.Duration

	RSSThresholdBytes int64 // resolver cache clears if RSS exceeds this; 0 disables

	OlderThanMinutes int // check_unfinished's staleness threshold
}

// Defaults mirror the original management commands' argparse defaults
// (import_dump --get_chunk_size=1000 --save_chunk_size=1000,
// check_unfinished --older_than=24*60). There is a single GetChunkSize, so
// prepare-dump's fetch chunk also defaults to 1000 rather than the original
// prepare_dump --chunk_size=5000.
func Defaults() Config {
	return Config{
		GetChunkSize:      1000,
		SaveChunkSize:     1000,
		GroupSize:         10,
		MaxNetworkRetries: 10,
		RetryBaseDelay:    5 * time.Second,
		OlderThanMinutes:  24 * 60,
	}
}

// Load builds a Config from environment variables (WDF_ prefix; the chunk
// sizes are also read from plain GET_CHUNK_SIZE and SAVE_CHUNK_SIZE) and an
// optional config file at configPath, with environment winning over file
// which wins over Defaults(). It binds no command-line flags.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("WDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("get_chunk_size", "WDF_GET_CHUNK_SIZE", "GET_CHUNK_SIZE")
	_ = v.BindEnv("save_chunk_size", "WDF_SAVE_CHUNK_SIZE", "SAVE_CHUNK_SIZE")

	v.SetDefault("get_chunk_size", cfg.GetChunkSize)
	v.SetDefault("save_chunk_size", cfg.SaveChunkSize)
	v.SetDefault("group_size", cfg.GroupSize)
	v.SetDefault("max_network_retries", cfg.MaxNetworkRetries)
	v.SetDefault("older_than_minutes", cfg.OlderThanMinutes)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}

	cfg.GetChunkSize = v.GetInt("get_chunk_size")
	cfg.SaveChunkSize = v.GetInt("save_chunk_size")
	cfg.GroupSize = v.GetInt("group_size")
	cfg.StoreDSN = v.GetString("store_dsn")
	cfg.ItemSourceBaseURL = v.GetString("itemsource_base_url")
	cfg.ItemSourceAPIKey = v.GetString("itemsource_apikey")
	cfg.BrokerURL = v.GetString("broker_url")
	cfg.MaxNetworkRetries = v.GetInt("max_network_retries")
	cfg.OlderThanMinutes = v.GetInt("older_than_minutes")
	cfg.RSSThresholdBytes = v.GetInt64("rss_threshold_bytes")

	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = 5 * time.Second
	}

	return cfg, nil
}

// CopySafeEntities lists entities the Bulk Loader always routes through the
// fast path, bypassing the wide-text-column downgrade (spec.md §4.2's
// copy_safe allow-list). SKU.Title is bounded at 512 chars, so it is safe
// despite being the longest column most entities carry.
var CopySafeEntities = map[string]bool{
	"marketplace":    true,
	"brand":          true,
	"seller_dict":    true,
	"catalog":        true,
	"parameter_dict": true,
	"sku":            true,
	"version":        true,
	"price":          true,
	"rating":         true,
	"sales":          true,
	"reviews":        true,
	"position":       true,
	"seller_fact":    true,
}
