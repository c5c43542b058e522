package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AggregateConfig tunes the per-request fan-out.
type AggregateConfig struct {
	// Concurrency bounds how many universes are fetched at once. 1 is fully sequential.
	Concurrency int `mapstructure:"concurrency"`
	// MaxDiscoveryPages caps discovery pagination. 0 disables the cap.
	MaxDiscoveryPages int `mapstructure:"maxDiscoveryPages"`
}

const maxAggregateConcurrency = 32

func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{
		Concurrency:       4,
		MaxDiscoveryPages: 100,
	}
}

type AggregateConfigHolder struct {
	current atomic.Value // holds AggregateConfig
}

// NewAggregateConfigHolder reads gamepasses.yml when present and keeps it hot-reloaded.
func NewAggregateConfigHolder(log *zap.Logger) (*AggregateConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("gamepasses")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/gamepasses")
	v.AddConfigPath(".")

	return newAggregateConfigHolder(v, log, true)
}

// NewStaticAggregateConfigHolder returns a holder that never reloads.
func NewStaticAggregateConfigHolder(cfg AggregateConfig) *AggregateConfigHolder {
	holder := &AggregateConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func newAggregateConfigHolder(v *viper.Viper, log *zap.Logger, watch bool) (*AggregateConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("aggregate.config")

	defaults := DefaultAggregateConfig()
	v.SetDefault("aggregate.concurrency", defaults.Concurrency)
	v.SetDefault("aggregate.maxDiscoveryPages", defaults.MaxDiscoveryPages)

	v.SetEnvPrefix("GAMEPASSES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg AggregateConfig
	if err := v.UnmarshalKey("aggregate", &cfg); err != nil {
		return nil, err
	}
	if err := validateAggregateConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticAggregateConfigHolder(cfg)

	if watch && fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated AggregateConfig
			if err := v.UnmarshalKey("aggregate", &updated); err != nil {
				log.Warn("reload failed", zap.String("file", e.Name), zap.Error(err))
				return
			}
			if err := validateAggregateConfig(updated); err != nil {
				log.Warn("invalid config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("reloaded",
				zap.String("file", e.Name),
				zap.Int("concurrency", updated.Concurrency),
				zap.Int("max_discovery_pages", updated.MaxDiscoveryPages),
			)
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *AggregateConfigHolder) Get() AggregateConfig {
	if h == nil {
		return DefaultAggregateConfig()
	}
	cfg, ok := h.current.Load().(AggregateConfig)
	if !ok {
		return DefaultAggregateConfig()
	}
	return cfg
}

func validateAggregateConfig(cfg AggregateConfig) error {
	if cfg.Concurrency < 1 || cfg.Concurrency > maxAggregateConcurrency {
		return errors.New("aggregate.concurrency must be between 1 and 32")
	}
	if cfg.MaxDiscoveryPages < 0 {
		return errors.New("aggregate.maxDiscoveryPages cannot be negative")
	}
	return nil
}
