package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Franja is one hour-of-day bucket used by the dashboard aggregations.
// Start is inclusive, End exclusive.
type Franja struct {
	Label string `mapstructure:"label"`
	Start int    `mapstructure:"start"`
	End   int    `mapstructure:"end"`
}

// FranjaConfig holds the hour buckets and the dashboard cache TTL.
type FranjaConfig struct {
	Franjas         []Franja `mapstructure:"franjas"`
	CacheTTLSeconds int      `mapstructure:"cacheTTLSeconds"`
}

func DefaultFranjaConfig() FranjaConfig {
	return FranjaConfig{
		Franjas: []Franja{
			{Label: "Madrugada", Start: 0, End: 5},
			{Label: "Mañana", Start: 5, End: 12},
			{Label: "Tarde", Start: 12, End: 18},
			{Label: "Noche", Start: 18, End: 24},
		},
		CacheTTLSeconds: 120,
	}
}

// FranjaConfigHolder exposes the current FranjaConfig and hot-reloads it
// when the backing YAML file changes.
type FranjaConfigHolder struct {
	current atomic.Value // holds FranjaConfig
}

func NewFranjaConfigHolder() (*FranjaConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("dashboard")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/telemetria/config")
	v.AddConfigPath("/etc/telemetria")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TELEMETRIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFranjaConfig()
		v.SetDefault("dashboard.franjas", defaults.Franjas)
		v.SetDefault("dashboard.cacheTTLSeconds", defaults.CacheTTLSeconds)
	}

	var cfg FranjaConfig
	if err := v.UnmarshalKey("dashboard", &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Franjas) == 0 {
		cfg = DefaultFranjaConfig()
	}
	if err := validateFranjaConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FranjaConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log := zap.L().Named("dashboard.config")
		var updated FranjaConfig
		if err := v.UnmarshalKey("dashboard", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateFranjaConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *FranjaConfigHolder) Get() FranjaConfig {
	return h.current.Load().(FranjaConfig)
}

// NewStaticFranjaConfigHolder wraps a fixed config, used by tests.
func NewStaticFranjaConfigHolder(cfg FranjaConfig) *FranjaConfigHolder {
	holder := &FranjaConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateFranjaConfig(cfg FranjaConfig) error {
	if len(cfg.Franjas) == 0 {
		return errors.New("dashboard.franjas cannot be empty")
	}
	for _, f := range cfg.Franjas {
		if f.Label == "" {
			return errors.New("dashboard.franjas entries need a label")
		}
		if f.Start < 0 || f.End > 24 || f.Start >= f.End {
			return errors.New("dashboard.franjas bounds must satisfy 0 <= start < end <= 24")
		}
	}
	return nil
}
