package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CreditsPricing carries the credit cost per operation and the monthly
// allotment per subscription plan. The database settings row, when present,
// takes precedence over this file-backed config; this is the fallback used
// for fresh installs and local development.
type CreditsPricing struct {
	RoteiroCost    int            `mapstructure:"roteiroCost"`
	PlanAllotments map[string]int `mapstructure:"planAllotments"`
}

func DefaultCreditsPricing() CreditsPricing {
	return CreditsPricing{
		RoteiroCost: 1,
		PlanAllotments: map[string]int{
			"gogh_pro":       30,
			"gogh_essencial": 15,
		},
	}
}

// MonthlyAllotment returns the allotment for a plan id, zero when the plan
// is unknown or the user has no plan.
func (p CreditsPricing) MonthlyAllotment(planID string) int {
	if p.PlanAllotments == nil {
		return 0
	}
	return p.PlanAllotments[strings.TrimSpace(planID)]
}

type CreditsPricingHolder struct {
	current atomic.Value // holds CreditsPricing
}

func NewCreditsPricingHolder(log *zap.Logger) (*CreditsPricingHolder, error) {
	log = log.Named("credits.config")
	v := viper.New()

	v.SetConfigName("credits")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/gogh/config") // Volume-mounted config
	v.AddConfigPath("/etc/gogh")            // System config
	v.AddConfigPath(".")                    // Current directory (dev mode)

	v.SetEnvPrefix("GOGH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultCreditsPricing()
		v.SetDefault("credits.roteiroCost", defaults.RoteiroCost)
		v.SetDefault("credits.planAllotments", defaults.PlanAllotments)
	}

	var pricing CreditsPricing
	if err := v.UnmarshalKey("credits", &pricing); err != nil {
		return nil, err
	}
	if err := validateCreditsPricing(pricing); err != nil {
		return nil, err
	}

	holder := &CreditsPricingHolder{}
	holder.current.Store(pricing)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CreditsPricing
		if err := v.UnmarshalKey("credits", &updated); err != nil {
			log.Warn("pricing reload failed", zap.Error(err))
			return
		}
		if err := validateCreditsPricing(updated); err != nil {
			log.Warn("invalid pricing ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("pricing reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticCreditsPricingHolder wraps a fixed pricing value, bypassing
// file watching. Used by tests and tools.
func NewStaticCreditsPricingHolder(pricing CreditsPricing) *CreditsPricingHolder {
	holder := &CreditsPricingHolder{}
	holder.current.Store(pricing)
	return holder
}

func (h *CreditsPricingHolder) Get() CreditsPricing {
	return h.current.Load().(CreditsPricing)
}

func validateCreditsPricing(pricing CreditsPricing) error {
	if pricing.RoteiroCost <= 0 {
		return errors.New("credits.roteiroCost must be positive")
	}
	return nil
}
