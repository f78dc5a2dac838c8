package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Safety   *safetyConfig
	Registry *registryConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"wipeguard.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string `envconfig:"WIPEGUARD_ADDRESS" default:":3443"`
	MetricsAddress string `envconfig:"WIPEGUARD_METRICS_ADDRESS" default:":8081"`
	BaseUrl        string `envconfig:"WIPEGUARD_BASE_URL" default:"https://localhost:3443"`
	LogLevel       string `envconfig:"WIPEGUARD_LOG_LEVEL" default:"info"`
	EventTopic     string `envconfig:"WIPEGUARD_EVENT_TOPIC" default:"wipeguard.events"`
	EraseCommand   string `envconfig:"WIPEGUARD_ERASE_COMMAND" default:"wipeguard-erase"`
	InventoryFile  string `envconfig:"WIPEGUARD_INVENTORY_FILE" default:""`
}

type safetyConfig struct {
	DeniedTargets     []string      `envconfig:"WIPEGUARD_DENIED_TARGETS" default:"C:,/,/boot,/boot/efi,/var"`
	ProtectedPrefixes []string      `envconfig:"WIPEGUARD_PROTECTED_PREFIXES" default:"C:,/dev/sda,/boot,EFI"`
	RateLimitAttempts int           `envconfig:"WIPEGUARD_RATE_LIMIT_ATTEMPTS" default:"3"`
	RateLimitWindow   time.Duration `envconfig:"WIPEGUARD_RATE_LIMIT_WINDOW" default:"10m"`
}

type registryConfig struct {
	CancelGracePeriod  time.Duration `envconfig:"WIPEGUARD_CANCEL_GRACE_PERIOD" default:"5s"`
	HistoryGracePeriod time.Duration `envconfig:"WIPEGUARD_HISTORY_GRACE_PERIOD" default:"30s"`
	HistoryCap         int           `envconfig:"WIPEGUARD_HISTORY_CAP" default:"100"`
	LogLineCap         int           `envconfig:"WIPEGUARD_LOG_LINE_CAP" default:"1000"`
	SweepInterval      time.Duration `envconfig:"WIPEGUARD_SWEEP_INTERVAL" default:"5s"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config populated with defaults only, used by tests.
func NewDefault() *Config {
	return &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service: &svcConfig{
			Address:        "localhost:0",
			MetricsAddress: "localhost:0",
			LogLevel:       "debug",
			EventTopic:     "wipeguard.events",
		},
		Safety: &safetyConfig{
			DeniedTargets:     []string{"C:", "/", "/boot", "/boot/efi", "/var"},
			ProtectedPrefixes: []string{"C:", "/dev/sda", "/boot", "EFI"},
			RateLimitAttempts: 3,
			RateLimitWindow:   10 * time.Minute,
		},
		Registry: &registryConfig{
			CancelGracePeriod:  5 * time.Second,
			HistoryGracePeriod: 30 * time.Second,
			HistoryCap:         100,
			LogLineCap:         1000,
			SweepInterval:      5 * time.Second,
		},
	}
}
