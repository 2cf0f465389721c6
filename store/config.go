package store

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Billing modes for lazily created tables.
const (
	BillingOnDemand    = "PAY_PER_REQUEST"
	BillingProvisioned = "PROVISIONED"
)

// HTTPClient performs one HTTP round trip. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for a Session.
type Config struct {
	// Region is the remote service region. Empty means resolve from
	// the environment or the credentials file.
	Region string `yaml:"region"`

	// Profile selects a section of the shared credentials file.
	// Empty means AWS_PROFILE, then "default".
	Profile string `yaml:"profile"`

	// TablePrefix and TablePostfix bracket every logical table name.
	TablePrefix  string `yaml:"tablePrefix"`
	TablePostfix string `yaml:"tablePostfix"`

	// BillingMode is the mode for lazily created tables.
	// Default: BillingOnDemand.
	BillingMode string `yaml:"billingMode"`

	// ReadCapacity and WriteCapacity apply only with
	// BillingProvisioned. Default: 1 each.
	ReadCapacity  int64 `yaml:"readCapacity"`
	WriteCapacity int64 `yaml:"writeCapacity"`

	// Endpoint overrides the derived service URL, e.g. for DynamoDB
	// Local. Empty means https://dynamodb.<region>.amazonaws.com/.
	Endpoint string `yaml:"endpoint"`

	// ProvisionWait is the pause between retries while a lazily
	// created table converges. Default: 1s.
	ProvisionWait time.Duration `yaml:"provisionWait"`

	// HTTPClient performs the HTTP round trips. Nil means
	// http.DefaultClient.
	HTTPClient HTTPClient `yaml:"-"`

	// Logger receives driver diagnostics. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.BillingMode == "" {
		c.BillingMode = BillingOnDemand
	}
	if c.ReadCapacity < 1 {
		c.ReadCapacity = 1
	}
	if c.WriteCapacity < 1 {
		c.WriteCapacity = 1
	}
	if c.ProvisionWait <= 0 {
		c.ProvisionWait = time.Second
	}
}

// LoadConfig reads a Config from a YAML file. Unset keys keep their
// defaults; credentials never live in this file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("stratum: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("stratum: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// tableName derives the physical table name for a logical one. Pure
// function of configuration.
func (c *Config) tableName(name string) string {
	return c.TablePrefix + name + c.TablePostfix
}
