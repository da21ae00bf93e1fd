package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dvloznov/commercepulse/internal/transform"
)

// Config is the runtime configuration shared by all commands.
type Config struct {
	Mongo    Mongo    `yaml:"mongo"`
	BigQuery BigQuery `yaml:"bigquery"`
	Sources  Sources  `yaml:"sources"`
	Policy   Policy   `yaml:"policy"`
	Metrics  Metrics  `yaml:"metrics"`
	Log      Log      `yaml:"log"`
	Worker   Worker   `yaml:"worker"`
}

type Mongo struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type BigQuery struct {
	ProjectID string `yaml:"project_id"`
	DatasetID string `yaml:"dataset_id"`
	Location  string `yaml:"location"`
}

// Sources locates the input files. Paths may be local or gs:// URIs.
type Sources struct {
	// Bootstrap maps an event type (e.g. historical_order) to a JSON file.
	Bootstrap map[string]string `yaml:"bootstrap"`
	LiveDir   string            `yaml:"live_dir"`
}

// Policy overrides the reconciliation fallbacks.
type Policy struct {
	UnknownVendor string  `yaml:"unknown_vendor"`
	PaymentStatus string  `yaml:"default_payment_status"`
	Amount        float64 `yaml:"default_amount"`
}

type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Worker struct {
	QueueSize  int    `yaml:"queue_size"`
	Workers    int    `yaml:"workers"`
	MaxRetries int    `yaml:"max_retries"`
	AdminAddr  string `yaml:"admin_addr"` // empty disables the admin HTTP server
}

// Default returns the configuration used when no file or environment is set.
func Default() *Config {
	return &Config{
		Mongo: Mongo{
			URI:        "mongodb://localhost:27017",
			Database:   "commercepulse",
			Collection: "events_raw",
		},
		BigQuery: BigQuery{
			DatasetID: "analytics",
		},
		Sources: Sources{
			Bootstrap: map[string]string{
				"historical_order":    "data/bootstrap/orders_2023.json",
				"historical_payment":  "data/bootstrap/payments_2023.json",
				"historical_shipment": "data/bootstrap/shipments_2023.json",
				"historical_refund":   "data/bootstrap/refunds_2023.json",
			},
			LiveDir: "data/live_events",
		},
		Policy: Policy{
			UnknownVendor: transform.DefaultUnknownVendor,
			PaymentStatus: transform.DefaultPaymentStatus,
			Amount:        transform.DefaultAmount,
		},
		Metrics: Metrics{
			Job: "commercepulse",
		},
		Log: Log{
			Level: "info",
		},
		Worker: Worker{
			QueueSize:  100,
			Workers:    2,
			MaxRetries: 3,
			AdminAddr:  ":8080",
		},
	}
}

// Load reads the YAML file at path (if non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set("MONGO_URI", &c.Mongo.URI)
	set("MONGO_DB", &c.Mongo.Database)
	set("MONGO_COLLECTION", &c.Mongo.Collection)
	set("BQ_PROJECT", &c.BigQuery.ProjectID)
	set("BQ_DATASET", &c.BigQuery.DatasetID)
	set("BQ_LOCATION", &c.BigQuery.Location)
	set("LIVE_EVENTS_DIR", &c.Sources.LiveDir)
	set("UNKNOWN_VENDOR_ID", &c.Policy.UnknownVendor)
	set("DEFAULT_PAYMENT_STATUS", &c.Policy.PaymentStatus)
	set("PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)
	set("LOG_LEVEL", &c.Log.Level)
	set("WORKER_ADMIN_ADDR", &c.Worker.AdminAddr)
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	if c.Mongo.Collection == "" {
		errs = append(errs, errors.New("mongo.collection is required"))
	}
	return errors.Join(errs...)
}

// ValidateWarehouse checks the settings required to load into BigQuery.
func (c *Config) ValidateWarehouse() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.BigQuery.ProjectID == "" {
		return errors.New("bigquery.project_id is required (or set BQ_PROJECT)")
	}
	if c.BigQuery.DatasetID == "" {
		return errors.New("bigquery.dataset_id is required (or set BQ_DATASET)")
	}
	return nil
}

// ReconcilePolicy converts the configured policy for the transform package.
func (c *Config) ReconcilePolicy() transform.Policy {
	return transform.Policy{
		UnknownVendor: c.Policy.UnknownVendor,
		PaymentStatus: c.Policy.PaymentStatus,
		Amount:        c.Policy.Amount,
	}
}
