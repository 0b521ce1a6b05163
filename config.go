package dynacrud

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultWaitTimeout bounds how long New waits for a table to become active.
const DefaultWaitTimeout = 3 * time.Minute

// AWSConfig holds the credentials and region for the DynamoDB service. Empty
// values fall back to the SDK default credential chain.
type AWSConfig struct {
	Region          string `yaml:"region,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty" validate:"required_with=AccessKeyID"`
	SessionToken    string `yaml:"sessionToken,omitempty"`
	Profile         string `yaml:"profile,omitempty"`
}

// WaitForActive controls whether New blocks until every table is ACTIVE.
type WaitForActive struct {
	Enabled bool          `yaml:"enabled,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

// Defaults controls table provisioning performed by New.
type Defaults struct {
	Create        bool          `yaml:"create,omitempty"`
	Update        bool          `yaml:"update,omitempty"`
	WaitForActive WaitForActive `yaml:"waitForActive,omitempty"`
}

// Config is the construction input of a Service.
type Config struct {
	AWS              AWSConfig                   `yaml:"awsConfig,omitempty"`
	IsLocalDB        bool                        `yaml:"isLocalDB,omitempty"`
	LocalDatabaseURL string                      `yaml:"localDatabaseURL,omitempty" validate:"required_if=IsLocalDB true,omitempty,url"`
	TablePrefix      string                      `yaml:"tablePrefix,omitempty"`
	Defaults         Defaults                    `yaml:"defaults,omitempty"`
	Entities         map[string]EntityDescriptor `yaml:"entities" validate:"required,min=1,dive"`
}

// Validate checks the configuration for structural errors. Entity descriptors are
// checked further when models are built.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseConfig decodes a YAML configuration. Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and decodes the YAML configuration file at path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// Metadata describes the running service for logs, traces and metrics. It does
// not affect the behavior of any operation.
type Metadata struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"dynacrud"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Version     string `envconfig:"VERSION" default:"dev"`
}

// LoadMetadata reads Metadata from DYNACRUD_* environment variables.
func LoadMetadata() (Metadata, error) {
	var md Metadata
	if err := envconfig.Process("dynacrud", &md); err != nil {
		return Metadata{}, fmt.Errorf("failed to load metadata: %w", err)
	}
	return md, nil
}
