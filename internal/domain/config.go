package domain

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Connection behavior shared by every Azure DevOps request.
const (
	// RequestTimeout bounds each individual HTTP request. Operations that
	// need two round trips (query then batch fetch) are bounded per
	// request, not per operation.
	RequestTimeout = 30 * time.Second

	// RetryTotal is the number of transport-level retry attempts for
	// transient failures (429, 500, 502, 503, 504 and connection errors).
	RetryTotal = 3

	// RetryWaitMin and RetryWaitMax bound the exponential backoff between
	// retry attempts.
	RetryWaitMin = 1 * time.Second
	RetryWaitMax = 10 * time.Second
)

// Environment variable names recognized by the configuration loader.
const (
	EnvOrganization     = "AZURE_DEVOPS_ORG"
	EnvProject          = "AZURE_DEVOPS_PROJECT"
	EnvPAT              = "AZURE_DEVOPS_PAT"
	EnvDisableSSLVerify = "AZURE_DEVOPS_DISABLE_SSL_VERIFY"
	EnvCABundle         = "AZURE_DEVOPS_CA_BUNDLE"
)

// Config represents the server configuration.
// Values may come from an optional YAML file; environment variables always
// take precedence over file values.
type Config struct {
	Organization string    `yaml:"organization"`
	Project      string    `yaml:"project"`
	PAT          string    `yaml:"pat,omitempty"`
	TLS          TLSConfig `yaml:"tls,omitempty"`
}

// TLSConfig defines the certificate verification policy.
// Exactly one policy is active, chosen by first match: insecure_skip_verify,
// then ca_bundle (when the file exists), then the platform trust store.
type TLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify,omitempty"`
	CABundle           string `yaml:"ca_bundle,omitempty"`
}

// LoadConfig reads configuration from an optional YAML file and the
// environment. A missing file is not an error - the environment may carry
// everything. Returns an error if the file has invalid syntax or the merged
// configuration fails validation.
func LoadConfig(path string) (*Config, error) {
	var config Config

	// Read the file if one is present
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("invalid YAML syntax in configuration file: %w", err)
			}
		case os.IsNotExist(err):
			// Environment-only configuration
		default:
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	// Overlay environment variables
	config.applyEnvironment()

	// Validate the merged configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvironment overlays environment variables onto the configuration.
func (c *Config) applyEnvironment() {
	if v := os.Getenv(EnvOrganization); v != "" {
		c.Organization = v
	}
	if v := os.Getenv(EnvProject); v != "" {
		c.Project = v
	}
	if v := os.Getenv(EnvPAT); v != "" {
		c.PAT = v
	}
	if strings.EqualFold(os.Getenv(EnvDisableSSLVerify), "true") {
		c.TLS.InsecureSkipVerify = true
	}
	if v := os.Getenv(EnvCABundle); v != "" {
		c.TLS.CABundle = v
	}
}

// Validate checks the configuration for completeness.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errors []string

	if c.Organization == "" {
		errors = append(errors, fmt.Sprintf("organization is required (set %s or the organization key)", EnvOrganization))
	}
	if c.Project == "" {
		errors = append(errors, fmt.Sprintf("project is required (set %s or the project key)", EnvProject))
	}
	if c.PAT == "" {
		errors = append(errors, fmt.Sprintf("personal access token is required (set %s or the pat key)", EnvPAT))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
