// Package config loads the run configuration: the ordered test spec list,
// significance level, sample gate, and report paths.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"claimlab/domain/abtest"
	"claimlab/internal/errors"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RunConfig is the YAML-facing run configuration.
type RunConfig struct {
	Data struct {
		CleanedPath string `yaml:"cleaned_path"`
	} `yaml:"data"`
	Alpha            float64 `yaml:"alpha"`
	MinSampleSize    *int    `yaml:"min_sample_size"`
	BalanceThreshold float64 `yaml:"balance_threshold"`
	StrictBalance    bool    `yaml:"strict_balance"`
	Parallel         bool    `yaml:"parallel"`
	Reports          struct {
		SummaryMD   string `yaml:"summary_md"`
		SummaryHTML string `yaml:"summary_html"`
		SummaryXLSX string `yaml:"summary_xlsx"`
	} `yaml:"reports"`
	Tests []SpecConfig `yaml:"tests"`

	digest string
}

// SpecConfig is one test specification as written in the config file.
type SpecConfig struct {
	Name       string   `yaml:"name"`
	Feature    string   `yaml:"feature"`
	GroupA     string   `yaml:"group_a"`
	GroupB     string   `yaml:"group_b"`
	KPI        string   `yaml:"kpi"`
	Test       string   `yaml:"test"`
	Covariates []string `yaml:"covariates"`
}

// Load reads and validates a YAML run configuration. A .env file, if
// present, is loaded first so DATABASE_URL and LOG_LEVEL can be supplied
// alongside the config.
func Load(path string) (*RunConfig, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := &RunConfig{Alpha: 0.05, BalanceThreshold: 0.05}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	sum := sha256.Sum256(raw)
	cfg.digest = hex.EncodeToString(sum[:8])

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems. KPI and test
// names are validated eagerly so a typo surfaces before any data loads.
func (c *RunConfig) Validate() error {
	if c.Data.CleanedPath == "" {
		return errors.ConfigInvalid("data.cleaned_path is required")
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("alpha must be in (0,1), got %v", c.Alpha))
	}
	if len(c.Tests) == 0 {
		return errors.ConfigInvalid("at least one test spec is required")
	}
	for i, spec := range c.Tests {
		if spec.Name == "" || spec.Feature == "" {
			return errors.ConfigInvalid(fmt.Sprintf("tests[%d]: name and feature are required", i))
		}
		if spec.GroupA == spec.GroupB {
			return errors.ConfigInvalid(fmt.Sprintf("tests[%d] %q: group_a and group_b must differ", i, spec.Name))
		}
		if _, err := abtest.ParseKPI(spec.KPI); err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("tests[%d] %q: %v", i, spec.Name, err))
		}
		if _, err := abtest.ParseTestKind(spec.Test); err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("tests[%d] %q: %v", i, spec.Name, err))
		}
	}
	return nil
}

// Specs converts the validated config entries into domain test specs.
func (c *RunConfig) Specs() []abtest.TestSpec {
	specs := make([]abtest.TestSpec, 0, len(c.Tests))
	for _, sc := range c.Tests {
		kpi, _ := abtest.ParseKPI(sc.KPI)
		kind, _ := abtest.ParseTestKind(sc.Test)
		specs = append(specs, abtest.TestSpec{
			Name:       sc.Name,
			Feature:    sc.Feature,
			GroupA:     sc.GroupA,
			GroupB:     sc.GroupB,
			KPI:        kpi,
			Test:       kind,
			Covariates: sc.Covariates,
		})
	}
	return specs
}

// Digest returns a short content hash of the raw config, recorded with
// each persisted run.
func (c *RunConfig) Digest() string {
	return c.digest
}

// DatabaseURL returns the optional persistence DSN from the environment.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}
