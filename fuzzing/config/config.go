package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/crytic/symfuzz/version"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// BlockingScope describes how long blocking clauses asserted after a feasible path remain in effect.
type BlockingScope string

const (
	// BlockingScopeAnalysis keeps blocking clauses for the whole analysis of a function, so later paths cannot reuse
	// an assignment already reported for an earlier path.
	BlockingScopeAnalysis BlockingScope = "analysis"
	// BlockingScopePath discards blocking clauses once the path that produced them is done.
	BlockingScopePath BlockingScope = "path"
)

// ProjectConfig describes the configuration of an analysis campaign.
type ProjectConfig struct {
	// MinimumVersion is an optional semantic version constraint the running symfuzz version must satisfy.
	MinimumVersion string `json:"minimumVersion,omitempty" yaml:"minimumVersion,omitempty"`

	// Analysis describes the configuration used to explore and solve paths.
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Interprocedural describes the configuration used to propagate call-site constants into callees.
	Interprocedural InterproceduralConfig `json:"interprocedural" yaml:"interprocedural"`

	// Corpus describes the configuration of the persistent result cache.
	Corpus CorpusConfig `json:"corpus" yaml:"corpus"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// AnalysisConfig describes the configuration options used by the per-function analysis.
type AnalysisConfig struct {
	// MaxIter bounds the number of exploration rounds of the path explorer.
	MaxIter int `json:"maxIter" yaml:"maxIter"`

	// MaxDepth bounds the length of a partial path before it is dropped by the path explorer.
	MaxDepth int `json:"maxDepth" yaml:"maxDepth"`

	// MaxTries bounds the number of paths attempted by a single fuzz call.
	MaxTries int `json:"maxTries" yaml:"maxTries"`

	// MinPredicates is the number of predicates below which a path is considered degenerate and skipped.
	MinPredicates int `json:"minPredicates" yaml:"minPredicates"`

	// BlockingScope describes the lifetime of blocking clauses during an analysis.
	BlockingScope BlockingScope `json:"blockingScope" yaml:"blockingScope"`

	// TargetFunctions lists the functions to analyze. An empty list selects every function of the input.
	TargetFunctions []string `json:"targetFunctions" yaml:"targetFunctions"`

	// Workers describes the number of functions analyzed concurrently.
	Workers int `json:"workers" yaml:"workers"`

	// Timeout describes a time in seconds after which the campaign is stopped. Providing a negative or zero value
	// will result in no timeout.
	Timeout int `json:"timeout" yaml:"timeout"`
}

// InterproceduralConfig describes the configuration options used by the interprocedural propagator.
type InterproceduralConfig struct {
	// Enabled describes whether callees are re-analyzed with constants observed at their call sites.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxHops bounds how many calls deep constants are propagated. A value of 1 only re-analyzes direct callees.
	MaxHops int `json:"maxHops" yaml:"maxHops"`
}

// CorpusConfig describes the configuration options used by the persistent result cache.
type CorpusConfig struct {
	// Enabled describes whether function reports are cached across runs.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Directory describes the directory holding the cache database.
	Directory string `json:"directory" yaml:"directory"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level" yaml:"level"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory" yaml:"logDirectory"`

	// NoColor disables colorized console output.
	NoColor bool `json:"noColor" yaml:"noColor"`
}

// isYAML indicates whether a configuration path should be treated as YAML rather than JSON.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ReadProjectConfigFromFile reads a ProjectConfig from a provided file path. Files ending in .yaml or .yml are parsed
// as YAML, anything else as JSON. Values missing from the file keep their defaults.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration over the defaults
	projectConfig := GetDefaultProjectConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(b, projectConfig)
	} else {
		err = json.Unmarshal(b, projectConfig)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse project config '%s'", path)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path, in YAML if the path ends in .yaml or .yml and in
// JSON otherwise.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(p)
	} else {
		b, err = json.MarshalIndent(p, "", "\t")
	}
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Verify the running version is compatible with the project
	if err := version.CheckConstraint(p.MinimumVersion); err != nil {
		return err
	}

	// Verify exploration bounds
	if p.Analysis.MaxIter <= 0 {
		return errors.Errorf("max iteration count must be a positive number")
	}
	if p.Analysis.MaxDepth < 0 {
		return errors.Errorf("max depth cannot be negative")
	}
	if p.Analysis.MaxTries <= 0 {
		return errors.Errorf("max tries must be a positive number")
	}
	if p.Analysis.MinPredicates < 0 {
		return errors.Errorf("minimum predicate count cannot be negative")
	}

	// Verify the worker count is a positive number.
	if p.Analysis.Workers <= 0 {
		return errors.Errorf("worker count must be a positive number")
	}

	// Verify the blocking scope is one we know
	switch p.Analysis.BlockingScope {
	case BlockingScopeAnalysis, BlockingScopePath:
	default:
		return errors.Errorf("unknown blocking scope '%s', expected '%s' or '%s'",
			p.Analysis.BlockingScope, BlockingScopeAnalysis, BlockingScopePath)
	}

	// Verify interprocedural fields
	if p.Interprocedural.Enabled && p.Interprocedural.MaxHops <= 0 {
		return errors.Errorf("max hops must be a positive number while interprocedural propagation is enabled")
	}

	// Verify corpus fields
	if p.Corpus.Enabled && p.Corpus.Directory == "" {
		return errors.Errorf("must specify a corpus directory while the corpus is enabled")
	}
	return nil
}
