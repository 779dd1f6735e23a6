package config

import "github.com/rs/zerolog"

// GetDefaultProjectConfig obtains a default configuration for a project.
func GetDefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Analysis: AnalysisConfig{
			MaxIter:         100,
			MaxDepth:        100,
			MaxTries:        100,
			MinPredicates:   2,
			BlockingScope:   BlockingScopeAnalysis,
			TargetFunctions: []string{},
			Workers:         1,
			Timeout:         0,
		},
		Interprocedural: InterproceduralConfig{
			Enabled: true,
			MaxHops: 1,
		},
		Corpus: CorpusConfig{
			Enabled:   false,
			Directory: ".symfuzz",
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}
}
