package fuzzing

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/crytic/symfuzz/cfg"
	"github.com/crytic/symfuzz/fuzzing/config"
	"github.com/crytic/symfuzz/fuzzing/corpus"
	"github.com/crytic/symfuzz/logging"
	"github.com/crytic/symfuzz/solver"
	"github.com/crytic/symfuzz/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Campaign analyzes the selected functions of a program and gathers their reports. Functions are analyzed by up to
// the configured number of workers, each analysis owning its own solver. A failing analysis is recorded in its
// function's report and never aborts the others.
type Campaign struct {
	// ctx describes the context for the campaign run, used to cancel running operations.
	ctx context.Context
	// ctxCancelFunc describes a function which can be used to cancel the campaign.
	ctxCancelFunc context.CancelFunc
	// ctxLock guards ctxCancelFunc, which is set by Run and used by Stop.
	ctxLock sync.Mutex

	// config describes the project configuration which the campaign is using.
	config config.ProjectConfig

	// program is the set of functions being analyzed.
	program *cfg.Program

	// targets are the functions selected for analysis, in source order.
	targets []*cfg.Function

	// analyzer runs the per-function analyses.
	analyzer *Analyzer

	// corpus caches function reports across runs. It is nil unless enabled.
	corpus *corpus.Corpus

	// runID uniquely identifies this campaign.
	runID uuid.UUID

	// metrics tracks counters of the run.
	metrics *CampaignMetrics

	// Events describes the event system for the Campaign.
	Events CampaignEvents

	// logger describes the Campaign's log object that can be used to log important events
	logger *logging.Logger
}

// NewCampaign returns an instance of a new Campaign provided a project configuration, the program to analyze and a
// factory for the solvers used by the analyses. Target functions that are not defined in the program are an error.
func NewCampaign(projectConfig config.ProjectConfig, program *cfg.Program, newSolver solver.Factory) (*Campaign, error) {
	// Validate our provided config
	if err := projectConfig.Validate(); err != nil {
		return nil, err
	}

	// Resolve our targets, keeping source order
	targets := program.Functions
	if len(projectConfig.Analysis.TargetFunctions) > 0 {
		selected := make(map[string]struct{}, len(projectConfig.Analysis.TargetFunctions))
		for _, name := range projectConfig.Analysis.TargetFunctions {
			if _, ok := program.Function(name); !ok {
				return nil, errors.Errorf("target function '%s' is not defined in %s", name, program.Filename)
			}
			selected[name] = struct{}{}
		}
		targets = utils.SliceWhere(program.Functions, func(fn *cfg.Function) bool {
			_, ok := selected[fn.Name]
			return ok
		})
	}

	return &Campaign{
		config:   projectConfig,
		program:  program,
		targets:  targets,
		analyzer: NewAnalyzer(program, &projectConfig, newSolver),
		runID:    uuid.New(),
		metrics:  newCampaignMetrics(),
		logger:   logging.GlobalLogger.NewSubLogger("module", logging.FUZZING_SERVICE),
	}, nil
}

// RunID returns the unique identifier of the campaign.
func (c *Campaign) RunID() uuid.UUID {
	return c.runID
}

// Targets returns the functions selected for analysis, in source order.
func (c *Campaign) Targets() []*cfg.Function {
	return c.targets
}

// Metrics returns the counters of the campaign run.
func (c *Campaign) Metrics() *CampaignMetrics {
	return c.metrics
}

// Run analyzes every target function and returns their reports in source order. Stopping the campaign, cancelling
// the provided context or reaching the configured timeout interrupts the run: reports of interrupted or unstarted
// functions are marked as such and the results are still returned. An error is returned only if the campaign could
// not run or an event handler failed.
func (c *Campaign) Run(ctx context.Context) (*CampaignResults, error) {
	// Create our running context (allows us to cancel across threads)
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if c.config.Analysis.Timeout > 0 {
		c.logger.Info("Running with a timeout of ", c.config.Analysis.Timeout, " seconds")
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(c.config.Analysis.Timeout)*time.Second)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	c.ctxLock.Lock()
	c.ctx, c.ctxCancelFunc = runCtx, cancel
	c.ctxLock.Unlock()
	defer cancel()

	// Set up the corpus
	if c.config.Corpus.Enabled {
		var err error
		c.corpus, err = corpus.NewCorpus(c.config.Corpus.Directory)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := c.corpus.Close(); err != nil {
				c.logger.Error("Failed to close the corpus", err)
			}
			c.corpus = nil
		}()
	}

	results := &CampaignResults{
		RunID:    c.runID.String(),
		Filename: c.program.Filename,
		Started:  time.Now(),
		Reports:  make([]*FunctionReport, len(c.targets)),
	}

	// Publish a campaign starting event.
	if err := c.Events.AnalysisStarting.Publish(AnalysisStartingEvent{Campaign: c}); err != nil {
		return nil, err
	}
	c.logger.Debug("Analyzing ", strings.Join(utils.SliceSelect(c.targets, func(fn *cfg.Function) string {
		return fn.Name
	}), ", "), " with ", c.config.Analysis.Workers, " workers")

	// Run our workers. Each slot of the report list is written by exactly one goroutine.
	group, groupCtx := errgroup.WithContext(runCtx)
	group.SetLimit(c.config.Analysis.Workers)
	for i, fn := range c.targets {
		i, fn := i, fn
		group.Go(func() error {
			report := c.analyzeFunction(groupCtx, fn)
			results.Reports[i] = report
			c.metrics.record(report)
			return c.Events.FunctionAnalyzed.Publish(FunctionAnalyzedEvent{Campaign: c, Report: report})
		})
	}
	err := group.Wait()

	// Functions which never started keep an empty, interrupted report.
	for i, fn := range c.targets {
		if results.Reports[i] == nil {
			report := newFunctionReport(fn.Name, nil)
			report.Interrupted = true
			results.Reports[i] = report
		}
	}
	results.Elapsed = time.Since(results.Started)

	// Publish a campaign stopping event.
	stoppingErr := c.Events.AnalysisStopping.Publish(AnalysisStoppingEvent{Campaign: c, Err: err})
	if err == nil {
		err = stoppingErr
	}
	if err != nil {
		return results, err
	}
	return results, nil
}

// Stop interrupts a running campaign. This method may return before the run has wound down.
func (c *Campaign) Stop() {
	c.ctxLock.Lock()
	defer c.ctxLock.Unlock()
	if c.ctxCancelFunc != nil {
		c.ctxCancelFunc()
	}
}

// analyzeFunction produces the report of one target function, from the corpus if possible.
func (c *Campaign) analyzeFunction(ctx context.Context, fn *cfg.Function) *FunctionReport {
	if utils.CheckContextDone(ctx) {
		report := newFunctionReport(fn.Name, nil)
		report.Interrupted = true
		return report
	}

	// Look for a report of the same source and configuration
	var key string
	if c.corpus != nil {
		var err error
		key, err = c.cacheKey(fn)
		if err != nil {
			c.logger.Warn("Could not derive the corpus key of ", fn.Name, err)
		} else {
			var cached FunctionReport
			found, err := c.corpus.Get(key, &cached)
			if err != nil {
				c.logger.Warn("Could not read the corpus entry of ", fn.Name, err)
			} else if found {
				c.logger.Debug("Loaded the report of ", fn.Name, " from the corpus")
				cached.Cached = true
				return &cached
			}
		}
	}

	report, err := c.analyzer.AnalyzeFunction(ctx, fn.Name)
	if err != nil {
		if report == nil {
			report = newFunctionReport(fn.Name, nil)
		}
		if ctx.Err() != nil {
			report.Interrupted = true
		} else {
			report.Error = err.Error()
		}
		return report
	}

	// Only complete, successful reports are reused
	if c.corpus != nil && key != "" && !report.Failed() {
		if err := c.corpus.Put(key, report); err != nil {
			c.logger.Warn("Could not store the report of ", fn.Name, " in the corpus", err)
		}
	}
	return report
}

// cacheFingerprint lists the configuration values a function report depends on.
type cacheFingerprint struct {
	Analysis        config.AnalysisConfig
	Interprocedural config.InterproceduralConfig
}

// cacheKey derives the corpus key of a function from the program source, the function name and the configuration
// values which affect its report.
func (c *Campaign) cacheKey(fn *cfg.Function) (string, error) {
	fingerprint := cacheFingerprint{
		Analysis:        c.config.Analysis,
		Interprocedural: c.config.Interprocedural,
	}
	// Scheduling options do not change a report
	fingerprint.Analysis.TargetFunctions = nil
	fingerprint.Analysis.Workers = 0
	fingerprint.Analysis.Timeout = 0

	b, err := json.Marshal(fingerprint)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return corpus.Key(c.program.Source, []byte(fn.Name), b)
}

// CampaignResults holds the outcome of a campaign run.
type CampaignResults struct {
	// RunID uniquely identifies the campaign run.
	RunID string `json:"runId"`
	// Filename is the analyzed source file.
	Filename string `json:"filename"`
	// Started is the time the run started.
	Started time.Time `json:"started"`
	// Elapsed is the duration of the run.
	Elapsed time.Duration `json:"elapsed"`
	// Reports are the function reports in source order.
	Reports []*FunctionReport `json:"reports"`
}

// Failed indicates whether any function analysis, including follow-ups, ended with an internal error.
func (r *CampaignResults) Failed() bool {
	for _, report := range r.Reports {
		if report.Failed() {
			return true
		}
	}
	return false
}

// Interrupted indicates whether any function analysis was stopped before completion.
func (r *CampaignResults) Interrupted() bool {
	for _, report := range r.Reports {
		if report.Interrupted {
			return true
		}
	}
	return false
}

// Report returns the report of the named function.
func (r *CampaignResults) Report(function string) (*FunctionReport, bool) {
	for _, report := range r.Reports {
		if report.Function == function {
			return report, true
		}
	}
	return nil, false
}

// WriteToFile writes the results as indented JSON to the provided path, creating parent directories as needed.
func (r *CampaignResults) WriteToFile(path string) error {
	b, err := json.MarshalIndent(r, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	file, err := utils.CreateFile(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err = file.Write(b); err != nil {
		file.Close()
		return errors.WithStack(err)
	}
	return errors.WithStack(file.Close())
}

// ReadCampaignResults reads results previously written with CampaignResults.WriteToFile.
func ReadCampaignResults(path string) (*CampaignResults, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var results CampaignResults
	if err = json.Unmarshal(b, &results); err != nil {
		return nil, errors.Wrapf(err, "could not parse results '%s'", path)
	}
	return &results, nil
}
