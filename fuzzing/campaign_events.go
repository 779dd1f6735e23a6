package fuzzing

import "github.com/crytic/symfuzz/events"

// CampaignEvents defines event emitters for a Campaign.
type CampaignEvents struct {
	// AnalysisStarting emits events when the Campaign has resolved its target functions and is about to analyze them.
	AnalysisStarting events.EventEmitter[AnalysisStartingEvent]

	// FunctionAnalyzed emits events when the analysis of a target function, including its follow-up analyses, has
	// finished. Events may be published from several goroutines when the campaign runs multiple workers.
	FunctionAnalyzed events.EventEmitter[FunctionAnalyzedEvent]

	// AnalysisStopping emits events when the Campaign has finished or was stopped.
	AnalysisStopping events.EventEmitter[AnalysisStoppingEvent]
}

// AnalysisStartingEvent describes an event where a fuzzing.Campaign is about to begin analyzing functions.
type AnalysisStartingEvent struct {
	// Campaign represents the instance of the fuzzing.Campaign for which the event occurred.
	Campaign *Campaign
}

// FunctionAnalyzedEvent describes an event where a fuzzing.Campaign has produced the report of a target function.
type FunctionAnalyzedEvent struct {
	// Campaign represents the instance of the fuzzing.Campaign for which the event occurred.
	Campaign *Campaign

	// Report is the report of the analyzed function.
	Report *FunctionReport
}

// AnalysisStoppingEvent describes an event where a fuzzing.Campaign is exiting its analysis loop.
type AnalysisStoppingEvent struct {
	// Campaign represents the instance of the fuzzing.Campaign for which the event occurred.
	Campaign *Campaign

	// Err describes a potential error returned by the campaign run.
	Err error
}
