package fuzzing

import "sync/atomic"

// CampaignMetrics tracks counters for a Campaign run. Counters are updated concurrently by the campaign's workers and
// include the follow-up analyses of each function.
type CampaignMetrics struct {
	// functionsAnalyzed describes the number of primary function analyses which finished.
	functionsAnalyzed atomic.Uint64

	// pathsExplored describes the number of paths produced by the explorer across all analyses.
	pathsExplored atomic.Uint64

	// testCases describes the number of feasible paths.
	testCases atomic.Uint64

	// unsatPaths describes the number of infeasible paths.
	unsatPaths atomic.Uint64

	// skippedPaths describes the number of paths which were not solved.
	skippedPaths atomic.Uint64

	// cacheHits describes the number of function reports loaded from the corpus.
	cacheHits atomic.Uint64
}

// newCampaignMetrics creates a zeroed CampaignMetrics.
func newCampaignMetrics() *CampaignMetrics {
	return &CampaignMetrics{}
}

// record adds the counts of a primary function report and its follow-ups.
func (m *CampaignMetrics) record(report *FunctionReport) {
	m.functionsAnalyzed.Add(1)
	if report.Cached {
		m.cacheHits.Add(1)
	}
	m.recordPaths(report)
}

// recordPaths adds the path counts of a report and its follow-ups.
func (m *CampaignMetrics) recordPaths(report *FunctionReport) {
	m.pathsExplored.Add(uint64(report.PathCount))
	m.testCases.Add(uint64(len(report.TestCases())))
	m.unsatPaths.Add(uint64(len(report.Diagnostics())))
	m.skippedPaths.Add(uint64(len(report.Skipped)))
	for _, followUp := range report.FollowUps {
		m.recordPaths(followUp)
	}
}

// FunctionsAnalyzed returns the number of primary function analyses which finished.
func (m *CampaignMetrics) FunctionsAnalyzed() uint64 {
	return m.functionsAnalyzed.Load()
}

// PathsExplored returns the number of paths produced by the explorer.
func (m *CampaignMetrics) PathsExplored() uint64 {
	return m.pathsExplored.Load()
}

// TestCases returns the number of feasible paths.
func (m *CampaignMetrics) TestCases() uint64 {
	return m.testCases.Load()
}

// UnsatPaths returns the number of infeasible paths.
func (m *CampaignMetrics) UnsatPaths() uint64 {
	return m.unsatPaths.Load()
}

// SkippedPaths returns the number of paths which were not solved.
func (m *CampaignMetrics) SkippedPaths() uint64 {
	return m.skippedPaths.Load()
}

// CacheHits returns the number of function reports loaded from the corpus.
func (m *CampaignMetrics) CacheHits() uint64 {
	return m.cacheHits.Load()
}
