package domain

// Domain contains the core models shared across the aggregator.

// HotItem is one normalized trending-topic entry for a platform.
// Rank is the 1-based position within that platform's list, in the
// order the source returned it.
type HotItem struct {
	PlatformID string
	Title      string
	Rank       int
	URL        string
	Extra      map[string]any
}

// Failure describes a per-platform fetch or normalization failure.
type Failure struct {
	PlatformID string
	Kind       Kind
	Message    string
}

// FetchResult is the outcome of one platform's fetch: either an ordered
// item list or a failure, never both.
type FetchResult struct {
	PlatformID string
	Items      []HotItem
	Failure    *Failure
}

// OK reports whether the result carries items rather than a failure.
func (r FetchResult) OK() bool {
	return r.Failure == nil
}

// Report is the consolidated outcome of one aggregation run, one entry
// per registered platform in registry order.
type Report struct {
	RunID   string
	results []FetchResult
	index   map[string]int
}

// NewReport assembles a report from per-platform results. The slice
// order is preserved as the report order.
func NewReport(runID string, results []FetchResult) *Report {
	idx := make(map[string]int, len(results))
	for i, res := range results {
		idx[res.PlatformID] = i
	}
	return &Report{
		RunID:   runID,
		results: append([]FetchResult(nil), results...),
		index:   idx,
	}
}

// Results returns a copy of the per-platform results in registry order.
func (r *Report) Results() []FetchResult {
	if r == nil {
		return nil
	}
	out := make([]FetchResult, len(r.results))
	copy(out, r.results)
	return out
}

// Result returns the entry for the given platform id.
func (r *Report) Result(platformID string) (FetchResult, bool) {
	if r == nil {
		return FetchResult{}, false
	}
	i, ok := r.index[platformID]
	if !ok {
		return FetchResult{}, false
	}
	return r.results[i], true
}

// Len returns the number of platform entries in the report.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return len(r.results)
}

// Succeeded returns the platform ids with successful results, in report order.
func (r *Report) Succeeded() []string {
	return r.filter(true)
}

// Failed returns the platform ids with failure entries, in report order.
func (r *Report) Failed() []string {
	return r.filter(false)
}

func (r *Report) filter(ok bool) []string {
	if r == nil {
		return nil
	}
	var ids []string
	for _, res := range r.results {
		if res.OK() == ok {
			ids = append(ids, res.PlatformID)
		}
	}
	return ids
}
