package usage

import (
	"sort"
	"time"
)

// RunSummary aggregates the events recorded under one run id.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Events       int       `json:"events"`
	Errors       int       `json:"errors"`
	Requests     int64     `json:"requests"`
	Results      int64     `json:"results"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	Started      time.Time `json:"started"`
}

// Totals aggregates the whole log.
type Totals struct {
	Events      int              `json:"events"`
	Errors      int              `json:"errors"`
	Requests    int64            `json:"requests"`
	CostUSD     float64          `json:"cost_usd"`
	ByConnector map[string]int64 `json:"by_connector"`
}

// SummarizeRuns groups events by run id, ordered by first event time.
func SummarizeRuns(events []Event) []RunSummary {
	byRun := map[string]*RunSummary{}
	for _, e := range events {
		s, ok := byRun[e.RunID]
		if !ok {
			s = &RunSummary{RunID: e.RunID, Started: e.Timestamp}
			byRun[e.RunID] = s
		}
		if e.Timestamp.Before(s.Started) {
			s.Started = e.Timestamp
		}
		s.Events++
		if e.Status == StatusError {
			s.Errors++
		}
		s.Requests += e.Units.Requests
		if e.Units.Results != nil {
			s.Results += *e.Units.Results
		}
		if e.Units.InputTokens != nil {
			s.InputTokens += *e.Units.InputTokens
		}
		if e.Units.OutputTokens != nil {
			s.OutputTokens += *e.Units.OutputTokens
		}
		if e.CostUSD != nil {
			s.CostUSD += *e.CostUSD
		}
	}

	out := make([]RunSummary, 0, len(byRun))
	for _, s := range byRun {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].RunID < out[j].RunID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

// SummarizeTotals folds the whole log into one aggregate.
func SummarizeTotals(events []Event) Totals {
	totals := Totals{ByConnector: map[string]int64{}}
	for _, e := range events {
		totals.Events++
		if e.Status == StatusError {
			totals.Errors++
		}
		totals.Requests += e.Units.Requests
		if e.CostUSD != nil {
			totals.CostUSD += *e.CostUSD
		}
		totals.ByConnector[e.Connector]++
	}
	return totals
}
