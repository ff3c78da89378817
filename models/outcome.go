package models

// PageOutcome tells the run loop what to do after a page finished.
type PageOutcome int

const (
	OutcomeContinue PageOutcome = iota
	OutcomeAbortPage
	OutcomeAbortRun
)

func (o PageOutcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeAbortPage:
		return "abort-page"
	case OutcomeAbortRun:
		return "abort-run"
	default:
		return "unknown"
	}
}

// PageReport is the per-page line of the run summary.
type PageReport struct {
	Location  PageLocation
	Expected  int
	Collected int
	Records   int
	Outcome   PageOutcome
	Err       error
}

// RunSummary holds the computed statistics over a finished run.
type RunSummary struct {
	TotalRecords   int
	Resolved       int
	NoNumber       int
	Unresolved     int
	ResolutionRate float64
	Pages          []PageReport
	TopRated       []*Record
	ByLocality     map[string]int
}
