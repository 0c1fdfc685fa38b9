package services

import (
	"sync"
	"time"

	"techstock/internal/domain"
)

// ProgressFunc observes persistence progress. Calls are serialized and
// Current increases by one per call.
type ProgressFunc func(domain.Progress)

// ResultAggregator collects unit outcomes. It is safe for concurrent use.
type ResultAggregator struct {
	mu        sync.Mutex
	variant   domain.Variant
	operator  string
	total     int
	current   int
	successes []domain.Success
	failures  []domain.Failure
	started   time.Time
	observer  ProgressFunc
}

func NewResultAggregator(v domain.Variant, operator string, total int, observer ProgressFunc) *ResultAggregator {
	return &ResultAggregator{
		variant:   v,
		operator:  operator,
		total:     total,
		successes: []domain.Success{},
		failures:  []domain.Failure{},
		started:   time.Now().UTC(),
		observer:  observer,
	}
}

func (a *ResultAggregator) Success(localID, serial, generatedID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.successes = append(a.successes, domain.Success{LocalID: localID, Serial: serial, GeneratedID: generatedID})
	a.advance()
}

func (a *ResultAggregator) Failure(localID, serial, msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, domain.Failure{LocalID: localID, Serial: serial, ErrorMessage: msg})
	a.advance()
}

func (a *ResultAggregator) advance() {
	a.current++
	if a.observer != nil {
		a.observer(domain.Progress{Current: a.current, Total: a.total})
	}
}

func (a *ResultAggregator) Progress() domain.Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	return domain.Progress{Current: a.current, Total: a.total}
}

// Result freezes the collected outcomes.
func (a *ResultAggregator) Result() *domain.BatchResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &domain.BatchResult{
		Variant:   a.variant,
		Operator:  a.operator,
		Successes: append(make([]domain.Success, 0, len(a.successes)), a.successes...),
		Failures:  append(make([]domain.Failure, 0, len(a.failures)), a.failures...),
		Counts: domain.Counts{
			Attempted: a.current,
			Successes: len(a.successes),
			Failures:  len(a.failures),
		},
		StartedAt:  a.started,
		FinishedAt: time.Now().UTC(),
	}
}
