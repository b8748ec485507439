package search

import "time"

// Observer receives search events. Implementations must be cheap; they run inline.
type Observer interface {
	CacheHit()
	CacheMiss()
	StepCompleted(rec StepRecord, elapsed time.Duration)
	SolveCompleted(res *Result, err error, elapsed time.Duration)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) CacheHit()                                    {}
func (NopObserver) CacheMiss()                                   {}
func (NopObserver) StepCompleted(StepRecord, time.Duration)      {}
func (NopObserver) SolveCompleted(*Result, error, time.Duration) {}

type multiObserver []Observer

// MultiObserver fans events out to every non-nil observer in order.
func MultiObserver(observers ...Observer) Observer {
	m := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) CacheHit() {
	for _, o := range m {
		o.CacheHit()
	}
}

func (m multiObserver) CacheMiss() {
	for _, o := range m {
		o.CacheMiss()
	}
}

func (m multiObserver) StepCompleted(rec StepRecord, elapsed time.Duration) {
	for _, o := range m {
		o.StepCompleted(rec, elapsed)
	}
}

func (m multiObserver) SolveCompleted(res *Result, err error, elapsed time.Duration) {
	for _, o := range m {
		o.SolveCompleted(res, err, elapsed)
	}
}
