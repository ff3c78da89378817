package justdial

import (
	"context"
	"errors"
	"strconv"
	"time"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

// StopReason says why the acquisition loop ended.
type StopReason string

const (
	ReasonExpectedReached StopReason = "expected-count-reached"
	ReasonStable          StopReason = "stable"
	ReasonCapReached      StopReason = "scroll-cap-reached"
	ReasonCancelled       StopReason = "cancelled"
	ReasonSessionLost     StopReason = "session-lost"
)

type acquireState int

const (
	stateScrolling acquireState = iota
	stateSampling
	stateEvaluating
	stateDone
)

// AcquireConfig tunes the scroll stimulus and the termination policy.
type AcquireConfig struct {
	ScrollPixels   int
	ScrollStep     int
	ScrollPauseMin time.Duration
	ScrollPauseMax time.Duration
	SettleDelay    time.Duration
	MaxScrolls     int
	// StableSamples > 1 stops the loop once that many consecutive samples
	// show the same unique count. Only used when no expected count is known;
	// 0 leaves the cap as the only stop.
	StableSamples int
}

// AcquireResult is the final drained set and how the loop got there.
type AcquireResult struct {
	Pairs      []models.CollectedPair
	Iterations int
	Samples    []int
	Reason     StopReason
}

// Acquirer drives scrolling and samples the interceptor until the page is
// considered fully loaded or the scroll cap is hit.
type Acquirer struct {
	session     Session
	interceptor *Interceptor
	cfg         AcquireConfig
	logger      *utils.Logger
	sleep       func(time.Duration)
}

func NewAcquirer(session Session, interceptor *Interceptor, cfg AcquireConfig, logger *utils.Logger) *Acquirer {
	return &Acquirer{
		session:     session,
		interceptor: interceptor,
		cfg:         cfg,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// ExpectedReached is the authoritative termination predicate.
func ExpectedReached(unique, expected int) bool {
	return expected > 0 && unique >= expected
}

// StabilityReached reports whether the last window samples are all equal.
// A window below 2 disables the heuristic.
func StabilityReached(samples []int, window int) bool {
	if window < 2 || len(samples) < window {
		return false
	}
	last := samples[len(samples)-1]
	for _, s := range samples[len(samples)-window:] {
		if s != last {
			return false
		}
	}
	return true
}

// Run executes the loop. expected <= 0 means the page did not declare a count.
// Run never fails: errors while scrolling or sampling are logged and the loop
// moves on, and the scroll cap always bounds it.
func (a *Acquirer) Run(ctx context.Context, expected int) AcquireResult {
	var res AcquireResult
	var current []models.CollectedPair
	expectedLabel := "unknown"
	if expected > 0 {
		expectedLabel = strconv.Itoa(expected)
	}

	state := stateScrolling
	for state != stateDone {
		switch state {
		case stateScrolling:
			if ctx.Err() != nil {
				res.Reason = ReasonCancelled
				state = stateDone
				continue
			}
			if res.Iterations >= a.cfg.MaxScrolls {
				res.Reason = ReasonCapReached
				state = stateDone
				continue
			}
			res.Iterations++
			if err := a.scroll(ctx); err != nil {
				a.logger.Debug("[acquire] Scroll %d stopped early: %v", res.Iterations, err)
			}
			state = stateSampling

		case stateSampling:
			a.sleep(a.cfg.SettleDelay)
			pairs, err := a.interceptor.Drain(ctx)
			if errors.Is(err, ErrSessionLost) {
				res.Reason = ReasonSessionLost
				current = pairs
				state = stateDone
				continue
			}
			if err != nil {
				a.logger.Warn("[acquire] Error fetching collected pairs from browser: %v", err)
			}
			current = pairs
			res.Samples = append(res.Samples, len(current))
			a.logger.Info("[acquire] Scroll %d: collected %d unique pairs (expected %s)",
				res.Iterations, len(current), expectedLabel)
			state = stateEvaluating

		case stateEvaluating:
			switch {
			case ExpectedReached(len(current), expected):
				a.logger.Info("[acquire] Collected expected number of docids; stopping scroll.")
				res.Reason = ReasonExpectedReached
				state = stateDone
			case expected <= 0 && StabilityReached(res.Samples, a.cfg.StableSamples):
				a.logger.Info("[acquire] No growth across %d samples; treating page as fully loaded.", a.cfg.StableSamples)
				res.Reason = ReasonStable
				state = stateDone
			default:
				state = stateScrolling
			}
		}
	}

	if res.Reason == ReasonCapReached {
		a.logger.Warn("[acquire] Scroll cap of %d reached with %d pairs (expected %s)",
			a.cfg.MaxScrolls, len(current), expectedLabel)
	}

	if res.Reason == ReasonSessionLost {
		res.Pairs = current
		return res
	}

	final, err := a.interceptor.Drain(ctx)
	if err != nil {
		a.logger.Warn("[acquire] Final drain failed, keeping last sample: %v", err)
	}
	res.Pairs = final
	return res
}

func (a *Acquirer) scroll(ctx context.Context) error {
	return SmoothScroll(ctx, a.session, a.cfg.ScrollPixels, a.cfg.ScrollStep, func() {
		a.sleep(utils.Jitter(a.cfg.ScrollPauseMin, a.cfg.ScrollPauseMax))
	})
}

// SmoothScroll scrolls by pixels in increments of at most step, calling
// pause between increments. The first failing increment ends the scroll and
// its error is returned.
func SmoothScroll(ctx context.Context, session Session, pixels, step int, pause func()) error {
	if pixels <= 0 || step <= 0 {
		return nil
	}
	for done := 0; done < pixels; {
		amount := min(step, pixels-done)
		if err := session.ScrollBy(ctx, amount); err != nil {
			return err
		}
		done += amount
		if pause != nil {
			pause()
		}
	}
	return nil
}
