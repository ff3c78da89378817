package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ResolveProgress draws one bar per page while its records are resolved.
// Start, Increment and Done are called from the run goroutine only.
type ResolveProgress struct {
	out io.Writer

	p     *mpb.Progress
	bar   *mpb.Bar
	start time.Time

	resolved atomic.Int64
	page     int
}

func NewResolveProgress() *ResolveProgress {
	return &ResolveProgress{out: os.Stderr}
}

func (r *ResolveProgress) Start(total int, label string) {
	r.Done()
	r.page++
	r.start = time.Now()
	r.resolved.Store(0)

	r.p = mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(r.out),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	r.bar = r.p.New(
		0,
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("page %d %s  ", r.page, label)),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | %d/%d records", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				return fmt.Sprintf(" | %ds", int(time.Since(r.start).Seconds()))
			}),
		),
	)
	r.bar.SetTotal(int64(total), false)
}

func (r *ResolveProgress) Increment() {
	if r.bar == nil {
		return
	}
	r.resolved.Add(1)
	r.bar.Increment()
}

// Done completes the current bar at whatever was reached and waits for the
// final render.
func (r *ResolveProgress) Done() {
	if r.bar == nil {
		return
	}
	r.bar.SetTotal(-1, true)
	if !r.bar.Completed() {
		r.bar.Abort(false)
	}
	r.p.Wait()
	r.bar = nil
	r.p = nil
}

// Resolved reports how many records the current or last bar counted.
func (r *ResolveProgress) Resolved() int {
	return int(r.resolved.Load())
}
