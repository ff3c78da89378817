package justdial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"justdial-scraper/models"
	"justdial-scraper/services"
	"justdial-scraper/utils"
)

// Checkpointer persists partial results while a run is in progress.
type Checkpointer interface {
	WriteChunk(records []models.Record, chunkIndex int) (string, error)
	WritePage(records []models.Record, pageIndex int) (string, error)
}

// Progress reports resolution progress for one page.
type Progress interface {
	Start(total int, label string)
	Increment()
	Done()
}

type noProgress struct{}

func (noProgress) Start(int, string) {}
func (noProgress) Increment()        {}
func (noProgress) Done()             {}

// ScraperConfig holds the orchestration timings and the acquisition tuning.
type ScraperConfig struct {
	PageLoadDelay time.Duration
	PageGapMin    time.Duration
	PageGapMax    time.Duration
	ChunkSize     int
	Acquire       AcquireConfig
}

// PageResult is what one page contributed to the run.
type PageResult struct {
	Report  models.PageReport
	Records []models.Record
}

// Scraper drives every target page through acquisition, enrichment,
// resolution and checkpointing using a single browser session.
type Scraper struct {
	cfg         ScraperConfig
	session     Session
	gate        *LoginGate
	enricher    *Enricher
	resolver    *Resolver
	checkpoints Checkpointer
	progress    Progress
	logger      *utils.Logger
	sleep       func(time.Duration)

	results *models.ResultSet
	pending []models.Record
	chunks  int
}

// New creates a Scraper. checkpoints may be nil to disable partial files.
func New(cfg ScraperConfig, session Session, gate *LoginGate, resolver *Resolver, checkpoints Checkpointer, logger *utils.Logger) *Scraper {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 25
	}
	return &Scraper{
		cfg:         cfg,
		session:     session,
		gate:        gate,
		enricher:    NewEnricher(session, services.NewCleaner(logger), logger),
		resolver:    resolver,
		checkpoints: checkpoints,
		progress:    noProgress{},
		logger:      logger,
		sleep:       time.Sleep,
		results:     models.NewResultSet(),
	}
}

// SetProgress installs a progress reporter for the resolution stage.
func (s *Scraper) SetProgress(p Progress) {
	if p == nil {
		p = noProgress{}
	}
	s.progress = p
}

// ClassifyError maps a page failure to what the run loop should do next.
// Losing the browser or cancelling the run ends the run; everything else
// only ends the current page.
func ClassifyError(err error) models.PageOutcome {
	switch {
	case err == nil:
		return models.OutcomeContinue
	case errors.Is(err, ErrSessionLost), errors.Is(err, context.Canceled):
		return models.OutcomeAbortRun
	default:
		return models.OutcomeAbortPage
	}
}

// Run processes every location in order and returns the accumulated
// results together with one report per page that was started.
func (s *Scraper) Run(ctx context.Context, locations []models.PageLocation) (*models.ResultSet, []models.PageReport) {
	reports := make([]models.PageReport, 0, len(locations))

	for i, loc := range locations {
		if ctx.Err() != nil {
			s.logger.Warn("[run] Cancelled before %s", loc)
			break
		}

		res := s.ProcessPage(ctx, i, loc)
		for _, rec := range res.Records {
			s.results.Add(rec)
		}
		reports = append(reports, res.Report)

		if res.Report.Outcome == models.OutcomeAbortRun {
			s.logger.Error("[run] Aborting run after %s: %v", loc, res.Report.Err)
			break
		}
		if i < len(locations)-1 {
			s.sleep(utils.Jitter(s.cfg.PageGapMin, s.cfg.PageGapMax))
		}
	}

	s.logger.Info("[run] %d records collected across %d pages", s.results.Len(), len(reports))
	return s.results, reports
}

// ProcessPage runs the full pipeline for one location. Records resolved
// before a failure are still returned.
func (s *Scraper) ProcessPage(ctx context.Context, index int, loc models.PageLocation) PageResult {
	report := models.PageReport{Location: loc}
	var records []models.Record

	fail := func(err error) PageResult {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", context.Canceled, err)
		}
		report.Outcome = ClassifyError(err)
		report.Err = err
		report.Records = len(records)
		s.logger.Error("[run] Page %s ended early (%s): %v", loc, report.Outcome, err)
		return PageResult{Report: report, Records: records}
	}

	s.logger.Info("[run] Processing: %s", loc)
	if err := s.session.Navigate(ctx, loc.String()); err != nil {
		return fail(err)
	}
	s.sleep(s.cfg.PageLoadDelay)

	if err := s.gate.EnsureLoggedIn(ctx); err != nil {
		return fail(err)
	}

	island, err := ReadNextData(ctx, s.session)
	if errors.Is(err, ErrSessionLost) {
		return fail(err)
	}
	if err != nil {
		s.logger.Debug("[acquire] %v", err)
	}
	expected := island.ExpectedCount()
	if expected <= 0 {
		s.logger.Warn("[acquire] Could not parse expected docid count from page (nextdocid). Will use best-effort stopping.")
	} else {
		s.logger.Info("[acquire] Found expected docid count = %d", expected)
	}
	report.Expected = expected

	interceptor := NewInterceptor(s.session, s.logger)
	if err := interceptor.Install(ctx, island); err != nil {
		return fail(err)
	}

	acquirer := NewAcquirer(s.session, interceptor, s.cfg.Acquire, s.logger)
	acquirer.sleep = s.sleep
	acquired := acquirer.Run(ctx, expected)
	switch acquired.Reason {
	case ReasonCancelled:
		return fail(context.Canceled)
	case ReasonSessionLost:
		return fail(fmt.Errorf("%w: while scrolling", ErrSessionLost))
	}

	pairs := Dedup(acquired.Pairs)
	report.Collected = len(pairs)
	s.logger.Info("[acquire] Total deduped pairs collected: %d (%s)", len(pairs), acquired.Reason)

	fresh := make([]models.CollectedPair, 0, len(pairs))
	for _, p := range pairs {
		if s.results.Contains(p.ItemID) {
			s.logger.Debug("[enrich] %s already collected on an earlier page", p.ItemID)
			continue
		}
		fresh = append(fresh, p)
	}

	enriched, err := s.enricher.Enrich(ctx, loc.String(), fresh)
	if err != nil {
		return fail(err)
	}

	// A login barrier can reappear while scrolling.
	if !s.gate.Check(ctx) {
		return fail(fmt.Errorf("%w: login barrier appeared on %s", ErrLoginRequired, loc))
	}
	cookies, err := s.session.Cookies(ctx)
	if err != nil {
		return fail(err)
	}

	records = s.resolvePage(ctx, loc, enriched, cookies)
	report.Records = len(records)
	if ctx.Err() != nil {
		return fail(ctx.Err())
	}

	s.writePage(records, index)
	report.Outcome = models.OutcomeContinue
	return PageResult{Report: report, Records: records}
}

func (s *Scraper) resolvePage(ctx context.Context, loc models.PageLocation, enriched []models.Record, cookies map[string]string) []models.Record {
	out := make([]models.Record, 0, len(enriched))
	s.progress.Start(len(enriched), "resolving")
	defer s.progress.Done()

	for i, rec := range enriched {
		pair := models.CollectedPair{ItemID: rec.ItemID, SecondaryToken: rec.SecondaryToken}
		s.logger.Info("[resolve] [%d/%d] Resolving %s", i+1, len(enriched), pair.ItemID)

		res := s.resolver.Resolve(ctx, pair, cookies, loc.String())
		if ctx.Err() != nil {
			break
		}
		res.Apply(&rec)
		if res.Status == models.ResolutionNoNumber {
			s.logger.Warn("[resolve] %s: no number in %s", rec.ItemID, res.Target)
		}

		out = append(out, rec)
		s.pending = append(s.pending, rec)
		if len(s.pending) >= s.cfg.ChunkSize {
			s.flushChunk()
		}
		s.progress.Increment()
	}
	return out
}

func (s *Scraper) flushChunk() {
	if s.checkpoints == nil || len(s.pending) == 0 {
		s.pending = nil
		return
	}
	s.chunks++
	path, err := s.checkpoints.WriteChunk(s.pending, s.chunks)
	if err != nil {
		s.logger.Error("[checkpoint] Chunk %d not written: %v", s.chunks, err)
	} else {
		s.logger.Info("[checkpoint] Saved %d records to %s", len(s.pending), path)
	}
	s.pending = nil
}

func (s *Scraper) writePage(records []models.Record, index int) {
	if s.checkpoints == nil || len(records) == 0 {
		return
	}
	path, err := s.checkpoints.WritePage(records, index+1)
	if err != nil {
		s.logger.Error("[checkpoint] Page %d not written: %v", index+1, err)
		return
	}
	s.logger.Info("[checkpoint] Saved page %d (%d records) to %s", index+1, len(records), path)
}
