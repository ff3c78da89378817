package justdial

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"justdial-scraper/models"
	"justdial-scraper/storage"
	"justdial-scraper/ui"
)

const (
	pageA = models.PageLocation("https://www.justdial.com/Thane/Dentists/nct-10156331")
	pageB = models.PageLocation("https://www.justdial.com/Thane/Bakeries/nct-10034208")
	pageC = models.PageLocation("https://www.justdial.com/Thane/Florists/nct-10207931")
	pageD = models.PageLocation("https://www.justdial.com/Thane/Tailors/nct-10476395")
)

type recordingCheckpointer struct {
	chunks [][]models.Record
	pages  map[int][]models.Record
	err    error
}

func (r *recordingCheckpointer) WriteChunk(records []models.Record, chunkIndex int) (string, error) {
	r.chunks = append(r.chunks, append([]models.Record(nil), records...))
	return fmt.Sprintf("chunk%d.csv", chunkIndex), r.err
}

func (r *recordingCheckpointer) WritePage(records []models.Record, pageIndex int) (string, error) {
	if r.pages == nil {
		r.pages = make(map[int][]models.Record)
	}
	r.pages[pageIndex] = records
	return fmt.Sprintf("page%d.csv", pageIndex), r.err
}

// threeListingSession serves a page declaring three ids that arrive over
// three scrolls, each with a DOM node.
func threeListingSession() *fakeSession {
	session := newFakeSession()
	session.nextData = `{"props":{"pageProps":{"listData":{"nextdocid":"1,2,3"}}}}`
	session.batches = [][]models.CollectedPair{
		{pair("1", "a")},
		{pair("2", "b"), pair("1", "a")},
		{pair("3", "c")},
	}
	session.nodes["1"] = listingNode("1", "Alpha Dental", "4.6", "Naupada, Thane West")
	session.nodes["2"] = listingNode("2", "Beta Dental", "4.1", "Kopri, Thane East")
	session.nodes["3"] = listingNode("3", "Gamma Dental", "3.9", "Vartak Nagar, Thane West")
	return session
}

func newTestScraper(t *testing.T, session *fakeSession, checkpoints Checkpointer, chunkSize int) *Scraper {
	t.Helper()
	srv := resolverServer(t, map[string]string{
		"1": "https://wa.me/911111111111?text=hi",
		"2": "https://wa.me/912222222222",
		"3": "https://www.justdial.com/",
	})
	cfg := ScraperConfig{
		PageLoadDelay: time.Second,
		ChunkSize:     chunkSize,
		Acquire:       AcquireConfig{ScrollPixels: 600, ScrollStep: 50, MaxScrolls: 10},
	}
	gate := NewLoginGate(session, nil, 0, testLogger())
	s := New(cfg, session, gate, newTestResolver(srv.URL+"/webmain/cwaxp.php"), checkpoints, testLogger())
	s.sleep = noSleep
	return s
}

func TestScraperSinglePageEndToEnd(t *testing.T) {
	session := threeListingSession()
	dir := t.TempDir()
	checkpoints, err := storage.NewCheckpointWriter(dir, "jd", testLogger())
	require.NoError(t, err)

	s := newTestScraper(t, session, checkpoints, 2)
	results, reports := s.Run(context.Background(), []models.PageLocation{pageA})

	require.Len(t, reports, 1)
	require.Equal(t, models.OutcomeContinue, reports[0].Outcome)
	require.Equal(t, 3, reports[0].Expected)
	require.Equal(t, 3, reports[0].Collected)
	require.Equal(t, 3, reports[0].Records)
	require.Equal(t, 3, results.Len())

	records := results.Records()
	require.Equal(t, "911111111111", records[0].PhoneValue())
	require.Equal(t, models.ResolutionResolved, records[1].Resolution)
	require.Equal(t, models.ResolutionNoNumber, records[2].Resolution)
	require.Nil(t, records[2].Phone)

	final, err := checkpoints.WriteFinal(records)
	require.NoError(t, err)
	rows := readRows(t, final)
	require.Len(t, rows, 4)
	require.Equal(t, storage.Columns, rows[0])

	chunks, err := filepath.Glob(filepath.Join(dir, "partial_jd_*_chunk*.csv"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Len(t, readRows(t, chunks[0]), 3)

	pages, err := filepath.Glob(filepath.Join(dir, "partial_jd_*_page001.csv"))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Len(t, readRows(t, pages[0]), 4)
}

func TestScraperWritesChunkEveryN(t *testing.T) {
	session := threeListingSession()
	checkpoints := &recordingCheckpointer{}

	s := newTestScraper(t, session, checkpoints, 1)
	_, reports := s.Run(context.Background(), []models.PageLocation{pageA})

	require.Equal(t, models.OutcomeContinue, reports[0].Outcome)
	require.Len(t, checkpoints.chunks, 3)
	for i, chunk := range checkpoints.chunks {
		require.Len(t, chunk, 1, "chunk %d", i+1)
	}
	require.Len(t, checkpoints.pages[1], 3)
}

func TestScraperCheckpointFailureDoesNotAbort(t *testing.T) {
	session := threeListingSession()
	checkpoints := &recordingCheckpointer{err: errors.New("disk full")}

	s := newTestScraper(t, session, checkpoints, 2)
	results, reports := s.Run(context.Background(), []models.PageLocation{pageA})

	require.Equal(t, models.OutcomeContinue, reports[0].Outcome)
	require.Equal(t, 3, results.Len())
}

func TestScraperPageOutcomes(t *testing.T) {
	session := threeListingSession()
	session.onNavigate = func(url string) error {
		switch models.PageLocation(url) {
		case pageA:
			session.cookies = map[string]string{}
		case pageC:
			return fmt.Errorf("navigate: %w", ErrSessionLost)
		default:
			session.cookies = map[string]string{"JDTID": "t"}
		}
		return nil
	}
	checkpoints := &recordingCheckpointer{}

	s := newTestScraper(t, session, checkpoints, 25)
	results, reports := s.Run(context.Background(), []models.PageLocation{pageA, pageB, pageB, pageC, pageD})

	require.Len(t, reports, 4)
	require.Equal(t, models.OutcomeAbortPage, reports[0].Outcome)
	require.ErrorIs(t, reports[0].Err, ErrLoginRequired)

	require.Equal(t, models.OutcomeContinue, reports[1].Outcome)
	require.Equal(t, 3, reports[1].Records)

	// the repeated page finds nothing new
	require.Equal(t, models.OutcomeContinue, reports[2].Outcome)
	require.Zero(t, reports[2].Records)

	require.Equal(t, models.OutcomeAbortRun, reports[3].Outcome)
	require.ErrorIs(t, reports[3].Err, ErrSessionLost)

	require.Equal(t, 3, results.Len())
	require.NotContains(t, session.navigated, string(pageD))
	require.Len(t, checkpoints.pages, 1)
}

func TestScraperLoginBarrierBeforeResolution(t *testing.T) {
	// logged in on arrival, logged out once the listing nodes were read
	session := &logoutAfterEnrich{fakeSession: threeListingSession()}
	checkpoints := &recordingCheckpointer{}

	gate := NewLoginGate(session, nil, 0, testLogger())
	s := New(ScraperConfig{ChunkSize: 5, Acquire: AcquireConfig{ScrollPixels: 10, ScrollStep: 10, MaxScrolls: 5}},
		session, gate, newTestResolver("http://127.0.0.1:1"), checkpoints, testLogger())
	s.sleep = noSleep

	res := s.ProcessPage(context.Background(), 0, pageA)
	require.Equal(t, models.OutcomeAbortPage, res.Report.Outcome)
	require.ErrorIs(t, res.Report.Err, ErrLoginRequired)
	require.Empty(t, res.Records)
	require.Empty(t, checkpoints.chunks)
	require.Empty(t, checkpoints.pages)
}

type logoutAfterEnrich struct {
	*fakeSession
}

func (l *logoutAfterEnrich) ElementHTML(ctx context.Context, id string) (string, error) {
	html, err := l.fakeSession.ElementHTML(ctx, id)
	l.cookies = map[string]string{}
	return html, err
}

func TestScraperCancelledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	session := threeListingSession()
	session.onNavigate = func(string) error {
		cancel()
		return nil
	}

	s := newTestScraper(t, session, nil, 5)
	results, reports := s.Run(ctx, []models.PageLocation{pageA, pageB})

	require.Len(t, reports, 1)
	require.Equal(t, models.OutcomeAbortRun, reports[0].Outcome)
	require.Zero(t, results.Len())
}

func TestScraperCancelledDuringResolution(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.Header().Set("Location", "https://wa.me/911111111111")
		w.WriteHeader(http.StatusFound)
	}))
	t.Cleanup(srv.Close)

	session := threeListingSession()
	cfg := ScraperConfig{
		ChunkSize: 5,
		Acquire:   AcquireConfig{ScrollPixels: 600, ScrollStep: 50, MaxScrolls: 10},
	}
	gate := NewLoginGate(session, nil, 0, testLogger())
	s := New(cfg, session, gate, newTestResolver(srv.URL+"/webmain/cwaxp.php"), nil, testLogger())
	s.sleep = noSleep
	s.SetProgress(ui.NewResolveProgress())

	type runResult struct {
		results *models.ResultSet
		reports []models.PageReport
	}
	finished := make(chan runResult, 1)
	go func() {
		results, reports := s.Run(ctx, []models.PageLocation{pageA, pageB})
		finished <- runResult{results, reports}
	}()

	select {
	case got := <-finished:
		require.Len(t, got.reports, 1)
		require.Equal(t, models.OutcomeAbortRun, got.reports[0].Outcome)
		require.ErrorIs(t, got.reports[0].Err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation during resolution")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want models.PageOutcome
	}{
		{nil, models.OutcomeContinue},
		{ErrLoginRequired, models.OutcomeAbortPage},
		{fmt.Errorf("navigate: %w", context.DeadlineExceeded), models.OutcomeAbortPage},
		{errors.New("boom"), models.OutcomeAbortPage},
		{fmt.Errorf("read cookies: %w", ErrSessionLost), models.OutcomeAbortRun},
		{context.Canceled, models.OutcomeAbortRun},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
