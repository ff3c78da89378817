package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"justdial-scraper/config"
	"justdial-scraper/models"
	"justdial-scraper/utils"
)

type memoryStore struct {
	rows     map[string]models.Record
	order    []string
	writeErr error
	fetchErr error
	closed   bool
}

func newMemoryStore(existing ...models.Record) *memoryStore {
	m := &memoryStore{rows: map[string]models.Record{}}
	for _, r := range existing {
		m.put(r)
	}
	return m
}

func (m *memoryStore) put(r models.Record) {
	if _, ok := m.rows[r.ItemID]; !ok {
		m.order = append(m.order, r.ItemID)
	}
	m.rows[r.ItemID] = r
}

func (m *memoryStore) Write(records []models.Record) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	for _, r := range records {
		if prev, ok := m.rows[r.ItemID]; ok && r.Phone == nil {
			r.Phone = prev.Phone
		}
		m.put(r)
	}
	return nil
}

func (m *memoryStore) FetchAll() ([]models.Record, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]models.Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *memoryStore) Close() error {
	m.closed = true
	return nil
}

func record(id, phone string) models.Record {
	r := models.Record{ItemID: id, Title: "Listing " + id, Resolution: models.ResolutionNoNumber}
	if phone != "" {
		r.Phone = &phone
		r.Resolution = models.ResolutionResolved
	}
	return r
}

func TestMirrorRecordsSummarisesStoredRowsOfThisRun(t *testing.T) {
	store := newMemoryStore(record("old", "911000000000"), record("b", "919999999999"))
	records := []models.Record{record("a", "911111111111"), record("b", "")}

	got := mirrorRecords(store, records, utils.NewLogger())

	require.True(t, store.closed)
	require.Len(t, got, 2)
	ids := []string{got[0].ItemID, got[1].ItemID}
	require.ElementsMatch(t, []string{"a", "b"}, ids)
	for _, r := range got {
		if r.ItemID == "b" {
			require.Equal(t, "919999999999", r.PhoneValue(), "stored phone survives a later miss")
		}
	}
}

func TestMirrorRecordsFallsBackToMemory(t *testing.T) {
	records := []models.Record{record("a", "911111111111")}

	writeFails := newMemoryStore()
	writeFails.writeErr = errors.New("connection refused")
	require.Equal(t, records, mirrorRecords(writeFails, records, utils.NewLogger()))
	require.True(t, writeFails.closed)

	fetchFails := newMemoryStore()
	fetchFails.fetchErr = errors.New("timeout")
	require.Equal(t, records, mirrorRecords(fetchFails, records, utils.NewLogger()))
	require.True(t, fetchFails.closed)
}

func TestScraperConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 7
	cfg.MaxScrolls = 40
	cfg.StableSamples = 3
	cfg.PageLoadDelay = 4 * time.Second

	got := scraperConfig(cfg)
	require.Equal(t, 7, got.ChunkSize)
	require.Equal(t, 4*time.Second, got.PageLoadDelay)
	require.Equal(t, 40, got.Acquire.MaxScrolls)
	require.Equal(t, 3, got.Acquire.StableSamples)
	require.Equal(t, cfg.ScrollPixels, got.Acquire.ScrollPixels)
}
