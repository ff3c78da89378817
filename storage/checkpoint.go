package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

const (
	runStampLayout   = "20060102_150405"
	chunkStampLayout = "150405"
)

// CheckpointWriter persists chunk, page and final files for one run. Every
// file gets a fresh name; an existing file is never overwritten.
type CheckpointWriter struct {
	dir      string
	prefix   string
	runStamp string
	now      func() time.Time
	logger   *utils.Logger
}

// NewCheckpointWriter prepares dir and stamps the run with the current time.
func NewCheckpointWriter(dir, prefix string, logger *utils.Logger) (*CheckpointWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("checkpoint: create output dir: %w", err)
	}
	if prefix == "" {
		prefix = "justdial"
	}
	return &CheckpointWriter{
		dir:      dir,
		prefix:   prefix,
		runStamp: time.Now().Format(runStampLayout),
		now:      time.Now,
		logger:   logger,
	}, nil
}

// WriteChunk writes the records resolved since the previous chunk.
func (w *CheckpointWriter) WriteChunk(records []models.Record, chunkIndex int) (string, error) {
	name := fmt.Sprintf("partial_%s_%s_chunk%04d_%s.csv",
		w.prefix, w.runStamp, chunkIndex, w.now().Format(chunkStampLayout))
	return w.write(name, records)
}

// WritePage writes every record one target page produced.
func (w *CheckpointWriter) WritePage(records []models.Record, pageIndex int) (string, error) {
	name := fmt.Sprintf("partial_%s_%s_page%03d.csv", w.prefix, w.runStamp, pageIndex)
	return w.write(name, records)
}

// WriteFinal writes the run's full result set.
func (w *CheckpointWriter) WriteFinal(records []models.Record) (string, error) {
	return w.write(fmt.Sprintf("%s_%s.csv", w.prefix, w.runStamp), records)
}

// write drops records whose resolution was never attempted and creates the
// first free variant of name.
func (w *CheckpointWriter) write(name string, records []models.Record) (string, error) {
	final := make([]models.Record, 0, len(records))
	for _, r := range records {
		if !r.Final() {
			w.logger.Warn("[checkpoint] Not persisting %s: resolution not attempted", r.ItemID)
			continue
		}
		final = append(final, r)
	}

	var (
		cw  *CSVWriter
		err error
	)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for attempt := 0; attempt < 100; attempt++ {
		candidate := name
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, attempt, ext)
		}
		cw, err = NewCSVWriter(filepath.Join(w.dir, candidate))
		if err == nil || !errors.Is(err, os.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("checkpoint: %w", err)
	}

	if err := cw.WriteRecords(final); err != nil {
		_ = cw.Close()
		return cw.Path(), fmt.Errorf("checkpoint: %w", err)
	}
	if err := cw.Close(); err != nil {
		return cw.Path(), fmt.Errorf("checkpoint: close: %w", err)
	}
	return cw.Path(), nil
}
