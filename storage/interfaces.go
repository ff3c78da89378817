package storage

import "justdial-scraper/models"

// RecordWriter is the interface any storage backend must satisfy.
type RecordWriter interface {
	Write(records []models.Record) error
	Close() error
}

// RecordStore is a backend that can also read back what it holds.
type RecordStore interface {
	RecordWriter
	FetchAll() ([]models.Record, error)
}
