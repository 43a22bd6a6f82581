package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// FlushSize is the per-writer record count between flushes.
const FlushSize = 500

// BufferSize is the capacity of the record channel between the analyzer
// producers and the sink; producers block when the sink lags.
const BufferSize = 1000

// Sink drains a record channel into per-variant CSV files inside one
// database directory. It is a single-consumer component: exactly one
// goroutine calls Run.
type Sink struct {
	dir     string
	writers map[string]*tableWriter
}

type tableWriter struct {
	file *os.File
	csv  *csv.Writer
	curr int
}

// NewSink creates a sink writing under dir; the directory is created when
// missing.
func NewSink(dir string) (*Sink, error) {
	mkdirErr := os.MkdirAll(dir, 0o750)
	if mkdirErr != nil {
		return nil, fmt.Errorf("create database dir: %w", mkdirErr)
	}

	return &Sink{
		dir:     dir,
		writers: make(map[string]*tableWriter),
	}, nil
}

// Run consumes records until the channel closes, then performs a final
// flush and closes every file. Any I/O error aborts the run.
func (s *Sink) Run(records <-chan Record) error {
	defer s.closeAll()

	for rec := range records {
		writeErr := s.write(rec)
		if writeErr != nil {
			return writeErr
		}
	}

	for variant, writer := range s.writers {
		writer.csv.Flush()

		flushErr := writer.csv.Error()
		if flushErr != nil {
			return fmt.Errorf("flush %s.csv: %w", variant, flushErr)
		}
	}

	return nil
}

func (s *Sink) write(rec Record) error {
	variant := rec.Variant()

	writer, ok := s.writers[variant]
	if !ok {
		opened, openErr := s.open(variant)
		if openErr != nil {
			return openErr
		}

		writer = opened
		s.writers[variant] = writer
	}

	writeErr := writer.csv.Write(rec.Row())
	if writeErr != nil {
		return fmt.Errorf("write %s.csv: %w", variant, writeErr)
	}

	writer.curr++
	if writer.curr%FlushSize == 0 {
		writer.csv.Flush()

		flushErr := writer.csv.Error()
		if flushErr != nil {
			return fmt.Errorf("flush %s.csv: %w", variant, flushErr)
		}
	}

	return nil
}

func (s *Sink) open(variant string) (*tableWriter, error) {
	path := filepath.Join(s.dir, variant+".csv")

	file, createErr := os.Create(path)
	if createErr != nil {
		return nil, fmt.Errorf("create %s: %w", path, createErr)
	}

	writer := csv.NewWriter(file)

	headerErr := writer.Write(Headers[variant])
	if headerErr != nil {
		return nil, fmt.Errorf("write %s header: %w", path, headerErr)
	}

	return &tableWriter{file: file, csv: writer}, nil
}

func (s *Sink) closeAll() {
	for _, writer := range s.writers {
		writer.csv.Flush()
		_ = writer.file.Close()
	}
}
