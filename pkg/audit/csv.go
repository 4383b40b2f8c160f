package audit

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"
)

// csvHeader is the historical access-log column layout. Order matters:
// existing log consumers parse by position.
var csvHeader = []string{
	"time_stamp",
	"event",
	"user_name",
	"ip_address",
	"access",
	"server",
	"nb_queued_requests_on_server",
	"error",
	"request_id",
}

// CSVRecorder appends access records to a CSV file. The file gets a header
// row when first created. If the file disappears between writes (external
// rotation, manual cleanup) the next record transparently re-creates it,
// header included.
type CSVRecorder struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSVRecorder creates a recorder targeting path. The file is not touched
// until the first record is written.
func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

// Record appends one record, creating the file with a header row if needed.
func (r *CSVRecorder) Record(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureOpen(); err != nil {
		return err
	}

	row := []string{
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.Event,
		rec.User,
		rec.ClientIP,
		rec.Access,
		rec.Server,
		strconv.Itoa(rec.QueueDepth),
		rec.Error,
		rec.RequestID,
	}
	if err := r.w.Write(row); err != nil {
		return fmt.Errorf("failed to write access record: %w", err)
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return fmt.Errorf("failed to flush access record: %w", err)
	}
	return nil
}

// Rotate closes the current file and renames it to a timestamped sibling.
// The next record re-creates the log with a fresh header. Rotating when the
// file does not exist is a no-op.
func (r *CSVRecorder) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked()

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil
	}
	rotated := fmt.Sprintf("%s.%s", r.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(r.path, rotated); err != nil {
		return fmt.Errorf("failed to rotate access log: %w", err)
	}
	slog.Info("rotated access log", "from", r.path, "to", rotated)
	return nil
}

// Close flushes and closes the underlying file.
func (r *CSVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	return nil
}

// ensureOpen makes sure an open handle points at an existing file, writing
// the header when the file is newly created. Callers must hold mu.
func (r *CSVRecorder) ensureOpen() error {
	if r.file != nil {
		// The file may have been removed or rotated underneath us.
		if _, err := os.Stat(r.path); err == nil {
			return nil
		}
		r.closeLocked()
	}

	_, statErr := os.Stat(r.path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open access log %q: %w", r.path, err)
	}
	r.file = f
	r.w = csv.NewWriter(f)

	if needHeader {
		if err := r.w.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write access log header: %w", err)
		}
		r.w.Flush()
		if err := r.w.Error(); err != nil {
			return fmt.Errorf("failed to flush access log header: %w", err)
		}
	}
	return nil
}

func (r *CSVRecorder) closeLocked() {
	if r.file == nil {
		return
	}
	r.w.Flush()
	if err := r.file.Close(); err != nil {
		slog.Warn("error closing access log", "path", r.path, "error", err)
	}
	r.file = nil
	r.w = nil
}
