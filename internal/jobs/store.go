package jobs

import (
	"sort"
	"sync"
	"time"
)

// Store is the process-wide job table. All access serializes through one
// mutex; critical sections are pure data mutation and never span pipeline
// work. It is the only shared mutable surface between request handlers and
// running jobs.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	maxLogs int
}

// NewStore builds an empty store. maxLogs bounds the retained log lines per
// job; zero or less keeps the default of 200.
func NewStore(maxLogs int) *Store {
	if maxLogs <= 0 {
		maxLogs = 200
	}
	return &Store{
		records: make(map[string]*Record),
		maxLogs: maxLogs,
	}
}

// Create registers a new record. It reports false when the id already exists.
func (s *Store) Create(record Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return false
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = StatusQueued
	}
	stored := record.Clone()
	s.records[record.ID] = &stored
	return true
}

// Get returns a deep copy of the record, or false when the id is unknown.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return record.Clone(), true
}

// MergeUpdate applies a partial update atomically. A missing id is a no-op:
// a caller that removed the record must not see it resurrected by a late
// pipeline event. Terminal records ignore further status and progress moves
// but still accept log appends.
func (s *Store) MergeUpdate(id string, update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return
	}

	terminal := record.Status.Terminal()
	if update.Status != nil && !terminal {
		record.Status = *update.Status
		if record.Status.Terminal() {
			record.DoneAt = time.Now()
		}
	}
	if update.Progress != nil && !terminal {
		record.Progress = clampProgress(*update.Progress)
	}
	if update.Error != nil && !terminal {
		record.Error = *update.Error
	}
	if update.ResultRef != nil && !terminal {
		record.ResultRef = *update.ResultRef
	}
	if len(update.AppendLogs) > 0 {
		record.Logs = append(record.Logs, update.AppendLogs...)
		if len(record.Logs) > s.maxLogs {
			record.Logs = record.Logs[len(record.Logs)-s.maxLogs:]
		}
	}
	record.UpdatedAt = time.Now()
}

// Remove deletes and returns the record, or false when the id is unknown.
func (s *Store) Remove(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	delete(s.records, id)
	return record.Clone(), true
}

// List returns copies of every record, newest first.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}

// Len reports the number of tracked records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SweepTerminal removes terminal records older than maxAge and returns their
// ids. Completed jobs are normally removed when their result is fetched;
// the sweep catches abandoned ones.
func (s *Store) SweepTerminal(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for id, record := range s.records {
		if record.Status.Terminal() && !record.DoneAt.IsZero() && record.DoneAt.Before(cutoff) {
			delete(s.records, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func clampProgress(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
