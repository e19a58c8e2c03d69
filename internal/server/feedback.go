package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FeedbackStore appends user corrections to one JSON-lines file per UTC day.
type FeedbackStore struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

func NewFeedbackStore(dir string) *FeedbackStore {
	return &FeedbackStore{dir: dir, now: time.Now}
}

// Path returns the dataset file that entries received at t go to.
func (s *FeedbackStore) Path(t time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("dataset_%s.jsonl", t.UTC().Format("2006-01-02")))
}

// Append stores entry with the server receive time (Unix ms) and client IP
// added. Fields of the same name sent by the client are overwritten.
func (s *FeedbackStore) Append(entry map[string]any, clientIP string) error {
	now := s.now()
	entry["serverTimestamp"] = now.UnixMilli()
	entry["clientIp"] = clientIP

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create datasets dir: %w", err)
	}
	f, err := os.OpenFile(s.Path(now), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append dataset: %w", err)
	}
	return f.Close()
}
