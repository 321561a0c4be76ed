// Package memory is an in-process MirrorWriter for tests and local runs
// without spreadsheet credentials.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	sheets map[string][][]any
	writes int
	fail   error
}

var (
	_ sheets.MirrorWriter = (*Store)(nil)
	_ sheets.MirrorReader = (*Store)(nil)
)

func New() *Store {
	return &Store{sheets: make(map[string][][]any)}
}

// FailWith makes subsequent writes return err until called with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Store) WriteSheet(_ context.Context, title string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return fmt.Errorf("write %s: %w", title, s.fail)
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	s.sheets[title] = cp
	s.writes++
	return nil
}

func (s *Store) ReadSheet(_ context.Context, title string) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", title)
	}
	return rows, nil
}

// Titles lists the sheets written so far, sorted.
func (s *Store) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sheets))
	for t := range s.sheets {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Writes counts successful WriteSheet calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
