package main

import (
	"context"
	"sort"
)

// Selection is the set of job IDs the user has marked. It belongs to the view
// layer, not the Inspector: a selected job that disappears from a later
// snapshot stays selected until it is cleared or successfully cancelled.
type Selection struct {
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// NewSelectionFrom builds a selection holding the given IDs.
func NewSelectionFrom(jobIDs []string) *Selection {
	s := NewSelection()
	for _, id := range jobIDs {
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle adds the ID if absent and removes it if present.
func (s *Selection) Toggle(jobID string) {
	if jobID == "" {
		return
	}
	if _, ok := s.ids[jobID]; ok {
		delete(s.ids, jobID)
	} else {
		s.ids[jobID] = struct{}{}
	}
}

func (s *Selection) Has(jobID string) bool {
	_, ok := s.ids[jobID]
	return ok
}

func (s *Selection) Remove(jobID string) { delete(s.ids, jobID) }

func (s *Selection) Clear() { s.ids = make(map[string]struct{}) }

func (s *Selection) Len() int { return len(s.ids) }

// IDs returns the selected jobs in sorted order so batch operations are
// deterministic.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FilterJobs keeps the rows whose fields contain the filter text as a
// case-sensitive substring in at least one header column. An empty filter
// returns the snapshot's rows unchanged. Pure function over an immutable
// snapshot; recomputed on every redraw, never cached across refreshes.
func FilterJobs(snap Snapshot, filter string) []Record {
	if filter == "" {
		return snap.Rows
	}
	out := make([]Record, 0, len(snap.Rows))
	for _, row := range snap.Rows {
		if row.Matches(snap.Header, filter) {
			out = append(out, row)
		}
	}
	return out
}

// CancelFailure carries the stderr of a rejected cancel for display.
type CancelFailure struct {
	JobID  string
	Stderr string
}

// CancelSelected cancels every selected job, removing the ones that succeed
// from the selection. A failed cancel does not abort the loop; the remaining
// jobs are still attempted and the failures come back with their stderr text.
func CancelSelected(ctx context.Context, inspector *Inspector, sel *Selection) []CancelFailure {
	var failures []CancelFailure
	for _, id := range sel.IDs() {
		result, err := inspector.CancelJob(ctx, id)
		if err != nil {
			failures = append(failures, CancelFailure{JobID: id, Stderr: err.Error()})
			continue
		}
		if !result.OK() {
			failures = append(failures, CancelFailure{JobID: id, Stderr: result.Stderr})
			continue
		}
		sel.Remove(id)
	}
	return failures
}
