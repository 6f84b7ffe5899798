package main

import (
	"strings"
	"testing"
)

func TestColumnsForSnapshot(t *testing.T) {
	snap := parseTable("JOBID USER STATE\n101 alice RUNNING\n102 somequitelongusername PENDING\n")
	cols := columnsForSnapshot(snap.Header, snap.Rows, 120)

	if len(cols) != 4 {
		t.Fatalf("expected marker + 3 columns, got %d", len(cols))
	}
	if cols[0].Width != markerColumnW {
		t.Fatalf("marker column width = %d", cols[0].Width)
	}
	if cols[1].Title != "JOBID" || cols[3].Title != "STATE" {
		t.Fatalf("column order lost: %+v", cols)
	}
	// USER grows to fit its widest value.
	if cols[2].Width < len("somequitelongusername") {
		t.Fatalf("USER width = %d, want >= %d", cols[2].Width, len("somequitelongusername"))
	}
}

func TestColumnsForSnapshotNarrowWindow(t *testing.T) {
	snap := parseTable("JOBID USER STATE\n101 somequitelongusername RUNNING\n")
	cols := columnsForSnapshot(snap.Header, snap.Rows, 30)

	total := 0
	for _, c := range cols {
		if c.Width < markerColumnW {
			t.Fatalf("column %q shrank below minimum: %d", c.Title, c.Width)
		}
		total += c.Width
	}
	wide := columnsForSnapshot(snap.Header, snap.Rows, 200)
	wideTotal := 0
	for _, c := range wide {
		wideTotal += c.Width
	}
	if total >= wideTotal {
		t.Fatalf("narrow layout (%d) must be tighter than wide layout (%d)", total, wideTotal)
	}
}

func TestColumnsForSnapshotEmptyHeader(t *testing.T) {
	cols := columnsForSnapshot(nil, nil, 80)
	if len(cols) != 1 {
		t.Fatalf("empty snapshot must still have the marker column, got %d", len(cols))
	}
}

func TestDetailRows(t *testing.T) {
	header := []string{"JOBID", "NAME", "STDOUT"}
	rec := newRecord(header, []string{"101", ""}) // STDOUT absent, NAME empty

	rows := detailRows(rec, header)
	if len(rows) != 2 {
		t.Fatalf("absent columns must be skipped, got %d rows", len(rows))
	}
	if rows[1][0] != "NAME" || rows[1][1] != "(empty)" {
		t.Fatalf("empty value must render distinctly: %v", rows[1])
	}
}

func TestShortenText(t *testing.T) {
	if got := shortenText("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := shortenText("somethinglong", 8); got != "somet..." {
		t.Fatalf("got %q", got)
	}
	if got := shortenText("abc", 2); got != "ab" {
		t.Fatalf("got %q", got)
	}
}

func TestClampViewHeight(t *testing.T) {
	view := "a\nb\nc\nd"
	if got := clampViewHeight(view, 2); got != "a\nb" {
		t.Fatalf("got %q", got)
	}
	if got := clampViewHeight(view, 10); got != view {
		t.Fatalf("got %q", got)
	}
}

func TestClampViewWidth(t *testing.T) {
	got := clampViewWidth("abcdef\nxy", 3)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 3 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
}

func TestJoinWithGap(t *testing.T) {
	if got := joinWithGap([]string{"a", "", "b"}, 1); got != "a b" {
		t.Fatalf("got %q", got)
	}
	if got := joinWithGap(nil, 1); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestCollectJobStats(t *testing.T) {
	snap := parseTable(strings.Join([]string{
		"JOBID USER STATE",
		"1 a RUNNING",
		"2 a RUNNING",
		"3 b PENDING",
		"4 b COMPLETED",
		"5 c FAILED",
		"6 c MYSTERY",
		"",
	}, "\n"))
	m := Model{filtered: snap.Rows}

	stats := m.collectJobStats()
	if stats.Running != 2 || stats.Pending != 1 || stats.Completed != 1 || stats.Failed != 1 || stats.Other != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestStateBadge(t *testing.T) {
	if badge := renderStateBadge(""); badge != "" {
		t.Fatalf("empty state must render nothing, got %q", badge)
	}
	badge := renderStateBadge("CANCELLED by 4840")
	if !strings.Contains(badge, "CA") {
		t.Fatalf("badge must show the short code: %q", badge)
	}
}
