package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", FileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{CommandID: "git:status", StartedAt: base, Duration: 120 * time.Millisecond, Success: true},
		{CommandID: "sys:disk", StartedAt: base.Add(time.Minute), Duration: time.Second, ExitCode: 2, Error: "exit status 2"},
		{CommandID: "git:status", StartedAt: base.Add(2 * time.Minute), Success: true},
	}
	for _, e := range entries {
		if err := j.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := j.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].CommandID != "git:status" || !got[0].StartedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("newest entry wrong: %+v", got[0])
	}
	failed := got[1]
	if failed.Success || failed.ExitCode != 2 || failed.Error != "exit status 2" || failed.Duration != time.Second {
		t.Errorf("failed entry not preserved: %+v", failed)
	}
}

func TestRecord_DefaultsStartTime(t *testing.T) {
	j := openTemp(t)
	before := time.Now().Add(-time.Second)
	if err := j.Record(Entry{CommandID: "x", Success: true}); err != nil {
		t.Fatal(err)
	}
	got, err := j.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].StartedAt.Before(before) {
		t.Errorf("expected a current timestamp, got %+v", got)
	}
}

func TestCountByCommand(t *testing.T) {
	j := openTemp(t)
	for i := 0; i < 3; i++ {
		_ = j.Record(Entry{CommandID: "b", Success: i != 1})
	}
	_ = j.Record(Entry{CommandID: "a", Success: true})
	_ = j.Record(Entry{CommandID: "c", Success: true})

	got, err := j.CountByCommand()
	if err != nil {
		t.Fatalf("CountByCommand: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if got[0].CommandID != "b" || got[0].Launches != 3 || got[0].Failures != 1 {
		t.Errorf("unexpected first row %+v", got[0])
	}
	if got[1].CommandID != "a" || got[2].CommandID != "c" {
		t.Errorf("ties should sort by id: %+v", got)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	j, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Record(Entry{CommandID: "x", Success: true}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	got, err := j.Recent(10)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d (%v)", len(got), err)
	}
}

func TestCloseNil(t *testing.T) {
	var j *Journal
	if err := j.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
