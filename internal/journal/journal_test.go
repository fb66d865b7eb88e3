package journal

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"mvukit/internal/report"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("")
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_InsertAndRecent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	events := []report.Event{
		{Kind: report.ComponentStarted, ComponentID: "a", Component: "counter"},
		{Kind: report.CommandFailed, ComponentID: "a", Component: "counter", Subject: "fetch", Err: errors.New("boom")},
		{Kind: report.ComponentStarted, ComponentID: "b", Component: "monitor"},
	}
	if err := store.Insert(ctx, events); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	all, err := store.Recent(ctx, Query{})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(all))
	}
	if all[0].ComponentID != "b" {
		t.Errorf("Expected newest entry first, got %+v", all[0])
	}

	failed, err := store.Recent(ctx, Query{Kind: report.CommandFailed})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(failed))
	}
	if failed[0].Error != "boom" || failed[0].Subject != "fetch" || failed[0].Severity != "WARN" {
		t.Errorf("Unexpected failure entry %+v", failed[0])
	}

	byComponent, err := store.Recent(ctx, Query{Component: "counter", Limit: 1})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(byComponent) != 1 || byComponent[0].Kind != string(report.CommandFailed) {
		t.Errorf("Expected newest counter event, got %+v", byComponent)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts[report.ComponentStarted] != 2 || counts[report.CommandFailed] != 1 {
		t.Errorf("Unexpected counts %v", counts)
	}
}

func TestStore_InsertEmptyIsNoop(t *testing.T) {
	store := openTestStore(t)
	if err := store.Insert(context.Background(), nil); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}

func TestNewWriter_Validates(t *testing.T) {
	if _, err := NewWriter(nil, 10); err == nil {
		t.Error("Expected error for nil store")
	}
	if _, err := NewWriter(openTestStore(t), 0); err == nil {
		t.Error("Expected error for zero buffer")
	}
}

func TestWriter_PersistsReportedEvents(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	w, err := NewWriter(store, 32, WithFlushInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("Expected second Start to fail")
	}

	w.Report(report.Event{Kind: report.ComponentStarted, Component: "counter"})
	w.Report(report.Event{Kind: report.UpdateApplied, Component: "counter"})
	w.Report(report.Event{Kind: report.ComponentTerminated, Component: "counter"})
	w.Stop()

	entries, err := store.Recent(ctx, Query{Component: "counter"})
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries (debug event skipped), got %d", len(entries))
	}
	if entries[0].Kind != string(report.ComponentTerminated) {
		t.Errorf("Expected newest to be terminated, got %s", entries[0].Kind)
	}
}

func TestWriter_DropsWhenFull(t *testing.T) {
	store := openTestStore(t)
	w, err := NewWriter(store, 1, WithMinSeverity(slog.LevelDebug))
	if err != nil {
		t.Fatal(err)
	}

	w.Report(report.Event{Kind: report.UpdateApplied})
	w.Report(report.Event{Kind: report.UpdateApplied})

	if w.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", w.Dropped())
	}
	w.Stop()
	entries, _ := store.Recent(context.Background(), Query{})
	if len(entries) != 1 {
		t.Errorf("Expected buffered event to be flushed on Stop, got %d", len(entries))
	}
}
