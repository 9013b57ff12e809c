package calibration

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenHistory error: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestHistoryAppendAndRecent(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	ctx := context.Background()

	for _, gen := range []string{"2025-10-01T03:15:00Z", "2025-10-02T03:15:00Z"} {
		a := &Artifact{
			GeneratedAt:  gen,
			Global:       json.RawMessage(`{"win_rate":0.42}`),
			GlobalParams: json.RawMessage(`{"pot":0.58}`),
		}
		if err := h.Append(ctx, a); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	got, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].GeneratedAt != "2025-10-02T03:15:00Z" {
		t.Fatalf("first snapshot = %s", got[0].GeneratedAt)
	}
	if got[0].Global != `{"win_rate":0.42}` {
		t.Fatalf("Global = %s", got[0].Global)
	}
}

func TestHistoryDeduplicatesByGeneratedAt(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	ctx := context.Background()

	a := &Artifact{GeneratedAt: "2025-10-01T03:15:00Z", Global: json.RawMessage(`{}`), GlobalParams: json.RawMessage(`{}`)}
	if err := h.Append(ctx, a); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := h.Append(ctx, a); err != nil {
		t.Fatalf("re-Append error: %v", err)
	}

	got, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("snapshots = %d, want 1 (same run observed twice)", len(got))
	}
}

func TestHistoryRecentLimit(t *testing.T) {
	t.Parallel()
	h := openTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		a := &Artifact{
			GeneratedAt:  time5(i),
			Global:       json.RawMessage(`{}`),
			GlobalParams: json.RawMessage(`{}`),
		}
		if err := h.Append(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	got, err := h.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(got))
	}
}

func time5(i int) string {
	return "2025-10-0" + string(rune('1'+i)) + "T03:15:00Z"
}
