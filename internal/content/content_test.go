package content

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gastownhall/presenter-remote/internal/remote"
)

func TestDocumentSnapshotComputesTops(t *testing.T) {
	doc, err := Decode(`
title = "Amazing Grace"
line_height = 24.5
lines = ["Amazing", "Grace", "how sweet"]
`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if doc.Title != "Amazing Grace" {
		t.Fatalf("title = %q", doc.Title)
	}

	snap, err := doc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !slices.Equal(snap.Lines(), []string{"Amazing", "Grace", "how sweet"}) {
		t.Fatalf("lines = %q", snap.Lines())
	}
	if !slices.Equal(snap.Tops(), []float32{0, 24.5, 49}) {
		t.Fatalf("tops = %v, want [0 24.5 49]", snap.Tops())
	}
}

func TestDocumentSnapshotDefaults(t *testing.T) {
	cases := []struct {
		name     string
		doc      Document
		wantTops []float32
		wantErr  error
	}{
		{name: "empty", doc: Document{}, wantTops: nil},
		{name: "default_height", doc: Document{Lines: []string{"a", "b"}}, wantTops: []float32{0, DefaultLineHeight}},
		{name: "explicit_tops", doc: Document{Lines: []string{"a", "b"}, Tops: []float32{5, 7}, LineHeight: 100}, wantTops: []float32{5, 7}},
		{name: "mismatch", doc: Document{Lines: []string{"a", "b"}, Tops: []float32{5}}, wantErr: remote.ErrLengthMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := tc.doc.Snapshot()
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Snapshot() error = %v", err)
			}
			if !slices.Equal(snap.Tops(), tc.wantTops) {
				t.Fatalf("tops = %v, want %v", snap.Tops(), tc.wantTops)
			}
		})
	}
}

func TestSnapshotRejectsNonFiniteTops(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	cases := []struct {
		name     string
		doc      Document
		wantLine string
	}{
		{name: "nan_top", doc: Document{Lines: []string{"a", "b"}, Tops: []float32{0, nan}}, wantLine: "line 1"},
		{name: "inf_top", doc: Document{Lines: []string{"a"}, Tops: []float32{-inf}}, wantLine: "line 0"},
		{name: "inf_line_height", doc: Document{Lines: []string{"a", "b"}, LineHeight: inf}, wantLine: "line 0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.doc.Snapshot()
			if err == nil || !strings.Contains(err.Error(), tc.wantLine) {
				t.Fatalf("Snapshot() error = %v, want error naming %s", err, tc.wantLine)
			}
		})
	}
}

func TestLoadRejectsNaNTop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.toml")
	if err := os.WriteFile(path, []byte("lines = [\"a\"]\ntops = [nan]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "not a finite number") {
		t.Fatalf("Load() error = %v, want non-finite top error", err)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(`lines = ["a"]
colour = "red"
`)
	if err == nil || !strings.Contains(err.Error(), "colour") {
		t.Fatalf("error = %v, want unknown key colour", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.toml")
	if err := os.WriteFile(path, []byte(`lines = ["Amazing", "Grace"]
tops = [0.0, 24.5]
`), 0644); err != nil {
		t.Fatal(err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if line, top := snap.Line(1); line != "Grace" || top != 24.5 {
		t.Fatalf("line 1 = (%q, %v), want (Grace, 24.5)", line, top)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func recvSnapshot(t *testing.T, w *Watcher) remote.ContentSnapshot {
	t.Helper()
	select {
	case snap, ok := <-w.Snapshots():
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for snapshot")
	}
	return remote.ContentSnapshot{}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.toml")
	if err := os.WriteFile(path, []byte(`lines = ["first"]`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if got := recvSnapshot(t, w).Lines(); !slices.Equal(got, []string{"first"}) {
		t.Fatalf("initial lines = %q, want [first]", got)
	}

	if err := os.WriteFile(path, []byte(`lines = ["second", "verse"]`), 0644); err != nil {
		t.Fatal(err)
	}

	if got := recvSnapshot(t, w).Lines(); !slices.Equal(got, []string{"second", "verse"}) {
		t.Fatalf("reloaded lines = %q, want [second verse]", got)
	}
}

func TestWatcherSkipsBrokenDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.toml")
	if err := os.WriteFile(path, []byte(`lines = ["ok"]`), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	recvSnapshot(t, w)

	if err := os.WriteFile(path, []byte(`lines = [`), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case snap := <-w.Snapshots():
		t.Fatalf("unexpected snapshot %q from broken document", snap.Lines())
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte(`lines = ["fixed", "now"]`), 0644); err != nil {
		t.Fatal(err)
	}
	if got := recvSnapshot(t, w).Lines(); !slices.Equal(got, []string{"fixed", "now"}) {
		t.Fatalf("lines = %q, want [fixed now]", got)
	}
}

func TestWatcherStopClosesChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	w, err := NewWatcher(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	w.Stop()

	select {
	case _, ok := <-w.Snapshots():
		if ok {
			t.Fatal("expected no snapshot for missing document")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}
