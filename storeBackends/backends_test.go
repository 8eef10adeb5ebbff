package storebackends

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fileconv/config"
	"fileconv/storage"

	pebble "github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// exerciseBackend runs the behaviour every Backend must share
func exerciseBackend(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := context.Background()

	keys := []string{
		"uploads/b/photo.png",
		"uploads/a/notes.md",
		"converted/a/converted.pdf",
	}
	for _, k := range keys {
		if err := b.Put(ctx, k, []byte("content of "+k), map[string]string{storage.MetaMimeType: "text/plain"}); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}

	objs, err := b.List(ctx, "uploads/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("Expected 2 uploads, got %d: %v", len(objs), objs)
	}
	if objs[0].Key != "uploads/a/notes.md" || objs[1].Key != "uploads/b/photo.png" {
		t.Errorf("Expected lexicographic order, got %s, %s", objs[0].Key, objs[1].Key)
	}
	if objs[0].Size != int64(len("content of uploads/a/notes.md")) {
		t.Errorf("Unexpected size %d", objs[0].Size)
	}
	if objs[0].LastModified.IsZero() {
		t.Error("LastModified should be set")
	}

	objs, err = b.List(ctx, "uploads/a/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(objs) != 1 {
		t.Errorf("Expected 1 object under uploads/a/, got %d", len(objs))
	}

	objs, err = b.List(ctx, "uploads/missing/")
	if err != nil {
		t.Fatalf("List of empty prefix failed: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("Expected no objects, got %v", objs)
	}

	meta, err := b.Head(ctx, "converted/a/converted.pdf")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if meta[storage.MetaMimeType] != "text/plain" {
		t.Errorf("Metadata not preserved: %v", meta)
	}

	data, err := b.Get(ctx, "uploads/b/photo.png")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "content of uploads/b/photo.png" {
		t.Errorf("Unexpected content %q", data)
	}

	if err := b.Put(ctx, "uploads/b/photo.png", []byte("v2"), nil); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	data, _ = b.Get(ctx, "uploads/b/photo.png")
	if string(data) != "v2" {
		t.Errorf("Expected overwritten content, got %q", data)
	}

	if _, err := b.Get(ctx, "uploads/none/x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get of missing key: expected ErrNotFound, got %v", err)
	}
	if _, err := b.Head(ctx, "uploads/none/x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Head of missing key: expected ErrNotFound, got %v", err)
	}

	if err := b.Delete(ctx, "uploads/a/notes.md"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := b.Delete(ctx, "uploads/a/notes.md"); err != nil {
		t.Errorf("Second delete should succeed, got %v", err)
	}
	objs, _ = b.List(ctx, "uploads/")
	if len(objs) != 1 {
		t.Errorf("Expected 1 upload after delete, got %d", len(objs))
	}
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestMemoryBackendCopiesData(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	if err := m.Put(ctx, "k", buf, nil); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'x'
	data, _ := m.Get(ctx, "k")
	if string(data) != "abc" {
		t.Errorf("Stored data must not alias the caller's slice, got %q", data)
	}
}

func TestMemoryBackendClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return at })
	if err := m.Put(context.Background(), "uploads/x/y", []byte("z"), nil); err != nil {
		t.Fatal(err)
	}
	objs, _ := m.List(context.Background(), "uploads/")
	if len(objs) != 1 || !objs[0].LastModified.Equal(at) {
		t.Errorf("Expected modification time %v, got %v", at, objs)
	}
}

func TestFilesystemBackend(t *testing.T) {
	b, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystem failed: %v", err)
	}
	exerciseBackend(t, b)
}

func TestFilesystemBackendHidesSidecars(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFilesystem(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := b.Put(ctx, "uploads/a/x.png", []byte("x"), map[string]string{"k": "v"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".meta", "uploads", "a", "x.png.json")); err != nil {
		t.Errorf("Expected sidecar file: %v", err)
	}
	objs, err := b.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0].Key != "uploads/a/x.png" {
		t.Errorf("Sidecars must not be listed, got %v", objs)
	}
}

func TestFilesystemSweepReachesStrayKeys(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFilesystem(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, k := range []string{"tmp/stale.bin", "uploads/a/x.png"} {
		if err := b.Put(ctx, k, []byte("x"), map[string]string{"k": "v"}); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "tmp", "stale.bin"), old, old); err != nil {
		t.Fatal(err)
	}

	swept, err := storage.New(b).SweepExpired(ctx, time.Hour)
	if err != nil {
		t.Fatalf("SweepExpired failed: %v", err)
	}
	if len(swept) != 1 || swept[0].Key != "tmp/stale.bin" {
		t.Fatalf("Expected only tmp/stale.bin swept, got %v", swept)
	}
	if _, err := os.Stat(filepath.Join(dir, ".meta", "tmp", "stale.bin.json")); !os.IsNotExist(err) {
		t.Errorf("Sidecar of a swept object should be gone, stat err %v", err)
	}
	if _, err := b.Head(ctx, "uploads/a/x.png"); err != nil {
		t.Errorf("Fresh object should survive: %v", err)
	}
}

func TestFilesystemBackendRejectsEscape(t *testing.T) {
	b, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Put(context.Background(), "../outside.txt", []byte("x"), nil); err == nil {
		t.Error("Expected key escaping the root to be rejected")
	}
}

func TestPebbleBackend(t *testing.T) {
	p, err := OpenPebble("objects.db", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		t.Fatalf("OpenPebble failed: %v", err)
	}
	defer p.Close()

	exerciseBackend(t, p)

	if err := p.CheckHealth(context.Background()); err != nil {
		t.Errorf("CheckHealth failed: %v", err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	cases := []struct {
		in, want []byte
	}{
		{[]byte("m/a"), []byte("m/b")},
		{[]byte{'a', 0xff}, []byte{'b'}},
		{[]byte{0xff, 0xff}, nil},
	}
	for _, c := range cases {
		got := prefixUpperBound(c.in)
		if string(got) != string(c.want) {
			t.Errorf("prefixUpperBound(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestListDir(t *testing.T) {
	cases := map[string]string{
		"uploads/":     "uploads",
		"uploads/abc/": "uploads/abc",
		"uploads/ab":   "uploads",
		"":             "",
		"noslash":      "",
	}
	for in, want := range cases {
		if got := listDir(in); got != want {
			t.Errorf("listDir(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, closeFn, err := Open(context.Background(), configWithBackend("tape"))
	if err == nil {
		t.Error("Expected error for unknown backend")
	}
	if closeFn == nil {
		t.Error("Close function must never be nil")
	}
}

func TestOpenMemoryBackend(t *testing.T) {
	b, closeFn, err := Open(context.Background(), configWithBackend("memory"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer closeFn()
	if _, ok := b.(*Memory); !ok {
		t.Errorf("Expected *Memory, got %T", b)
	}
}

func configWithBackend(name string) config.StoreConfig {
	return config.StoreConfig{Backend: name}
}
