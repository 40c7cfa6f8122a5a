package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(context.Background(), filepath.Join(dir, ".pybind", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, dir
}

func TestKey(t *testing.T) {
	a := Key([]byte("def f(): ..."), "cfg")
	if a != Key([]byte("def f(): ..."), "cfg") {
		t.Error("Key must be deterministic")
	}
	if a == Key([]byte("def g(): ..."), "cfg") {
		t.Error("source changes must change the key")
	}
	if a == Key([]byte("def f(): ..."), "other") {
		t.Error("config changes must change the key")
	}
}

func TestLookupStore(t *testing.T) {
	ctx := context.Background()
	c, dir := openTemp(t)

	out := filepath.Join(dir, "geometry.pybind.go")
	content := []byte("package bindings\n")
	if err := os.WriteFile(out, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Lookup(ctx, "geometry", "fp1", out); err != nil || ok {
		t.Fatalf("empty cache: ok = %v, err = %v", ok, err)
	}

	entry := Entry{
		Module:      "geometry",
		Fingerprint: "fp1",
		OutputPath:  out,
		OutputHash:  HashOutput(content),
		Manifest:    []byte("type_name: Geometry\n"),
		PassID:      "pass-1",
	}
	if err := c.Store(ctx, entry); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := c.Lookup(ctx, "geometry", "fp1", out)
	if err != nil || !ok {
		t.Fatalf("Lookup: ok = %v, err = %v", ok, err)
	}
	if got.PassID != "pass-1" || string(got.Manifest) != "type_name: Geometry\n" {
		t.Errorf("entry = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}

	if _, ok, _ := c.Lookup(ctx, "geometry", "fp2", out); ok {
		t.Error("a different fingerprint must miss")
	}
	if _, ok, _ := c.Lookup(ctx, "geometry", "fp1", filepath.Join(dir, "other", "geometry.pybind.go")); ok {
		t.Error("a different output path must miss")
	}

	if err := os.WriteFile(out, []byte("package edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Lookup(ctx, "geometry", "fp1", out); ok {
		t.Error("a modified output file must miss")
	}

	if err := os.Remove(out); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Lookup(ctx, "geometry", "fp1", out); ok {
		t.Error("a missing output file must miss")
	}
}

func TestStoreReplacesAndClean(t *testing.T) {
	ctx := context.Background()
	c, _ := openTemp(t)

	for _, pass := range []string{"a", "b"} {
		if err := c.Store(ctx, Entry{Module: "m", Fingerprint: pass, OutputPath: "x", OutputHash: "h", PassID: pass}); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	if err := c.Store(ctx, Entry{Module: "n", Fingerprint: "f", OutputPath: "y", OutputHash: "h", PassID: "b"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if n, err := c.Len(ctx); err != nil || n != 2 {
		t.Fatalf("Len = %d, %v; want 2", n, err)
	}

	if err := c.Forget(ctx, "n"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if n, _ := c.Len(ctx); n != 1 {
		t.Errorf("Len after Forget = %d; want 1", n)
	}

	if err := c.Clean(ctx); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if n, err := c.Len(ctx); err != nil || n != 0 {
		t.Errorf("Len after Clean = %d, %v; want 0", n, err)
	}
}
