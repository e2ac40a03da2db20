package history

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCommitAndLog(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "data", "productos.csv")
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	commits, err := r.Log(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 0 {
		t.Fatalf("Log on empty repo = %d commits", len(commits))
	}

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("id;name\n")
	if ok, err := r.Commit(ctx, "", "create table"); err != nil || !ok {
		t.Fatalf("Commit = %v, %v", ok, err)
	}
	if ok, err := r.Commit(ctx, "", "no change"); err != nil || ok {
		t.Fatalf("Commit without change = %v, %v", ok, err)
	}
	// Untracked neighbours are never committed.
	if err := os.WriteFile(path+".lock", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := r.Commit(ctx, "", "lock only"); err != nil || ok {
		t.Fatalf("Commit with only untracked files = %v, %v", ok, err)
	}
	write("id;name\n1;Shirt\n")
	if ok, err := r.Commit(ctx, "alice", "POST /api/products"); err != nil || !ok {
		t.Fatalf("Commit = %v, %v", ok, err)
	}

	commits, err = r.Log(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 2 {
		t.Fatalf("Log = %d commits, want 2", len(commits))
	}
	if commits[0].Message != "POST /api/products" || commits[0].Author != "alice" {
		t.Errorf("newest = %+v", commits[0])
	}
	if commits[1].Message != "create table" || commits[1].Author != defaultName {
		t.Errorf("oldest = %+v", commits[1])
	}
	if len(commits[0].Hash) != 40 {
		t.Errorf("hash = %q", commits[0].Hash)
	}

	limited, err := r.Log(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("Log(1) = %d commits", len(limited))
	}
}

func TestOpenExisting(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "p.csv")
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Commit(ctx, "", "first"); err != nil {
		t.Fatal(err)
	}
	r2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	commits, err := r2.Log(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 1 {
		t.Errorf("Log = %d commits, want 1", len(commits))
	}
}
