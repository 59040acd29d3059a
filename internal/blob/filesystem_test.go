package blob

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore: %v", err)
	}
	return store
}

func TestFilesystemPutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	data := []byte("lecture slides")
	if err := store.Put(ctx, "pdfs/SC2107/lecture1.pdf", data); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "pdfs/SC2107/lecture1.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestFilesystemOverwrite(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get = %q, want v2", got)
	}
}

func TestFilesystemGetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestFilesystemDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestFilesystemListByPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, key := range []string{
		"pdfs/SC2107/lecture2.pdf",
		"pdfs/SC2107/lecture1.pdf",
		"pdfs/EE2001/intro.pdf",
		"vectorstore/SC2107/index.bin",
	} {
		if err := store.Put(ctx, key, []byte("x")); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "pdfs/SC2107/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"pdfs/SC2107/lecture1.pdf", "pdfs/SC2107/lecture2.pdf"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("List = %v, want %v", keys, want)
	}
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, key := range []string{"../escape", "/abs/path", "."} {
		if err := store.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("Put(%q) accepted an unsafe key", key)
		}
	}
}
