package storage

import (
	"bytes"
	"testing"
)

func TestMemDB(t *testing.T) {
	db := NewMemDB()

	if value, err := db.Get([]byte("missing")); err != nil || value != nil {
		t.Fatalf("missing key: %v, %v", value, err)
	}
	if err := db.Put([]byte("k"), []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := db.Get([]byte("k"))
	if err != nil || !bytes.Equal(value, []byte("v1")) {
		t.Fatalf("get: %q, %v", value, err)
	}
	if ok, _ := db.Has([]byte("k")); !ok {
		t.Fatalf("has reported false")
	}

	// The stored value must be isolated from caller mutation.
	value[0] = 'X'
	if again, _ := db.Get([]byte("k")); !bytes.Equal(again, []byte("v1")) {
		t.Fatalf("stored value aliased: %q", again)
	}
	input := []byte("v2")
	if err := db.Put([]byte("k"), input); err != nil {
		t.Fatalf("put: %v", err)
	}
	input[0] = 'X'
	if again, _ := db.Get([]byte("k")); !bytes.Equal(again, []byte("v2")) {
		t.Fatalf("input aliased into store: %q", again)
	}

	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := db.Has([]byte("k")); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestLevelDB(t *testing.T) {
	dir := t.TempDir()
	db, err := NewLevelDB(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if value, err := db.Get([]byte("missing")); err != nil || value != nil {
		t.Fatalf("missing key: %v, %v", value, err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := db.Get([]byte("k"))
	if err != nil || !bytes.Equal(value, []byte("v")) {
		t.Fatalf("get: %q, %v", value, err)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := db.Has([]byte("k")); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestOverlayBuffersUntilCommit(t *testing.T) {
	parent := NewMemDB()
	if err := parent.Put([]byte("base"), []byte("old")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	overlay := NewOverlay(parent)
	if err := overlay.Put([]byte("base"), []byte("new")); err != nil {
		t.Fatalf("overlay put: %v", err)
	}
	if err := overlay.Put([]byte("fresh"), []byte("x")); err != nil {
		t.Fatalf("overlay put: %v", err)
	}

	// Overlay reads see the buffered writes; the parent does not.
	if value, _ := overlay.Get([]byte("base")); !bytes.Equal(value, []byte("new")) {
		t.Fatalf("overlay read: %q", value)
	}
	if value, _ := parent.Get([]byte("base")); !bytes.Equal(value, []byte("old")) {
		t.Fatalf("parent changed before commit: %q", value)
	}
	if value, _ := parent.Get([]byte("fresh")); value != nil {
		t.Fatalf("parent gained key before commit")
	}

	if err := overlay.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if value, _ := parent.Get([]byte("base")); !bytes.Equal(value, []byte("new")) {
		t.Fatalf("committed value: %q", value)
	}
	if value, _ := parent.Get([]byte("fresh")); !bytes.Equal(value, []byte("x")) {
		t.Fatalf("committed fresh key: %q", value)
	}
}

func TestOverlayDeletes(t *testing.T) {
	parent := NewMemDB()
	if err := parent.Put([]byte("gone"), []byte("v")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	overlay := NewOverlay(parent)
	if err := overlay.Delete([]byte("gone")); err != nil {
		t.Fatalf("overlay delete: %v", err)
	}
	if value, _ := overlay.Get([]byte("gone")); value != nil {
		t.Fatalf("deleted key visible in overlay")
	}
	if ok, _ := overlay.Has([]byte("gone")); ok {
		t.Fatalf("deleted key has=true in overlay")
	}
	if ok, _ := parent.Has([]byte("gone")); !ok {
		t.Fatalf("parent lost key before commit")
	}

	// Re-putting after delete keeps the final value.
	if err := overlay.Put([]byte("gone"), []byte("back")); err != nil {
		t.Fatalf("reput: %v", err)
	}
	if err := overlay.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if value, _ := parent.Get([]byte("gone")); !bytes.Equal(value, []byte("back")) {
		t.Fatalf("final value: %q", value)
	}

	overlay = NewOverlay(parent)
	if err := overlay.Delete([]byte("gone")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := overlay.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if ok, _ := parent.Has([]byte("gone")); ok {
		t.Fatalf("delete did not reach parent")
	}
}

func TestOverlayDiscard(t *testing.T) {
	parent := NewMemDB()
	overlay := NewOverlay(parent)
	if err := overlay.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := overlay.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if value, _ := parent.Get([]byte("k")); value != nil {
		t.Fatalf("discarded overlay leaked")
	}
}

func TestOverlayNesting(t *testing.T) {
	parent := NewMemDB()
	outer := NewOverlay(parent)
	inner := NewOverlay(outer)

	if err := inner.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("inner put: %v", err)
	}
	if err := inner.Commit(); err != nil {
		t.Fatalf("inner commit: %v", err)
	}
	// The inner commit lands in the outer overlay, not the root.
	if value, _ := outer.Get([]byte("k")); !bytes.Equal(value, []byte("v")) {
		t.Fatalf("outer missing inner write")
	}
	if value, _ := parent.Get([]byte("k")); value != nil {
		t.Fatalf("inner commit skipped the outer overlay")
	}
	if err := outer.Commit(); err != nil {
		t.Fatalf("outer commit: %v", err)
	}
	if value, _ := parent.Get([]byte("k")); !bytes.Equal(value, []byte("v")) {
		t.Fatalf("outer commit lost the write")
	}
}
