package vectorindex

import (
	"testing"

	"eduvisor-backend/internal/apperr"
)

func TestFlatIndexRejectsBadDimension(t *testing.T) {
	if _, err := NewFlatIndex(0); err == nil {
		t.Fatal("expected error for zero dimension")
	}
	if _, err := NewFlatIndex(-1); err == nil {
		t.Fatal("expected error for negative dimension")
	}
}

func TestFlatIndexQueryDimensionMismatch(t *testing.T) {
	f, _ := NewFlatIndex(3)
	if err := f.Add([][]float32{{1, 2, 3}}); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := f.Search([]float32{1, 2}, 1)
	if err == nil {
		t.Fatal("expected error for query dimension mismatch")
	}
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := UnmarshalFlatIndex([]byte("not an index"))
	if err == nil {
		t.Fatal("expected error for garbage input")
	}
	if !apperr.Is(err, apperr.KindPersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
}

func TestUnmarshalRejectsTruncated(t *testing.T) {
	f, _ := NewFlatIndex(2)
	if err := f.Add([][]float32{{1, 2}, {3, 4}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	raw, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = UnmarshalFlatIndex(raw[:len(raw)-4])
	if err == nil {
		t.Fatal("expected error for truncated data")
	}
	if !apperr.Is(err, apperr.KindPersistence) {
		t.Errorf("expected persistence error, got %v", err)
	}
}

func TestFlatIndexMarshalRoundTrip(t *testing.T) {
	f, _ := NewFlatIndex(2)
	if err := f.Add([][]float32{{1, 2}, {3, 4}, {5, 6}}); err != nil {
		t.Fatalf("add: %v", err)
	}

	raw, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored, err := UnmarshalFlatIndex(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if restored.Dimension() != 2 || restored.Ntotal() != 3 {
		t.Fatalf("restored index shape %dx%d, want 2x3", restored.Dimension(), restored.Ntotal())
	}

	slots, err := restored.Search([]float32{3, 4}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if slots[0].Position != 1 || slots[0].Distance != 0 {
		t.Errorf("expected exact match at slot 1, got slot %d distance %f", slots[0].Position, slots[0].Distance)
	}
}
