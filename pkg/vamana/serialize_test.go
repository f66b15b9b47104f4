package vamana

import (
	"bytes"
	"testing"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(DefaultConfig(4, Euclidean))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{1, 1, 0, 0},
	}
	for _, v := range vectors {
		if _, err := idx.Insert(v); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	return idx
}

func TestGraphSerializeRoundTrip(t *testing.T) {
	idx := buildTestIndex(t)

	var buf bytes.Buffer
	if err := WriteGraph(&buf, idx); err != nil {
		t.Fatalf("WriteGraph: %v", err)
	}

	restored, err := ReadGraph(&buf)
	if err != nil {
		t.Fatalf("ReadGraph: %v", err)
	}

	if restored.Size() != idx.Size() {
		t.Fatalf("restored Size() = %d, want %d", restored.Size(), idx.Size())
	}
	if restored.Dimension() != idx.Dimension() {
		t.Fatalf("restored Dimension() = %d, want %d", restored.Dimension(), idx.Dimension())
	}

	query := []float32{0, 1, 0, 0}
	want, err := idx.Search(query, 3, 10)
	if err != nil {
		t.Fatalf("Search on original: %v", err)
	}
	got, err := restored.Search(query, 3, 10)
	if err != nil {
		t.Fatalf("Search on restored: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("restored search returned %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Ordinal != want[i].Ordinal {
			t.Fatalf("result %d ordinal mismatch: got %d want %d", i, got[i].Ordinal, want[i].Ordinal)
		}
	}
}

func TestGraphSerializeRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 0, 1})
	if _, err := ReadGraph(buf); err == nil {
		t.Fatal("expected error for bad magic number")
	}
}

func TestGraphSerializeRejectsTruncatedStream(t *testing.T) {
	idx := buildTestIndex(t)

	var buf bytes.Buffer
	if err := WriteGraph(&buf, idx); err != nil {
		t.Fatalf("WriteGraph: %v", err)
	}

	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()/2])
	if _, err := ReadGraph(truncated); err == nil {
		t.Fatal("expected error reading a truncated stream")
	}
}

func TestGraphSerializeEmptyIndex(t *testing.T) {
	idx, err := NewIndex(DefaultConfig(3, Euclidean))
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteGraph(&buf, idx); err != nil {
		t.Fatalf("WriteGraph on empty index: %v", err)
	}

	restored, err := ReadGraph(&buf)
	if err != nil {
		t.Fatalf("ReadGraph on empty index: %v", err)
	}
	if restored.Size() != 0 {
		t.Fatalf("restored Size() = %d, want 0", restored.Size())
	}
}
