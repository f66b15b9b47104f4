package vamana

import "testing"

func TestBitsetSetGet(t *testing.T) {
	b := NewBitset(16)
	if b.Get(3) {
		t.Fatal("expected bit 3 unset initially")
	}
	b.Set(3)
	if !b.Get(3) {
		t.Fatal("expected bit 3 set after Set")
	}
	if b.Get(4) {
		t.Fatal("expected bit 4 to remain unset")
	}
}

func TestBitsetGrowsBeyondInitialCapacity(t *testing.T) {
	b := NewBitset(1)
	b.Set(500)
	if !b.Get(500) {
		t.Fatal("expected bit 500 to be set after growth")
	}
	if b.Get(499) {
		t.Fatal("expected bit 499 to remain unset")
	}
}

func TestBitsetClear(t *testing.T) {
	b := NewBitset(64)
	b.Set(10)
	b.Set(20)
	b.Clear()
	if b.Get(10) || b.Get(20) {
		t.Fatal("expected all bits unset after Clear")
	}
}

func TestBitsetCardinality(t *testing.T) {
	b := NewBitset(128)
	ords := []uint32{0, 1, 63, 64, 127}
	for _, o := range ords {
		b.Set(o)
	}
	if got := b.Cardinality(); got != len(ords) {
		t.Fatalf("Cardinality() = %d, want %d", got, len(ords))
	}
}

func TestBitsetNextSetBit(t *testing.T) {
	b := NewBitset(256)
	b.Set(5)
	b.Set(130)

	got, ok := b.NextSetBit(0)
	if !ok || got != 5 {
		t.Fatalf("NextSetBit(0) = (%d, %v), want (5, true)", got, ok)
	}
	got, ok = b.NextSetBit(6)
	if !ok || got != 130 {
		t.Fatalf("NextSetBit(6) = (%d, %v), want (130, true)", got, ok)
	}
	if _, ok := b.NextSetBit(131); ok {
		t.Fatal("expected no set bit beyond 130")
	}
}

func TestBitsetPoolReusesAndClears(t *testing.T) {
	pool := newBitsetPool()
	b := pool.get()
	b.Set(7)
	pool.put(b)

	b2 := pool.get()
	if b2.Get(7) {
		t.Fatal("expected bitset returned from pool to be cleared")
	}
}
