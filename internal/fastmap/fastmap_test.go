package fastmap

import (
	"math/rand"
	"testing"
)

type handle struct {
	id int
}

func TestMap(t *testing.T) {
	m := &Map[*handle]{}

	if _, ok := m.Get(1); ok {
		t.Error("Expected miss on empty map")
	}

	h1 := &handle{100}
	h2 := &handle{200}
	m.Set(1, h1)
	m.Set(2, h2)

	if v, ok := m.Get(1); !ok || v != h1 {
		t.Error("Get(1) failed")
	}
	if v, ok := m.Get(2); !ok || v != h2 {
		t.Error("Get(2) failed")
	}
	if _, ok := m.Get(3); ok {
		t.Error("Get(3) should miss")
	}

	// Update
	h3 := &handle{300}
	m.Set(1, h3)
	if v, _ := m.Get(1); v != h3 {
		t.Error("Update failed")
	}
	if m.Len() != 2 {
		t.Errorf("Expected len=2, got %d", m.Len())
	}

	m.Clear()
	if m.Len() != 0 {
		t.Error("Clear failed")
	}
	if _, ok := m.Get(1); ok {
		t.Error("Get after clear should miss")
	}
}

func TestMapGrowth(t *testing.T) {
	m := &Map[int]{}

	n := 10000
	for i := 0; i < n; i++ {
		m.Set(uint32(i), i*10)
	}
	if m.Len() != n {
		t.Errorf("Expected len=%d, got %d", n, m.Len())
	}
	for i := 0; i < n; i++ {
		if v, ok := m.Get(uint32(i)); !ok || v != i*10 {
			t.Errorf("Get(%d) = %d, %v", i, v, ok)
		}
	}
}

func TestMapZeroKey(t *testing.T) {
	m := &Map[string]{}
	m.Set(0, "zero")

	if v, ok := m.Get(0); !ok || v != "zero" {
		t.Error("Zero key failed")
	}
	if m.Len() != 1 {
		t.Error("Len should be 1")
	}
}

func TestMapDelete(t *testing.T) {
	m := &Map[int]{}
	if m.Delete(7) {
		t.Error("Delete on empty map should report false")
	}

	// Dense keys build long probe chains after the hash mask wraps.
	for i := 0; i < 1000; i++ {
		m.Set(uint32(i), i)
	}
	for i := 0; i < 1000; i += 2 {
		if !m.Delete(uint32(i)) {
			t.Fatalf("Delete(%d) reported missing", i)
		}
	}
	if m.Len() != 500 {
		t.Errorf("Expected len=500, got %d", m.Len())
	}
	for i := 0; i < 1000; i++ {
		v, ok := m.Get(uint32(i))
		if i%2 == 0 && ok {
			t.Errorf("Get(%d) should miss after delete", i)
		}
		if i%2 == 1 && (!ok || v != i) {
			t.Errorf("Get(%d) = %d, %v after deleting neighbours", i, v, ok)
		}
	}
	if m.Delete(0) {
		t.Error("second Delete should report false")
	}
}

func TestMapRandomAgainstBuiltin(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := &Map[uint32]{}
	ref := make(map[uint32]uint32)

	for i := 0; i < 50000; i++ {
		k := rng.Uint32() % 4096
		switch rng.Intn(3) {
		case 0, 1:
			m.Set(k, uint32(i))
			ref[k] = uint32(i)
		case 2:
			_, want := ref[k]
			if got := m.Delete(k); got != want {
				t.Fatalf("Delete(%d) = %v, want %v", k, got, want)
			}
			delete(ref, k)
		}
	}

	if m.Len() != len(ref) {
		t.Fatalf("len %d, want %d", m.Len(), len(ref))
	}
	seen := 0
	m.ForEach(func(k uint32, v uint32) {
		seen++
		if ref[k] != v {
			t.Errorf("key %d = %d, want %d", k, v, ref[k])
		}
	})
	if seen != len(ref) {
		t.Errorf("ForEach visited %d, want %d", seen, len(ref))
	}
}

func BenchmarkFastMapSeqRead(b *testing.B) {
	m := &Map[int]{}
	for i := 0; i < 100000; i++ {
		m.Set(uint32(i), i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Get(uint32(i % 100000))
	}
}

func BenchmarkGoMapSeqRead(b *testing.B) {
	m := make(map[uint32]int)
	for i := 0; i < 100000; i++ {
		m[uint32(i)] = i
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[uint32(i%100000)]
	}
}
