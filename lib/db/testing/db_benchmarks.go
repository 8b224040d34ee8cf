package testing

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/tkv-io/tkv/lib/db"
)

// RunEngineBenchmarks runs all benchmarks against an engine implementation.
func RunEngineBenchmarks(b *testing.B, name string, factory db.EngineFactory) {

	b.Run("Store", func(b *testing.B) {
		benchmarkStore(b, factory)
	})

	b.Run("StoreExisting", func(b *testing.B) {
		benchmarkStoreExisting(b, factory)
	})

	b.Run("StoreLargeValue", func(b *testing.B) {
		benchmarkStoreLargeValue(b, factory)
	})

	b.Run("StoreTxBatch", func(b *testing.B) {
		benchmarkStoreTxBatch(b, factory)
	})

	b.Run("Seek", func(b *testing.B) {
		benchmarkSeek(b, factory)
	})

	b.Run("Seek(miss)", func(b *testing.B) {
		benchmarkSeekMiss(b, factory)
	})

	b.Run("Iterate", func(b *testing.B) {
		benchmarkIterate(b, factory)
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkStore(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	value := []byte("benchmark-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		if err := eng.Store(key, value); err != nil {
			b.Fatalf("Store failed: %v", err)
		}
	}
}

func benchmarkStoreExisting(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	key := []byte("existing-key")
	value := []byte("benchmark-value")
	if err := eng.Store(key, value); err != nil {
		b.Fatalf("Store failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := eng.Store(key, value); err != nil {
			b.Fatalf("Store failed: %v", err)
		}
	}
}

func benchmarkStoreLargeValue(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	value := make([]byte, 100*1024)
	rand.Read(value)

	b.SetBytes(int64(len(value)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		if err := eng.Store(key, value); err != nil {
			b.Fatalf("Store failed: %v", err)
		}
	}
}

func benchmarkStoreTxBatch(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	const batchSize = 100
	value := []byte("benchmark-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := eng.Begin(); err != nil {
			b.Fatalf("Begin failed: %v", err)
		}
		for j := 0; j < batchSize; j++ {
			key := []byte(fmt.Sprintf("key-%d-%d", i, j))
			if err := eng.Store(key, value); err != nil {
				b.Fatalf("Store failed: %v", err)
			}
		}
		if err := eng.Commit(); err != nil {
			b.Fatalf("Commit failed: %v", err)
		}
	}
}

// seedEntries inserts n entries and returns their keys.
func seedEntries(b *testing.B, eng db.Engine, n int) [][]byte {
	b.Helper()

	keys := make([][]byte, n)
	if err := eng.Begin(); err != nil {
		b.Fatalf("Begin failed: %v", err)
	}
	for i := 0; i < n; i++ {
		keys[i] = []byte(fmt.Sprintf("key-%06d", i))
		if err := eng.Store(keys[i], []byte("seed-value")); err != nil {
			b.Fatalf("Store failed: %v", err)
		}
	}
	if err := eng.Commit(); err != nil {
		b.Fatalf("Commit failed: %v", err)
	}
	return keys
}

func benchmarkSeek(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	keys := seedEntries(b, eng, 10000)
	buf := make([]byte, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cur, err := eng.OpenCursor()
		if err != nil {
			b.Fatalf("OpenCursor failed: %v", err)
		}
		found, err := cur.SeekExact(keys[i%len(keys)])
		if err != nil || !found {
			b.Fatalf("SeekExact failed: found=%v err=%v", found, err)
		}
		if _, err := cur.ReadValue(buf); err != nil {
			b.Fatalf("ReadValue failed: %v", err)
		}
		cur.Close()
	}
}

func benchmarkSeekMiss(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	seedEntries(b, eng, 10000)
	missing := []byte("zzz-not-there")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cur, err := eng.OpenCursor()
		if err != nil {
			b.Fatalf("OpenCursor failed: %v", err)
		}
		if found, _ := cur.SeekExact(missing); found {
			b.Fatal("unexpected hit")
		}
		cur.Close()
	}
}

func benchmarkIterate(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	seedEntries(b, eng, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cur, err := eng.OpenCursor()
		if err != nil {
			b.Fatalf("OpenCursor failed: %v", err)
		}
		count := 0
		for cur.First(); cur.Valid(); cur.Next() {
			count++
		}
		if count != 10000 {
			b.Fatalf("expected 10000 entries, got %d", count)
		}
		cur.Close()
	}
}

func benchmarkDelete(b *testing.B, factory db.EngineFactory) {
	eng := mustOpen(b, factory, tempPath(b), false)
	defer eng.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		key := []byte(fmt.Sprintf("key-%d", i))
		if err := eng.Store(key, []byte("v")); err != nil {
			b.Fatalf("Store failed: %v", err)
		}
		b.StartTimer()

		if err := eng.Delete(key); err != nil {
			b.Fatalf("Delete failed: %v", err)
		}
	}
}
