// Package testing provides a shared conformance suite and benchmarks for
// db.Engine implementations. The suite is driven by the implementation's
// db.EngineFactory so it can open fresh database files and reopen them to
// verify durability behavior (committed data survives a reopen, uncommitted
// data does not).
//
// Usage from an engine package:
//
//	func Test(t *testing.T) {
//		dbtesting.RunEngineTests(t, "BoltDB", bolt.Open)
//		dbtesting.RunEngineUsageTest(t, "BoltDB", bolt.Open)
//	}
//
//	func Benchmark(b *testing.B) {
//		dbtesting.RunEngineBenchmarks(b, "BoltDB", bolt.Open)
//	}
package testing
