package bolt

import (
	"testing"

	dbtesting "github.com/tkv-io/tkv/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunEngineTests(t, "BoltDB", Open)
	dbtesting.RunEngineUsageTest(t, "BoltDB", Open)
}

func Benchmark(b *testing.B) {
	dbtesting.RunEngineBenchmarks(b, "BoltDB", Open)
}
