package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tkv-io/tkv/cmd/util"
	"github.com/tkv-io/tkv/lib/store"
	"github.com/tkv-io/tkv/rpc/common"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for tkv servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	KeyValueCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	KeyValueCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	KeyValueCommands.PersistentFlags().Int(key, 1000, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	KeyValueCommands.PersistentFlags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult bundles the throughput numbers from testing.Benchmark with the
// latency distribution recorded by a go-metrics timer during the same run.
type perfResult struct {
	bench testing.BenchmarkResult
	timer metrics.Timer
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for tkv servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]perfResult)

	setTimer := metrics.NewTimer()
	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("set")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				rpcStore.Remove([]byte(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				setTimer.Time(func() {
					if !rpcStore.WriteString(getKey(counter), "test") {
						log.Printf("(set) - write failed\n")
					}
				})
				counter++
			}
		})
	})

	results["set"] = perfResult{setResult, setTimer}
	printResult("set", results["set"])

	setLargeTimer := metrics.NewTimer()
	setLargeValueResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set-large") {
			return
		}

		// prepare large value
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		// prepare keys
		getKey, iter := getKeys("set-large")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				rpcStore.Remove([]byte(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				setLargeTimer.Time(func() {
					if !rpcStore.Write([]byte(getKey(counter)), largeValue) {
						log.Printf("(set-large) - write failed\n")
					}
				})
				counter++
			}
		})
	})

	results["set-large"] = perfResult{setLargeValueResult, setLargeTimer}
	printResult("set-large", results["set-large"])

	getTimer := metrics.NewTimer()
	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")

		// set keys
		iter(func(k string) {
			if !rpcStore.WriteString(k, "test") {
				log.Printf("(get) - error setting key\n")
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				rpcStore.Remove([]byte(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				getTimer.Time(func() {
					rpcStore.ReadString(getKey(counter), func(string) bool {
						return true
					}, func(err *store.Error) {
						log.Printf("(get) - error getting key: %v\n", err)
					})
				})
				counter++
			}
		})
	})

	results["get"] = perfResult{getResult, getTimer}
	printResult("get", results["get"])

	getMissTimer := metrics.NewTimer()
	getMissResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get-miss") {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("%s/get-miss-%d", perfKeyPrefix, counter%100)
				getMissTimer.Time(func() {
					// a miss invokes neither handler
					rpcStore.ReadString(key, func(string) bool {
						return true
					}, func(err *store.Error) {
						log.Printf("(get-miss) - error getting key: %v\n", err)
					})
				})
				counter++
			}
		})
	})

	results["get-miss"] = perfResult{getMissResult, getMissTimer}
	printResult("get-miss", results["get-miss"])

	deleteTimer := metrics.NewTimer()
	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("delete")

		// set keys
		iter(func(k string) {
			if !rpcStore.WriteString(k, "test") {
				log.Printf("(delete) - error setting key\n")
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				deleteTimer.Time(func() {
					rpcStore.Remove([]byte(getKey(counter)), func(err *store.Error) {
						log.Printf("(delete) - error deleting key: %v\n", err)
					})
				})
				counter++
			}
		})
	})

	results["delete"] = perfResult{deleteResult, deleteTimer}
	printResult("delete", results["delete"])

	scanTimer := metrics.NewTimer()
	scanResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("scan") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("scan")

		// set keys
		iter(func(k string) {
			if !rpcStore.WriteString(k, "test") {
				log.Printf("(scan) - error setting key\n")
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				rpcStore.Remove([]byte(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				scanTimer.Time(func() {
					// exact-seek scan of a single key
					rpcStore.Scan([]byte(getKey(counter)), func(_, _ []byte) bool {
						return true
					}, func(err *store.Error) {
						log.Printf("(scan) - error scanning: %v\n", err)
					})
				})
				counter++
			}
		})
	})

	results["scan"] = perfResult{scanResult, scanTimer}
	printResult("scan", results["scan"])

	txTimer := metrics.NewTimer()
	txResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("tx") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("tx")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				rpcStore.Remove([]byte(k))
			})
		})

		// transactions serialize access to the store, run single-threaded
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			txTimer.Time(func() {
				if !rpcStore.StartTransaction(store.ReadWrite) {
					log.Printf("(tx) - transaction could not be started\n")
					return
				}
				if !rpcStore.WriteString(getKey(i), "test") {
					log.Printf("(tx) - write failed\n")
				}
				if !rpcStore.CommitTransaction() {
					log.Printf("(tx) - commit failed\n")
				}
			})
		}
	})

	results["tx"] = perfResult{txResult, txTimer}
	printResult("tx", results["tx"])

	mixedTimer := metrics.NewTimer()
	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("mixed")

		// set keys
		iter(func(k string) {
			if !rpcStore.WriteString(k, "test") {
				log.Printf("(mixed) - error setting key\n")
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				rpcStore.Remove([]byte(k))
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := getKey(counter)
				mixedTimer.Time(func() {
					switch counter % 4 {
					case 0: // set
						rpcStore.WriteString(key, "test")
					case 1: // get
						rpcStore.ReadString(key, func(string) bool { return true }, nil)
					case 2: // delete
						rpcStore.Remove([]byte(key))
					case 3: // scan
						rpcStore.Scan([]byte(key), func(_, _ []byte) bool { return true }, nil)
					}
				})
				counter++
			}
		})
	})

	results["mixed"] = perfResult{mixedUsageResult, mixedTimer}
	printResult("mixed", results["mixed"])

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	snap := result.timer.Snapshot()

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(snap.Percentile(0.95)), time.Duration(snap.Percentile(0.99)))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P95Ns", "P99Ns", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		snap := result.timer.Snapshot()
		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", snap.Percentile(0.95)),
			fmt.Sprintf("%.0f", snap.Percentile(0.99)),
			skipped,
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
