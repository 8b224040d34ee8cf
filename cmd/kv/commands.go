package kv

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tkv-io/tkv/lib/store"
)

// captureErr returns an error handler that stores the first reported error
// in dst. The callback-based store API never returns errors directly.
func captureErr(dst *error) store.ErrorHandler {
	return func(err *store.Error) {
		if *dst == nil {
			*dst = err
		}
	}
}

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			if !rpcStore.WriteString(key, value) {
				return fmt.Errorf("write failed for key %q", key)
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			var (
				opErr error
				resp  string
				found bool
			)
			rpcStore.ReadString(key, func(value string) bool {
				resp = value
				found = true
				return true
			}, captureErr(&opErr))
			if opErr != nil {
				return opErr
			}
			fmt.Printf("key=%s, found=%v, resp=%s\n", key, found, resp)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			var opErr error
			rpcStore.Remove([]byte(key), captureErr(&opErr))
			if opErr != nil {
				return opErr
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [key]",
		Short: "Lists entries in key order - all entries without an argument, the exact match with one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key []byte
			if len(args) == 1 {
				key = []byte(args[0])
			}
			var (
				opErr error
				count int
			)
			rpcStore.Scan(key, func(k, v []byte) bool {
				fmt.Printf("%s=%s\n", k, v)
				count++
				return true
			}, captureErr(&opErr))
			if opErr != nil {
				return opErr
			}
			fmt.Printf("%d entries\n", count)
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists",
		Short: "Checks if the store holds a valid open database handle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("exists=%t\n", rpcStore.Exists())
			return nil
		},
	}
	usageCmd = &cobra.Command{
		Use:   "usage",
		Short: "Prints the store's database file size in bytes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%d bytes\n", rpcStore.DiskUsage())
			return nil
		},
	}
	beginCmd = &cobra.Command{
		Use:   "begin [mode]",
		Short: "Begins a transaction (mode: rw or ro, default rw)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := store.ReadWrite
			if len(args) == 1 {
				switch args[0] {
				case "rw":
					mode = store.ReadWrite
				case "ro":
					mode = store.ReadOnly
				default:
					return fmt.Errorf("invalid mode %q (want rw or ro)", args[0])
				}
			}
			if !rpcStore.StartTransaction(mode) {
				return fmt.Errorf("transaction could not be started")
			}
			fmt.Println("transaction started")
			return nil
		},
	}
	commitCmd = &cobra.Command{
		Use:   "commit",
		Short: "Commits the active transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rpcStore.CommitTransaction() {
				return fmt.Errorf("commit failed - persistence unknown")
			}
			fmt.Println("transaction committed")
			return nil
		},
	}
	abortCmd = &cobra.Command{
		Use:   "abort",
		Short: "Aborts the active transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rpcStore.AbortTransaction()
			fmt.Println("transaction aborted")
			return nil
		},
	}
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Shows whether a transaction is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("inTransaction=%t\n", rpcStore.IsInTransaction())
			return nil
		},
	}
)
