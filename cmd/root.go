package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tkv-io/tkv/cmd/kv"
	"github.com/tkv-io/tkv/cmd/serve"
	"github.com/tkv-io/tkv/cmd/util"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tkv",
		Short: "transactional key-value store",
		Long: fmt.Sprintf(`tkv (v%s)

A transactional key-value store backed by a single-file embedded
storage engine, with ordered scans and a client/server RPC layer.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tkv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
