package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"InterviewBot/internal/config"
)

// v carries configuration from the environment and from flags bound on each command
var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "interviewbot",
	Short: "AI-driven mock interview service",
	Long: `interviewbot runs a mock job interview driven by a generative model.

Configuration is read from INTERVIEW_* environment variables; flags override them.

Examples:
  interviewbot serve --provider anthropic --port 5001
  interviewbot show 7f9c2b1e-...
  interviewbot models`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("store-dsn", "", "Durable store (sqlite://<path> or bolt://<path>)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	bindFlag(v, rootCmd, "store_dsn", "store-dsn", true)
	bindFlag(v, rootCmd, "debug", "debug", true)
}

// bindFlag ties a flag to a viper key so that an explicitly set flag wins over the environment
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", flag, err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
