package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "potato",
	Short: "Bridge a BLE power meter to a virtual game controller",
	Long: `potato turns a Bluetooth Low Energy cycling power meter (smart trainer)
into a virtual game controller:

- Scans for a trainer by advertised name (KICKR, WAHOO, ...)
- Subscribes to the Cycling Power Measurement characteristic
- Maps your power output onto the right trigger (or a button press)
- Passes keyboard arrow keys through to the D-pad for steering

Pedal harder, go faster.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
