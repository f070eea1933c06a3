// Command bagingest packages BagIt submissions and uploads them into the
// repository. See "bagingest help" for the commands.
package main

import (
	"os"

	raven "github.com/getsentry/raven-go"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "bagingest",
	Short: "Package BagIt submissions and upload them for ingest",
	Long: `bagingest walks a data folder laid out as L1/L2/submission. Each L1
and L2 directory is matched to a repository folder through its "code"
identifier, creating the folder if needed. Each submission the repository
does not know yet is zipped together with its descriptive metadata and
uploaded to the ingest bucket.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "ingest.toml", "configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		raven.CaptureErrorAndWait(err, nil)
		os.Exit(1)
	}
}
