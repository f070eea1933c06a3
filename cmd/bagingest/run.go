package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ndlib/bagingest/ingest"
	"github.com/ndlib/bagingest/util"
)

var (
	runMax     int
	runKeepZip bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Package and upload new submissions",
	Long: `Walks the data folder, creates any missing repository folders, and
uploads every submission the repository does not know yet, up to
max.submissions of them.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	runCmd.Flags().IntVar(&runMax, "max", 0, "override max.submissions for this run")
	runCmd.Flags().BoolVar(&runKeepZip, "keep-zip", false, "keep zip files after uploading them")
	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runMax > 0 {
		cfg.Credentials.MaxSubmissions = runMax
	}
	if runKeepZip {
		cfg.Storage.DeleteAfterUpload = false
	}

	log, logfile, err := util.OpenLog(cfg.Log.File, cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logfile.Close()

	// log before returning so the log file records why the run stopped
	fail := func(err error) error {
		log.Errorf("%+v", err)
		return err
	}

	release, err := ingest.Lock(cfg.Credentials.DataFolder)
	if err != nil {
		return fail(err)
	}
	defer release()

	cat, err := openCatalog(cfg)
	if err != nil {
		return fail(err)
	}
	defer closeCatalog(cat)
	store, err := openStore(cfg)
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := newDriver(cfg, cat, store, log, cmd.OutOrStdout())
	summary, err := d.Run(ctx)
	log.Infof("%d uploaded, %d skipped, %d folders created, %d folders found",
		summary.Uploaded, summary.Skipped, summary.FoldersCreated, summary.FoldersReused)
	if summary.CapReached {
		log.Infof("Submission limit of %d reached; remaining folders are left for the next run",
			cfg.Credentials.MaxSubmissions)
	}
	if err != nil {
		return fail(err)
	}
	return nil
}
