package main

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ndlib/bagingest/bagit"
	"github.com/ndlib/bagingest/ingest"
	"github.com/ndlib/bagingest/xip"
)

var packageCmd = &cobra.Command{
	Use:   "package [submission-dir]...",
	Short: "Build zip packages without uploading them",
	Long: `Builds <name>.zip beside each given submission directory, exactly as a
run would, so the package can be inspected. Each zip is read back to check
the declaration is commented out and the metadata document is present.
Nothing is sent to the repository.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPackage,
}

func init() {
	rootCmd.AddCommand(packageCmd)
}

func runPackage(cmd *cobra.Command, args []string) error {
	for _, dir := range args {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		name := filepath.Base(abs)
		p, err := ingest.Transform(filepath.Dir(abs), name)
		if err != nil {
			return err
		}
		n, err := verifyPackage(p.Path, name)
		if err != nil {
			return err
		}
		cmd.Printf("%s\t%s\t%d entries\tmd5:%s\tsha256:%s\n",
			p.Path, humanize.Bytes(uint64(p.Size)), n, p.MD5, p.SHA256)
	}
	return nil
}

// verifyPackage reads the zip at path back and returns its entry count.
func verifyPackage(path, name string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	r, err := bagit.NewReader(f, info.Size())
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", path)
	}
	if !r.Pending() {
		return 0, errors.Errorf("%s: %s is not commented out", path, bagit.DeclarationFile)
	}
	if _, err := r.ReadAll(xip.FileName(name)); err != nil {
		return 0, errors.Wrapf(err, "%s: %s", path, xip.FileName(name))
	}
	return len(r.Files()), nil
}
