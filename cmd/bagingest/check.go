package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ndlib/bagingest/catalog"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and show what a run would use",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer closeCatalog(cat)
	if _, err := openStore(cfg); err != nil {
		return err
	}

	cmd.Printf("catalog:          %s\n", describe(cfg.Catalog.Location, "memory"))
	cmd.Printf("storage:          %s\n", describe(cfg.Storage.Location, "memory"))
	if ref := cfg.Credentials.ParentFolder; ref != "" {
		f, err := cat.Folder(context.Background(), catalog.Ref(ref))
		if err != nil {
			return err
		}
		cmd.Printf("parent folder:    %s (%s)\n", f.Title, f.Ref)
	} else {
		cmd.Printf("parent folder:    none, folders are made at the top level\n")
	}
	cmd.Printf("security tag:     %s\n", cfg.Credentials.SecurityTag)
	cmd.Printf("bucket:           %s\n", cfg.Credentials.Bucket)
	cmd.Printf("max submissions:  %d\n", cfg.Credentials.MaxSubmissions)
	cmd.Printf("delete after:     %v\n", cfg.Storage.DeleteAfterUpload)

	n, err := countSubmissions(cfg.Credentials.DataFolder)
	if err != nil {
		return err
	}
	cmd.Printf("data folder:      %s (%d submissions)\n", cfg.Credentials.DataFolder, n)
	return nil
}

func describe(location, fallback string) string {
	if location == "" {
		return fallback
	}
	return location
}

// countSubmissions counts the directories two levels below root.
func countSubmissions(root string) (int, error) {
	if _, err := os.Stat(root); err != nil {
		return 0, err
	}
	matches, err := filepath.Glob(filepath.Join(root, "*", "*", "*"))
	if err != nil {
		return 0, err
	}
	var n int
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.IsDir() {
			n++
		}
	}
	return n, nil
}
