package ingest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/ndlib/bagingest/catalog"
	"github.com/ndlib/bagingest/upload"
)

// A Driver runs one pass over a data folder.
type Driver struct {
	Catalog  Catalog
	Uploader Uploader
	Log      *logging.Logger

	// ParentFolder is the repository folder level 1 folders go under.
	// Empty means they are top level folders.
	ParentFolder      catalog.Ref
	SecurityTag       string
	DataFolder        string
	Bucket            string
	MaxSubmissions    int
	DeleteAfterUpload bool

	// Progress, if set, returns the progress callback for the upload of
	// the named zip file.
	Progress func(zipname string) upload.Progress
}

// Summary counts what a run did.
type Summary struct {
	FoldersCreated int
	FoldersReused  int
	Uploaded       int
	Skipped        int
	CapReached     bool // some submissions were left for a later run
}

// Run packages and uploads every submission in the data folder which the
// repository does not know yet, up to MaxSubmissions of them. Any error
// stops the run. Nothing is rolled back; running again picks up where the
// failed run stopped.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	log := d.Log
	if log == nil {
		log = logging.MustGetLogger("bagingest")
	}
	r := &Reconciler{Catalog: d.Catalog, SecurityTag: d.SecurityTag}
	err := d.walk(ctx, log, r, &summary)
	summary.FoldersCreated = r.Created
	summary.FoldersReused = r.Reused
	return summary, err
}

func (d *Driver) walk(ctx context.Context, log *logging.Logger, r *Reconciler, summary *Summary) error {
	if d.ParentFolder != "" {
		parent, err := d.Catalog.Folder(ctx, d.ParentFolder)
		if err != nil {
			return errors.Wrapf(err, "parent folder %s", d.ParentFolder)
		}
		log.Infof("Packages will be ingested into %s", parent.Title)
	}
	log.Infof("Packages will be created from folders in %s", d.DataFolder)

	level1, err := listDirs(d.DataFolder)
	if err != nil {
		return err
	}
	for _, name1 := range level1 {
		log.Infof("Found %s Folder", name1)
		ref1, err := r.Reconcile(ctx, name1, d.ParentFolder)
		if err != nil {
			return err
		}
		dir1 := filepath.Join(d.DataFolder, name1)
		level2, err := listDirs(dir1)
		if err != nil {
			return err
		}
		for _, name2 := range level2 {
			log.Infof("Found %s Folder", name2)
			ref2, err := r.Reconcile(ctx, name2, ref1)
			if err != nil {
				return err
			}
			err = d.submit(ctx, log, filepath.Join(dir1, name2), ref2, summary)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// submit handles the submissions in the level 2 directory dir, which
// belongs to the repository folder ref.
func (d *Driver) submit(ctx context.Context, log *logging.Logger, dir string, ref catalog.Ref, summary *Summary) error {
	submissions, err := listDirs(dir)
	if err != nil {
		return err
	}
	for i, name := range submissions {
		if summary.Uploaded >= d.MaxSubmissions {
			log.Debugf("submission limit reached, leaving %d folders in %s", len(submissions)-i, dir)
			summary.CapReached = true
			break
		}
		entities, err := d.Catalog.Identifier(ctx, catalog.CodeNamespace, name)
		if err != nil {
			return errors.Wrapf(err, "submission %s", name)
		}
		if len(entities) > 0 {
			log.Infof("skipping folder %s", name)
			summary.Skipped++
			continue
		}
		pkg, err := Transform(dir, name)
		if err != nil {
			return err
		}
		log.Debugf("Created %s (%d bytes, md5 %s)", pkg.Path, pkg.Size, pkg.MD5)
		log.Infof("Uploading %s to S3 bucket %s", name, d.Bucket)
		var progress upload.Progress
		if d.Progress != nil {
			progress = d.Progress(filepath.Base(pkg.Path))
		}
		err = d.Uploader.UploadZipPackage(ctx, pkg.Path, ref, d.Bucket, progress, d.DeleteAfterUpload)
		if err != nil {
			return errors.Wrapf(err, "submission %s", name)
		}
		summary.Uploaded++
		log.Infof("Uploaded %s", name)
	}
	return nil
}

// listDirs returns the names of the directories inside dir, sorted.
// Symbolic links to directories are included.
func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "list folder")
	}
	var result []string
	for _, e := range entries {
		isdir := e.IsDir()
		if !isdir && e.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			isdir = err == nil && info.IsDir()
		}
		if isdir {
			result = append(result, e.Name())
		}
	}
	return result, nil
}
