package ingest

import (
	"os"
	"path/filepath"

	"github.com/ndlib/bagingest/bagit"
	"github.com/ndlib/bagingest/xip"
)

// Transform packages the submission directory parent/name into the zip file
// parent/name.zip. The title and description come from the bag's
// bag-info.txt, defaulting to name. They are written into name.metadata
// inside the submission for the duration of the packaging, so the zip
// carries the metadata document. The metadata file is removed afterwards
// whether or not packaging succeeded.
func Transform(parent, name string) (bagit.Package, error) {
	bagdir := filepath.Join(parent, name)
	// also clears a metadata file left by an interrupted run
	defer os.Remove(filepath.Join(bagdir, xip.FileName(name)))
	title, description, err := bagit.ReadDescription(bagdir, name)
	if err != nil {
		return bagit.Package{}, err
	}
	_, err = xip.WriteFile(bagdir, name, xip.DeliverableUnit{
		Title:           title,
		ScopeAndContent: description,
	})
	if err != nil {
		return bagit.Package{}, err
	}
	return bagit.Write(parent, name)
}
