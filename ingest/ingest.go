// Package ingest walks a data folder of BagIt submissions and sends each new
// one to the repository.
//
// The data folder is laid out as data/L1/L2/submission. Each level 1 and
// level 2 directory becomes a repository folder, found again on later runs
// through its "code" identifier. Each submission is packaged into a zip
// (see package bagit) carrying a Deliverable Unit metadata document (see
// package xip) and uploaded into its level 2 folder. Submissions already
// known to the repository are skipped, so a run can be repeated safely.
package ingest

import (
	"context"
	"errors"

	"github.com/ndlib/bagingest/catalog"
	"github.com/ndlib/bagingest/upload"
)

// Catalog is the part of the repository the workflow uses.
// catalog.Client, catalog.SQL and catalog.Memory all satisfy it.
type Catalog interface {
	Folder(ctx context.Context, ref catalog.Ref) (catalog.Folder, error)
	Identifier(ctx context.Context, namespace, value string) ([]catalog.Entity, error)
	CreateFolder(ctx context.Context, title, description, securityTag string, parent catalog.Ref) (catalog.Folder, error)
	AddIdentifier(ctx context.Context, e catalog.Entity, namespace, value string) error
}

// Uploader sends a zip package to the ingest bucket. Retrying failed
// uploads is the Uploader's business.
type Uploader interface {
	UploadZipPackage(ctx context.Context, path string, folder catalog.Ref, bucket string, progress upload.Progress, deleteAfter bool) error
}

// Exported errors
var (
	ErrLocked = errors.New("another run holds the data folder lock")
)
