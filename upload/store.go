// Package upload sends zip packages to the object storage bucket the
// repository ingests from.
//
// A Store is the destination. S3 uploads to Amazon S3 or a compatible
// service, FileSystem writes into a local drop folder, and Memory keeps
// everything in memory for tests. An Uploader moves one package into a store
// along with the metadata the repository needs to route it.
package upload

import (
	"errors"
	"io"
)

// Store is a destination for uploaded objects.
type Store interface {
	// Create starts a new object in bucket under key, carrying the given
	// user metadata. The object is committed when the returned writer is
	// closed. An existing object with the same key is replaced.
	Create(bucket, key string, meta map[string]string) (ObjectWriter, error)
}

// An ObjectWriter receives the content of one object. Close commits the
// object. Abort discards everything written so far, and must be used instead
// of Close if the content could not be produced in full.
type ObjectWriter interface {
	io.WriteCloser
	Abort() error
}

// Exported errors
var (
	ErrNoBucket    = errors.New("no bucket name given")
	ErrBadLocation = errors.New("unrecognized storage location")
	ErrNoETag      = errors.New("no ETag was returned from S3")

	// ErrBadKey means a key would name a file outside of its bucket.
	ErrBadKey = errors.New("key is not a relative path")
)
