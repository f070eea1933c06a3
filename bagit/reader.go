package bagit

import (
	"archive/zip"
	"errors"
	"io"
	"io/ioutil"
	"path"
	"strings"
)

// Reader gives access to a package written by Write.
type Reader struct {
	z    *zip.Reader
	name string
}

var (
	// ErrNotFound means a stream inside a zip file with the given name
	// could not be found.
	ErrNotFound = errors.New("stream not found")
)

// NewReader creates a package reader which wraps r. It expects a ZIP
// datastream, and uses size to locate the zip directory, which is at the end.
// Closing the underlying ReaderAt is up to the caller.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	in, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	result := &Reader{z: in}
	if len(in.File) > 0 {
		result.name = strings.SplitN(in.File[0].Name, "/", 2)[0]
	}
	return result, nil
}

// Name returns the bag directory name the package unzips into.
func (r *Reader) Name() string { return r.name }

// Files lists every entry in the package, directories included, in the order
// they were written.
func (r *Reader) Files() []string {
	var result []string
	for _, f := range r.z.File {
		result = append(result, f.Name)
	}
	return result
}

// Open returns the content of the entry having the given name relative to
// the bag directory, e.g. "bagit.txt" or "data/image.tif".
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	xname := path.Join(r.name, name)
	for _, f := range r.z.File {
		if f.Name == xname {
			return f.Open()
		}
	}
	return nil, ErrNotFound
}

// ReadAll returns the content of the named entry.
func (r *Reader) ReadAll(name string) ([]byte, error) {
	rc, err := r.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ioutil.ReadAll(rc)
}

// Pending returns true if the archived declaration file has been commented
// out, marking the package as awaiting finalization.
func (r *Reader) Pending() bool {
	b, err := r.ReadAll(DeclarationFile)
	return err == nil && len(b) > 0 && b[0] == '#'
}
