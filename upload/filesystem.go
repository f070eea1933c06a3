package upload

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FileSystem implements a store kept in a local directory, e.g. a drop folder
// watched by the repository or a staging area. Each bucket is a subdirectory
// of the root and keys are file paths inside it. The metadata of each object
// is written beside it in the file "<key>.metadata.json".
type FileSystem struct {
	root string
}

const (
	// the subdir of each bucket to keep files while they are being written.
	scratchdir = ".scratch"

	// MetadataSuffix is appended to a key to name its metadata side-car.
	MetadataSuffix = ".metadata.json"
)

var (
	// make sure it implements the Store interface
	_ Store = &FileSystem{}
)

// NewFileSystem creates a new FileSystem store based at the given root path.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{root: root}
}

// Create starts writing a new object. The object is moved into place when
// the writer is closed, so a partial object is never visible under its key.
func (s *FileSystem) Create(bucket, key string, meta map[string]string) (ObjectWriter, error) {
	if bucket == "" {
		return nil, ErrNoBucket
	}
	if strings.Contains(bucket, "/") || !validKey(key) {
		return nil, errors.Wrapf(ErrBadKey, "%s/%s", bucket, key)
	}
	target := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	scratch := filepath.Join(s.root, bucket, scratchdir)
	if err := os.MkdirAll(scratch, 0775); err != nil {
		return nil, err
	}
	temp := filepath.Join(scratch, uuid.New().String())
	f, err := os.OpenFile(temp, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0664)
	if err != nil {
		return nil, err
	}
	return &moveCloser{File: f, source: temp, target: target, meta: meta}, nil
}

// validKey is true if key is a clean relative path.
func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

// moveCloser tracks the scratch file so when it is closed it can be moved
// into place.
type moveCloser struct {
	*os.File
	source string
	target string
	meta   map[string]string
}

func (w *moveCloser) Close() error {
	err := w.File.Close()
	if err == nil {
		err = os.MkdirAll(filepath.Dir(w.target), 0775)
	}
	if err == nil {
		err = writeMetadata(w.target+MetadataSuffix, w.meta)
	}
	if err == nil {
		err = os.Rename(w.source, w.target)
	}
	if err != nil {
		os.Remove(w.source)
		return errors.Wrapf(err, "store %s", w.target)
	}
	return nil
}

func (w *moveCloser) Abort() error {
	w.File.Close()
	return os.Remove(w.source)
}

func writeMetadata(fname string, meta map[string]string) error {
	if meta == nil {
		meta = map[string]string{}
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(fname, append(b, '\n'), 0664)
}

// ReadMetadata returns the metadata stored with an object.
func (s *FileSystem) ReadMetadata(bucket, key string) (map[string]string, error) {
	fname := filepath.Join(s.root, bucket, filepath.FromSlash(key)) + MetadataSuffix
	b, err := ioutil.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	var meta map[string]string
	err = json.Unmarshal(b, &meta)
	return meta, err
}
