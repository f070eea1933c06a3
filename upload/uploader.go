package upload

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ndlib/bagingest/catalog"
	"github.com/ndlib/bagingest/util"
)

// Progress is told how many bytes of a package have been sent so far, out of
// total.
type Progress func(sent, total int64)

// Keys of the user metadata attached to each uploaded package. The
// repository uses them to route the package into the target folder.
const (
	MetaKey       = "key"
	MetaName      = "name"
	MetaSize      = "size"
	MetaMD5       = "md5"
	MetaFolder    = "structuralobjectreference"
	MetaStatus    = "status"
	MetaRun       = "run"
	StatusReady   = "ready"
	PackageSuffix = ".zip"
)

// An Uploader moves zip packages into a store.
type Uploader struct {
	Store Store

	// RunID, if set, is recorded with each package.
	RunID string

	// Ingested, if set, is called after each successful upload with the
	// package name and its target folder.
	Ingested func(ctx context.Context, name string, folder catalog.Ref) error
}

// contextStore is implemented by stores which can tie their requests to a
// context.
type contextStore interface {
	WithContext(ctx context.Context) Store
}

// UploadZipPackage sends the zip file at path to bucket, destined for the
// given repository folder. progress, if not nil, is called as the upload
// proceeds. The local file is removed after a successful upload when
// deleteAfter is true.
func (u *Uploader) UploadZipPackage(ctx context.Context, path string, folder catalog.Ref, bucket string, progress Progress, deleteAfter bool) error {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, PackageSuffix)

	// The checksum goes into the object metadata, which S3 needs before
	// the first byte. So read the package twice.
	size, md5, err := checksum(path)
	if err != nil {
		return errors.Wrapf(err, "upload %s", base)
	}
	meta := map[string]string{
		MetaKey:    base,
		MetaName:   name,
		MetaSize:   strconv.FormatInt(size, 10),
		MetaMD5:    md5,
		MetaFolder: string(folder),
		MetaStatus: StatusReady,
	}
	if u.RunID != "" {
		meta[MetaRun] = u.RunID
	}

	store := u.Store
	if cs, ok := store.(contextStore); ok {
		store = cs.WithContext(ctx)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "upload %s", base)
	}
	defer f.Close()
	w, err := store.Create(bucket, base, meta)
	if err != nil {
		return errors.Wrapf(err, "upload %s", base)
	}
	r := &progressReader{r: f, total: size, progress: progress}
	_, err = io.Copy(w, readerWithContext{ctx: ctx, r: r})
	if err != nil {
		w.Abort()
		return errors.Wrapf(err, "upload %s", base)
	}
	if err = w.Close(); err != nil {
		return errors.Wrapf(err, "upload %s", base)
	}
	if progress != nil && size == 0 {
		progress(0, 0)
	}

	if u.Ingested != nil {
		if err = u.Ingested(ctx, name, folder); err != nil {
			return errors.Wrapf(err, "record %s", name)
		}
	}
	if deleteAfter {
		f.Close()
		if err = os.Remove(path); err != nil {
			return errors.Wrapf(err, "upload %s", base)
		}
	}
	return nil
}

// checksum returns the size and hex MD5 of the given file.
func checksum(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()
	hw := util.NewHashWriter(ioutil.Discard)
	if _, err := io.Copy(hw, f); err != nil {
		return 0, "", err
	}
	return hw.Size(), hw.MD5(), nil
}

// progressReader reports the number of bytes read through it.
type progressReader struct {
	r        io.Reader
	sent     int64
	total    int64
	progress Progress
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		if pr.progress != nil {
			pr.progress(pr.sent, pr.total)
		}
	}
	return n, err
}

// readerWithContext stops reading once ctx is done.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (rc readerWithContext) Read(p []byte) (int, error) {
	if err := rc.ctx.Err(); err != nil {
		return 0, err
	}
	return rc.r.Read(p)
}
