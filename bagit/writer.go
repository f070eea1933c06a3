package bagit

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ndlib/bagingest/util"
)

// A Package describes a zip file made from a bag directory.
type Package struct {
	Path   string // location of the zip file
	Name   string // the bag directory name, also the top directory in the zip
	Size   int64  // size of the zip file in bytes
	MD5    string // hex encoded checksums of the zip file
	SHA256 string
}

// Write serializes the bag directory parent/name into the zip file
// parent/name.zip, replacing any zip already there. Paths inside the zip are
// relative to parent, so every entry starts with "name/". Every directory
// gets its own entry. Files are stored without compression. Any file named
// bagit.txt is stored with its first line commented out; the file on disk is
// left untouched.
//
// If an error occurs the partial zip file is removed.
func Write(parent, name string) (Package, error) {
	result := Package{
		Path: filepath.Join(parent, name+".zip"),
		Name: name,
	}
	f, err := os.Create(result.Path)
	if err != nil {
		return result, errors.Wrap(err, "create package")
	}
	hw := util.NewHashWriter(f)
	w := &Writer{z: zip.NewWriter(hw)}
	err = w.AddTree(parent, name)
	if err == nil {
		err = w.Close()
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(result.Path)
		return result, errors.Wrapf(err, "package %s", name)
	}
	result.Size = hw.Size()
	result.MD5 = hw.MD5()
	result.SHA256 = hw.SHA256()
	return result, nil
}

// Writer adds bag directories to a zip stream.
type Writer struct {
	z *zip.Writer
}

// NewWriter returns a Writer serializing to w. It does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{z: zip.NewWriter(w)}
}

// Close writes the zip central directory.
func (w *Writer) Close() error {
	return w.z.Close()
}

// AddTree walks the directory parent/name top-down and adds every entry
// under it to the zip, naming each entry relative to parent.
func (w *Writer) AddTree(parent, name string) error {
	root := filepath.Join(parent, name)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.addDir(filepath.ToSlash(rel)+"/", info)
		}
		return w.addFile(path, filepath.ToSlash(rel), info)
	})
}

func (w *Writer) addDir(zipname string, info fs.FileInfo) error {
	header := &zip.FileHeader{
		Name:     zipname,
		Method:   zip.Store,
		Modified: info.ModTime(),
	}
	header.SetMode(info.Mode())
	_, err := w.z.CreateHeader(header)
	return err
}

func (w *Writer) addFile(path, zipname string, info fs.FileInfo) error {
	header := &zip.FileHeader{
		Name:     zipname,
		Method:   zip.Store,
		Modified: info.ModTime(),
	}
	header.SetMode(info.Mode())
	out, err := w.z.CreateHeader(header)
	if err != nil {
		return err
	}
	if filepath.Base(path) == DeclarationFile {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = out.Write(commentDeclaration(b))
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(out, in)
	return err
}
