// Package xip renders the descriptive metadata document embedded in each
// upload package. The ingest endpoint reads it as the Deliverable Unit of the
// new asset.
package xip

import (
	"encoding/xml"
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
)

// Namespace is the XML namespace of the Deliverable Unit schema.
const Namespace = "http://www.tessella.com/XIP/v4"

// Extension is appended to the bag name to make the metadata file name.
const Extension = ".metadata"

// DeliverableUnit is the descriptive metadata attached to an ingested package.
type DeliverableUnit struct {
	XMLName         xml.Name `xml:"http://www.tessella.com/XIP/v4 DeliverableUnit"`
	Title           string   `xml:"Title"`
	ScopeAndContent string   `xml:"ScopeAndContent"`
}

// Render returns the XML document for du. Each call produces a new document,
// nothing is shared between calls.
func (du DeliverableUnit) Render() ([]byte, error) {
	b, err := xml.Marshal(du)
	if err != nil {
		return nil, errors.Wrap(err, "render deliverable unit")
	}
	return b, nil
}

// FileName returns the name of the metadata file for the bag named name.
func FileName(name string) string {
	return name + Extension
}

// WriteFile renders du and saves it as the metadata file inside bagdir.
// It returns the path of the file written.
func WriteFile(bagdir, name string, du DeliverableUnit) (string, error) {
	b, err := du.Render()
	if err != nil {
		return "", err
	}
	path := filepath.Join(bagdir, FileName(name))
	if err := ioutil.WriteFile(path, b, 0644); err != nil {
		return "", errors.Wrap(err, "write metadata")
	}
	return path, nil
}
