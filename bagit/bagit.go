// Package bagit implements the small part of the BagIt specification needed
// to turn an existing bag directory into an upload package. It reads the
// descriptive tags from bag-info.txt and serializes the whole bag directory
// into an uncompressed zip file.
//
// Bags are never modified on disk. The one alteration the ingest endpoint
// needs, a commented first line in bagit.txt, is applied to the copy inside
// the zip only. A commented declaration tells downstream validators the
// package is still awaiting finalization, while the directory on disk stays
// a valid bag that can be packaged again by a later run.
//
// The BagIt spec can be found at https://tools.ietf.org/html/rfc8493.
package bagit

const (
	// DeclarationFile is the name of the bag declaration tag file.
	DeclarationFile = "bagit.txt"

	// InfoFile is the name of the tag file holding descriptive metadata.
	InfoFile = "bag-info.txt"

	// Dublin Core tags read from the info file.
	TitleTag       = "DC_Title:"
	DescriptionTag = "DC_description:"
)

// commentDeclaration returns the declaration with a '#' prepended to its
// first line.
func commentDeclaration(b []byte) []byte {
	out := make([]byte, 0, len(b)+1)
	out = append(out, '#')
	return append(out, b...)
}
