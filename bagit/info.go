package bagit

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// maxLine is the longest bag-info.txt line we accept.
const maxLine = 1024 * 1024

// ReadDescription returns the title and description recorded in the
// bag-info.txt file of the bag in directory bagdir. The last DC_Title line
// wins, as does the last DC_description line. A missing tag falls back to
// the value of fallback. It is an error if bag-info.txt cannot be read.
func ReadDescription(bagdir string, fallback string) (title, description string, err error) {
	f, err := os.Open(filepath.Join(bagdir, InfoFile))
	if err != nil {
		return "", "", errors.Wrap(err, "read bag info")
	}
	defer f.Close()
	title, description, err = parseDescription(f, fallback)
	if err != nil {
		err = errors.Wrapf(err, "read %s", filepath.Join(bagdir, InfoFile))
	}
	return
}

func parseDescription(r io.Reader, fallback string) (title, description string, err error) {
	title = fallback
	description = fallback
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, TitleTag) {
			title = strings.TrimSpace(strings.ReplaceAll(line, TitleTag, ""))
		}
		if strings.HasPrefix(line, DescriptionTag) {
			description = strings.TrimSpace(strings.ReplaceAll(line, DescriptionTag, ""))
		}
	}
	err = scanner.Err()
	return
}
