package catalog

import (
	"strings"

	"github.com/pkg/errors"
)

// Options carries the settings used when connecting to a catalog.
// Only the REST client makes use of them.
type Options struct {
	Username string
	Password string
	Tenant   string

	// Pacing for API calls. Zero means unlimited.
	RequestsPerSecond float64
	Burst             int
}

// Open returns the catalog named by location. It understands
//
//	""  or "memory"          an empty in-memory catalog
//	"ql:memory"              a QL database kept in memory
//	"ql:<file>"              a QL database file
//	"mysql:<dsn>"            a MySQL database, e.g. "mysql:user:pw@tcp(host:3306)/ingest"
//	"http://..." "https://..."  the repository REST API
//
// MySQL DSNs are not URLs, so the location is matched by prefix rather than
// parsed.
func Open(location string, opts Options) (Catalog, error) {
	switch {
	case location == "" || location == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(location, "ql:"):
		s, err := NewQl(strings.TrimPrefix(location, "ql:"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(location, "mysql:"):
		s, err := NewMysql(strings.TrimPrefix(location, "mysql:"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewClient(location, opts), nil
	}
	return nil, errors.Wrapf(ErrBadLocation, "%q", location)
}
