// Package catalog talks to the repository that records where ingested
// packages live. The repository is a tree of folders (structural objects)
// holding ingested assets (information objects). Entities are found again
// through identifiers, (namespace, value) pairs attached to them.
//
// Catalog is the interface the ingest workflow needs. Client implements it
// over the repository's REST API. SQL implements it over a QL or MySQL
// database, which is useful for staging runs and for sites that keep their
// own ledger. Memory is intended for testing.
package catalog

import (
	"context"
	"errors"
)

// CodeNamespace is the identifier namespace holding local directory names.
const CodeNamespace = "code"

// A Ref is the repository's opaque handle for an entity.
type Ref string

// EntityType distinguishes the kinds of entities in the repository.
type EntityType string

const (
	StructuralObject  EntityType = "SO" // a folder
	InformationObject EntityType = "IO" // an ingested asset
)

// Entity is any node in the repository that an identifier can be attached to.
type Entity struct {
	Ref   Ref
	Type  EntityType
	Title string
}

// Folder is a structural object. Parent is empty for top level folders.
type Folder struct {
	Ref         Ref
	Title       string
	Description string
	SecurityTag string
	Parent      Ref
}

// Entity returns the folder as a generic entity.
func (f Folder) Entity() Entity {
	return Entity{Ref: f.Ref, Type: StructuralObject, Title: f.Title}
}

// Identifier is a (namespace, value) pair attached to an entity.
type Identifier struct {
	Ref       Ref
	Namespace string
	Value     string
}

// Catalog is the set of repository operations used during ingest.
type Catalog interface {
	// Folder returns the folder with the given reference, or ErrNotFound.
	Folder(ctx context.Context, ref Ref) (Folder, error)

	// Identifier returns every entity having the identifier
	// (namespace, value). An empty list is not an error.
	Identifier(ctx context.Context, namespace, value string) ([]Entity, error)

	// CreateFolder makes a new folder under parent. An empty parent
	// creates a top level folder.
	CreateFolder(ctx context.Context, title, description, securityTag string, parent Ref) (Folder, error)

	// AddIdentifier attaches the identifier (namespace, value) to e.
	AddIdentifier(ctx context.Context, e Entity, namespace, value string) error
}

// AssetRecorder is implemented by catalogs which are not fed by a
// repository's ingest process. Recording an asset after its package is
// uploaded lets later runs skip the submission.
type AssetRecorder interface {
	AddAsset(ctx context.Context, name string, parent Ref) (Entity, error)
}

// Exported errors
var (
	ErrNotFound       = errors.New("entity not found")
	ErrNotAuthorized  = errors.New("access denied")
	ErrUnexpectedResp = errors.New("unexpected response code")
	ErrBadLocation    = errors.New("unrecognized catalog location")
)
