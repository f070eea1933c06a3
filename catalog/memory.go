package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory implements a simple in-memory catalog. It is intended mainly for
// testing, and for dry runs where nothing should reach the repository.
type Memory struct {
	m        sync.RWMutex
	order    []Ref // entity refs in creation order
	entities map[Ref]memEntity
	idents   []Identifier
}

type memEntity struct {
	Entity
	folder Folder // only set for structural objects
}

var (
	// ensure Memory satisfies the Catalog interface
	_ Catalog       = &Memory{}
	_ AssetRecorder = &Memory{}
)

// NewMemory returns a new, empty memory catalog.
func NewMemory() *Memory {
	return &Memory{entities: make(map[Ref]memEntity)}
}

// Folder returns the folder with the given reference.
func (ms *Memory) Folder(ctx context.Context, ref Ref) (Folder, error) {
	ms.m.RLock()
	defer ms.m.RUnlock()
	e, ok := ms.entities[ref]
	if !ok || e.Type != StructuralObject {
		return Folder{}, ErrNotFound
	}
	return e.folder, nil
}

// Identifier returns the entities carrying the given identifier, in the
// order the identifiers were attached.
func (ms *Memory) Identifier(ctx context.Context, namespace, value string) ([]Entity, error) {
	var result []Entity
	ms.m.RLock()
	for _, id := range ms.idents {
		if id.Namespace == namespace && id.Value == value {
			result = append(result, ms.entities[id.Ref].Entity)
		}
	}
	ms.m.RUnlock()
	return result, nil
}

// CreateFolder adds a new folder. The parent, if given, must exist.
func (ms *Memory) CreateFolder(ctx context.Context, title, description, securityTag string, parent Ref) (Folder, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	if parent != "" {
		if _, ok := ms.entities[parent]; !ok {
			return Folder{}, ErrNotFound
		}
	}
	f := Folder{
		Ref:         Ref(uuid.New().String()),
		Title:       title,
		Description: description,
		SecurityTag: securityTag,
		Parent:      parent,
	}
	ms.add(memEntity{Entity: f.Entity(), folder: f})
	return f, nil
}

// AddIdentifier attaches an identifier to an existing entity.
func (ms *Memory) AddIdentifier(ctx context.Context, e Entity, namespace, value string) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	if _, ok := ms.entities[e.Ref]; !ok {
		return ErrNotFound
	}
	ms.idents = append(ms.idents, Identifier{Ref: e.Ref, Namespace: namespace, Value: value})
	return nil
}

// AddAsset records an ingested asset under parent carrying the identifier
// code=name, the way the repository does once an uploaded package has been
// ingested. It returns the new entity.
func (ms *Memory) AddAsset(ctx context.Context, name string, parent Ref) (Entity, error) {
	e := Entity{
		Ref:   Ref(uuid.New().String()),
		Type:  InformationObject,
		Title: name,
	}
	ms.m.Lock()
	ms.add(memEntity{Entity: e, folder: Folder{Parent: parent}})
	ms.idents = append(ms.idents, Identifier{Ref: e.Ref, Namespace: CodeNamespace, Value: name})
	ms.m.Unlock()
	return e, nil
}

func (ms *Memory) add(e memEntity) {
	ms.entities[e.Ref] = e
	ms.order = append(ms.order, e.Ref)
}

// Folders lists every folder in creation order.
func (ms *Memory) Folders() []Folder {
	var result []Folder
	ms.m.RLock()
	for _, ref := range ms.order {
		if e := ms.entities[ref]; e.Type == StructuralObject {
			result = append(result, e.folder)
		}
	}
	ms.m.RUnlock()
	return result
}

// Identifiers lists the identifiers attached to the given entity.
func (ms *Memory) Identifiers(ref Ref) []Identifier {
	var result []Identifier
	ms.m.RLock()
	for _, id := range ms.idents {
		if id.Ref == ref {
			result = append(result, id)
		}
	}
	ms.m.RUnlock()
	return result
}
