package ingest

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ndlib/bagingest/catalog"
)

// A Reconciler maps local directory names onto repository folders.
type Reconciler struct {
	Catalog     Catalog
	SecurityTag string

	// counts of folders created and found so far
	Created int
	Reused  int
}

// Reconcile returns the folder for the directory name. A folder is found
// through the identifier code=name. If there is none, a new folder titled
// name is made under parent and given that identifier. An empty parent
// means a top level folder.
//
// Creating the folder and attaching its identifier are separate calls. If
// the second fails the folder is orphaned and the next run makes another.
func (r *Reconciler) Reconcile(ctx context.Context, name string, parent catalog.Ref) (catalog.Ref, error) {
	entities, err := r.Catalog.Identifier(ctx, catalog.CodeNamespace, name)
	if err != nil {
		return "", errors.Wrapf(err, "reconcile %s", name)
	}
	if len(entities) > 0 {
		// should be only one; any will do
		r.Reused++
		return entities[0].Ref, nil
	}
	folder, err := r.Catalog.CreateFolder(ctx, name, name, r.SecurityTag, parent)
	if err != nil {
		return "", errors.Wrapf(err, "reconcile %s", name)
	}
	err = r.Catalog.AddIdentifier(ctx, folder.Entity(), catalog.CodeNamespace, name)
	if err != nil {
		return "", errors.Wrapf(err, "reconcile %s", name)
	}
	r.Created++
	return folder.Ref, nil
}
