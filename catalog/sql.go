package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/BurntSushi/migration"
	_ "github.com/cznic/ql/driver"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SQL keeps a catalog inside a SQL database. It backs staging runs, where
// the folder structure should be rehearsed without touching the repository,
// and sites which keep their own ingest ledger in MySQL.
type SQL struct {
	db *sql.DB
	q  dialect
}

var (
	// ensure SQL satisfies the Catalog interface
	_ Catalog       = &SQL{}
	_ AssetRecorder = &SQL{}
)

// dialect holds the statements that differ between QL and MySQL.
// QL can only order by a selected column, so lookup returns the ordering
// column after the ref.
type dialect struct {
	folder       string
	entity       string
	lookup       string
	insertEntity string
	insertIdent  string
}

var qlDialect = dialect{
	folder: `SELECT ref, title, description, security_tag, parent
		FROM entities WHERE ref == ?1 AND kind == "SO" LIMIT 1`,
	entity:       `SELECT kind, title FROM entities WHERE ref == ?1 LIMIT 1`,
	lookup:       `SELECT ref, created FROM identifiers WHERE namespace == ?1 AND value == ?2 ORDER BY created`,
	insertEntity: `INSERT INTO entities VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7)`,
	insertIdent:  `INSERT INTO identifiers VALUES (?1, ?2, ?3, ?4)`,
}

var mysqlDialect = dialect{
	folder: `SELECT ref, title, description, security_tag, parent
		FROM entities WHERE ref = ? AND kind = "SO" LIMIT 1`,
	entity:       `SELECT kind, title FROM entities WHERE ref = ? LIMIT 1`,
	lookup:       `SELECT ref, id FROM identifiers WHERE namespace = ? AND value = ? ORDER BY id`,
	insertEntity: `INSERT INTO entities (ref, kind, title, description, security_tag, parent, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	insertIdent:  `INSERT INTO identifiers (ref, namespace, value, created) VALUES (?, ?, ?, ?)`,
}

const qlInit = `
	CREATE TABLE IF NOT EXISTS entities (
		ref string,
		kind string,
		title string,
		description string,
		security_tag string,
		parent string,
		created time
	);
	CREATE INDEX IF NOT EXISTS entityref ON entities (ref);
	CREATE TABLE IF NOT EXISTS identifiers (
		ref string,
		namespace string,
		value string,
		created time
	);
	CREATE INDEX IF NOT EXISTS identvalue ON identifiers (value);
`

// NewQl opens a catalog kept in a QL database file. The filename "memory"
// keeps a fresh database entirely in memory.
func NewQl(filename string) (*SQL, error) {
	var db *sql.DB
	var err error
	if filename == "memory" {
		// each memory catalog gets its own database
		db, err = sql.Open("ql-mem", uuid.New().String()+".db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlInit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open ql catalog")
	}
	return &SQL{db: db, q: qlDialect}, nil
}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

var mysqlVersioning = schemaVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

// NewMysql connects to a MySQL database, bringing its schema up to date.
// dial is a go-sql-driver DSN, e.g. "user:password@tcp(localhost:3306)/ingest".
func NewMysql(dial string) (*SQL, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql catalog")
	}
	return &SQL{db: db, q: mysqlDialect}, nil
}

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS entities (
			ref varchar(64) PRIMARY KEY,
			kind varchar(8),
			title varchar(1024),
			description text,
			security_tag varchar(255),
			parent varchar(64),
			created datetime,
			INDEX (parent))`,
		`CREATE TABLE IF NOT EXISTS identifiers (
			id int PRIMARY KEY AUTO_INCREMENT,
			ref varchar(64),
			namespace varchar(64),
			value varchar(255),
			created datetime,
			INDEX (namespace, value))`,
	}
	return execlist(tx, s)
}

// execlist exec's each item in the list, return if there is an error.
// Used to work around mysql driver not handling compound exec statements.
func execlist(tx migration.LimitedTx, stms []string) error {
	var err error
	for _, s := range stms {
		_, err = tx.Exec(s)
		if err != nil {
			break
		}
	}
	return err
}

// Close closes the underlying database.
func (s *SQL) Close() error {
	return s.db.Close()
}

// Folder returns the folder with the given reference.
func (s *SQL) Folder(ctx context.Context, ref Ref) (Folder, error) {
	var f Folder
	err := s.db.QueryRowContext(ctx, s.q.folder, string(ref)).Scan(
		&f.Ref, &f.Title, &f.Description, &f.SecurityTag, &f.Parent)
	if err == sql.ErrNoRows {
		return Folder{}, ErrNotFound
	} else if err != nil {
		return Folder{}, errors.Wrapf(err, "folder %s", ref)
	}
	return f, nil
}

// Identifier returns the entities having the given identifier.
func (s *SQL) Identifier(ctx context.Context, namespace, value string) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, s.q.lookup, namespace, value)
	if err != nil {
		return nil, errors.Wrapf(err, "identifier %s=%s", namespace, value)
	}
	var refs []string
	for rows.Next() {
		var ref string
		var order interface{}
		if err := rows.Scan(&ref, &order); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var result []Entity
	for _, ref := range refs {
		e, err := s.entity(ctx, Ref(ref))
		if err == ErrNotFound {
			// identifier left behind by a deleted entity
			continue
		} else if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *SQL) entity(ctx context.Context, ref Ref) (Entity, error) {
	e := Entity{Ref: ref}
	var kind string
	err := s.db.QueryRowContext(ctx, s.q.entity, string(ref)).Scan(&kind, &e.Title)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	} else if err != nil {
		return e, errors.Wrapf(err, "entity %s", ref)
	}
	e.Type = EntityType(kind)
	return e, nil
}

// CreateFolder makes a new folder under parent.
func (s *SQL) CreateFolder(ctx context.Context, title, description, securityTag string, parent Ref) (Folder, error) {
	if parent != "" {
		if _, err := s.entity(ctx, parent); err != nil {
			return Folder{}, err
		}
	}
	f := Folder{
		Ref:         Ref(uuid.New().String()),
		Title:       title,
		Description: description,
		SecurityTag: securityTag,
		Parent:      parent,
	}
	_, err := performExec(s.db, s.q.insertEntity,
		string(f.Ref), string(StructuralObject), title, description, securityTag, string(parent), time.Now())
	if err != nil {
		return Folder{}, errors.Wrapf(err, "create folder %s", title)
	}
	return f, nil
}

// AddIdentifier attaches an identifier to the entity e.
func (s *SQL) AddIdentifier(ctx context.Context, e Entity, namespace, value string) error {
	if _, err := s.entity(ctx, e.Ref); err != nil {
		return err
	}
	_, err := performExec(s.db, s.q.insertIdent, string(e.Ref), namespace, value, time.Now())
	if err != nil {
		return errors.Wrapf(err, "add identifier %s=%s", namespace, value)
	}
	return nil
}

// AddAsset records an ingested asset under parent with the identifier
// code=name. Uploads into a staging catalog are never ingested by a
// repository, so the staging run records them itself.
func (s *SQL) AddAsset(ctx context.Context, name string, parent Ref) (Entity, error) {
	e := Entity{
		Ref:   Ref(uuid.New().String()),
		Type:  InformationObject,
		Title: name,
	}
	_, err := performExec(s.db, s.q.insertEntity,
		string(e.Ref), string(e.Type), name, "", "", string(parent), time.Now())
	if err == nil {
		err = s.AddIdentifier(ctx, e, CodeNamespace, name)
	}
	if err != nil {
		return e, errors.Wrapf(err, "add asset %s", name)
	}
	return e, nil
}

// performExec runs a write statement inside a transaction. QL requires every
// write to happen inside one.
func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
