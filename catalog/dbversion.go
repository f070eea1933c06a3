package catalog

import (
	"github.com/BurntSushi/migration"
)

// schemaVersion adapts the version bookkeeping of github.com/BurntSushi/migration
// to MySQL. The stock functions assume a table layout which does not record
// when each migration was applied.
type schemaVersion struct {
	// returns one row holding the current version
	GetSQL string
	// records a new version, given as the only parameter
	SetSQL string
	// creates the version table
	CreateSQL string
}

// Get returns the current schema version. A database without a version
// table is at version 0.
func (d schemaVersion) Get(tx migration.LimitedTx) (int, error) {
	var version int
	if err := tx.QueryRow(d.GetSQL).Scan(&version); err != nil {
		return 0, nil
	}
	return version, nil
}

// Set records version as applied, creating the version table on first use.
func (d schemaVersion) Set(tx migration.LimitedTx, version int) error {
	if _, err := tx.Exec(d.SetSQL, version); err == nil {
		return nil
	}
	if _, err := tx.Exec(d.CreateSQL); err != nil {
		return err
	}
	if _, err := tx.Exec(d.SetSQL, 0); err != nil {
		return err
	}
	_, err := tx.Exec(d.SetSQL, version)
	return err
}
