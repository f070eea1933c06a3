package main

import (
	"context"
	"io"

	raven "github.com/getsentry/raven-go"
	"github.com/google/uuid"
	"github.com/op/go-logging"

	"github.com/ndlib/bagingest/catalog"
	"github.com/ndlib/bagingest/config"
	"github.com/ndlib/bagingest/ingest"
	"github.com/ndlib/bagingest/upload"
)

// loadConfig reads the configuration file and turns on error reporting if
// it names a Sentry DSN.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return cfg, err
	}
	if cfg.Sentry.DSN != "" {
		if err := raven.SetDSN(cfg.Sentry.DSN); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func openCatalog(cfg config.Config) (catalog.Catalog, error) {
	return catalog.Open(cfg.Catalog.Location, catalog.Options{
		Username:          cfg.Credentials.Username,
		Password:          cfg.Credentials.Password,
		Tenant:            cfg.Credentials.Tenant,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Burst:             cfg.Catalog.Burst,
	})
}

func openStore(cfg config.Config) (upload.Store, error) {
	return upload.Open(cfg.Storage.Location, upload.S3Options{
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	})
}

// closeCatalog closes catalogs holding a database connection.
func closeCatalog(c catalog.Catalog) {
	if cl, ok := c.(io.Closer); ok {
		cl.Close()
	}
}

// newDriver wires a Driver for one run. Progress is drawn on console, if
// it is not nil.
func newDriver(cfg config.Config, cat catalog.Catalog, store upload.Store, log *logging.Logger, console io.Writer) *ingest.Driver {
	uploader := &upload.Uploader{
		Store: store,
		RunID: uuid.New().String(),
	}
	// Catalogs which no repository feeds record the uploads themselves,
	// so the next run skips them.
	if rec, ok := cat.(catalog.AssetRecorder); ok {
		uploader.Ingested = func(ctx context.Context, name string, folder catalog.Ref) error {
			_, err := rec.AddAsset(ctx, name, folder)
			return err
		}
	}
	d := &ingest.Driver{
		Catalog:           cat,
		Uploader:          uploader,
		Log:               log,
		ParentFolder:      catalog.Ref(cfg.Credentials.ParentFolder),
		SecurityTag:       cfg.Credentials.SecurityTag,
		DataFolder:        cfg.Credentials.DataFolder,
		Bucket:            cfg.Credentials.Bucket,
		MaxSubmissions:    cfg.Credentials.MaxSubmissions,
		DeleteAfterUpload: cfg.Storage.DeleteAfterUpload,
	}
	if console != nil {
		d.Progress = func(name string) upload.Progress {
			return upload.ConsoleProgress(name, console)
		}
	}
	log.Debugf("run id %s", uploader.RunID)
	return d
}
