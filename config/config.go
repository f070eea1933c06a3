// Package config loads the settings for an ingest run from a TOML file.
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config holds everything needed for a run.
type Config struct {
	Credentials Credentials `toml:"credentials"`
	Catalog     Catalog     `toml:"catalog"`
	Storage     Storage     `toml:"storage"`
	Log         Log         `toml:"log"`
	Sentry      Sentry      `toml:"sentry"`
}

// Credentials is the section carrying the repository login and the
// ingest parameters.
type Credentials struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Tenant   string `toml:"tenant"`

	// ParentFolder is the repository folder new level 1 folders are made
	// in. Empty means they are made at the top level.
	ParentFolder   string `toml:"parent.folder"`
	SecurityTag    string `toml:"security.tag" validate:"required"`
	DataFolder     string `toml:"data.folder" validate:"required"`
	Bucket         string `toml:"bucket" validate:"required"`
	MaxSubmissions int    `toml:"max.submissions" validate:"min=1"`
}

// Catalog says where the repository is.
type Catalog struct {
	// memory, ql:<file|memory>, mysql:<dsn> or an http(s) URL
	Location          string  `toml:"location" validate:"required"`
	RequestsPerSecond float64 `toml:"requests.per.second" validate:"gte=0"`
	Burst             int     `toml:"burst" validate:"gte=0"`
}

// Storage says where packages are uploaded to.
type Storage struct {
	// s3:, s3://host[/prefix], file:<dir> or memory
	Location          string `toml:"location" validate:"required"`
	Region            string `toml:"region"`
	AccessKey         string `toml:"access.key"`
	SecretKey         string `toml:"secret.key"`
	DeleteAfterUpload bool   `toml:"delete.after.upload"`
}

// Log configures the run log.
type Log struct {
	File  string `toml:"file" validate:"required"`
	Level string `toml:"level" validate:"oneof=CRITICAL ERROR WARNING NOTICE INFO DEBUG"`
}

// Sentry configures error reporting. An empty DSN disables it.
type Sentry struct {
	DSN string `toml:"dsn"`
}

// PasswordEnv names the environment variable which overrides the password
// in the file.
const PasswordEnv = "BAGINGEST_PASSWORD"

// the keys which must be present, even if empty
var required = [][]string{
	{"credentials", "parent.folder"},
	{"credentials", "security.tag"},
	{"credentials", "data.folder"},
	{"credentials", "bucket"},
	{"credentials", "max.submissions"},
	{"catalog", "location"},
	{"storage", "location"},
}

// ErrMissingKey means a required key is absent from the file.
var ErrMissingKey = errors.New("missing required key")

// Default returns the settings used for anything the file leaves out.
func Default() Config {
	return Config{
		Catalog: Catalog{
			Burst: 1,
		},
		Storage: Storage{
			DeleteAfterUpload: true,
		},
		Log: Log{
			File:  "ingest.log",
			Level: "INFO",
		},
	}
}

// Load reads the configuration in the TOML file fname. It is an error if a
// required key is missing or a value is out of range.
func Load(fname string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(fname, &cfg)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	for _, key := range required {
		if !md.IsDefined(key...) {
			return cfg, errors.Wrapf(ErrMissingKey, "%s", strings.Join(key, "."))
		}
	}
	if pw := os.Getenv(PasswordEnv); pw != "" {
		cfg.Credentials.Password = pw
	}
	cfg.Log.Level = strings.ToUpper(cfg.Log.Level)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
