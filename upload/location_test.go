package upload

import (
	"testing"

	"github.com/pkg/errors"
)

func TestCleanPrefix(t *testing.T) {
	var table = []struct {
		input  string
		prefix string
	}{
		{"", ""},
		{"/", ""},
		{"/incoming", "incoming/"},
		{"incoming/bags/", "incoming/bags/"},
		{"//a//", "a/"},
	}
	for _, tab := range table {
		prefix := cleanPrefix(tab.input)
		if prefix != tab.prefix {
			t.Errorf("%q: Received %q, expected %q", tab.input, prefix, tab.prefix)
		}
	}
}

func TestOpen(t *testing.T) {
	var table = []struct {
		location string
		kind     string
		prefix   string
	}{
		{"", "memory", ""},
		{"memory", "memory", ""},
		{"file:/tmp/drop", "file", ""},
		{"s3:", "s3", ""},
		{"s3:/incoming", "s3", "incoming/"},
		{"s3://localhost:9000", "s3", ""},
		{"s3://localhost:9000/incoming/bags", "s3", "incoming/bags/"},
	}
	for _, tab := range table {
		s, err := Open(tab.location, S3Options{Region: "us-east-1"})
		if err != nil {
			t.Errorf("%q: Received %s", tab.location, err.Error())
			continue
		}
		var kind, prefix string
		switch v := s.(type) {
		case *Memory:
			kind = "memory"
		case *FileSystem:
			kind = "file"
		case *S3:
			kind = "s3"
			prefix = v.Prefix
		}
		if kind != tab.kind || prefix != tab.prefix {
			t.Errorf("%q: Received (%s, %q), expected (%s, %q)", tab.location, kind, prefix, tab.kind, tab.prefix)
		}
	}
}

func TestOpenBad(t *testing.T) {
	var table = []string{
		"file:",
		"blackpearl://host/bucket",
		"/a/path",
	}
	for _, location := range table {
		_, err := Open(location, S3Options{})
		if errors.Cause(err) != ErrBadLocation {
			t.Errorf("%q: Received %v, expected %v", location, err, ErrBadLocation)
		}
	}
}
