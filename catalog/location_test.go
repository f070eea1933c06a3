package catalog

import (
	"testing"

	"github.com/pkg/errors"
)

func TestOpen(t *testing.T) {
	var table = []struct {
		location string
		expected string
	}{
		{"", "*catalog.Memory"},
		{"memory", "*catalog.Memory"},
		{"ql:memory", "*catalog.SQL"},
		{"https://eu.example.com", "*catalog.Client"},
		{"http://localhost:8080/", "*catalog.Client"},
	}
	for _, tab := range table {
		c, err := Open(tab.location, Options{})
		if err != nil {
			t.Errorf("%q: Received %s", tab.location, err.Error())
			continue
		}
		result := typeName(c)
		if result != tab.expected {
			t.Errorf("%q: Received %s, expected %s", tab.location, result, tab.expected)
		}
		if s, ok := c.(*SQL); ok {
			s.Close()
		}
	}
}

func TestOpenBad(t *testing.T) {
	var table = []string{
		"ftp://example.com",
		"s3:/bucket",
		"/some/path",
	}
	for _, location := range table {
		_, err := Open(location, Options{})
		if errors.Cause(err) != ErrBadLocation {
			t.Errorf("%q: Received %v, expected %v", location, err, ErrBadLocation)
		}
	}
}

func TestOpenClientOptions(t *testing.T) {
	c, _ := Open("https://eu.example.com/", Options{Username: "u", Tenant: "T", RequestsPerSecond: 2, Burst: 3})
	client := c.(*Client)
	if client.HostURL != "https://eu.example.com" {
		t.Errorf("Received %s, expected https://eu.example.com", client.HostURL)
	}
	if client.Username != "u" || client.Tenant != "T" {
		t.Errorf("Received %+v", client)
	}
	if b := client.limiter.Burst(); b != 3 {
		t.Errorf("Received burst %d, expected 3", b)
	}
}

func typeName(c Catalog) string {
	switch c.(type) {
	case *Memory:
		return "*catalog.Memory"
	case *SQL:
		return "*catalog.SQL"
	case *Client:
		return "*catalog.Client"
	}
	return "unknown"
}
