package bagit

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

const testDeclaration = "BagIt-Version: 0.97\r\nTag-File-Character-Encoding: UTF-8\r\n"

// makeBag creates a small bag directory parent/name.
func makeBag(t *testing.T, parent, name string) {
	t.Helper()
	var files = []struct {
		name    string
		content string
	}{
		{"bagit.txt", testDeclaration},
		{"bag-info.txt", "DC_Title: Foo\nDC_description: Bar\n"},
		{"manifest-md5.txt", "5d41402abc4b2a76b9719d911017c592  data/hello.txt\n"},
		{"data/hello.txt", "hello"},
		{"data/sub/bagit.txt", "nested"},
	}
	for _, f := range files {
		p := filepath.Join(parent, name, filepath.FromSlash(f.name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(p, []byte(f.content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func openPackage(t *testing.T, p Package) *Reader {
	t.Helper()
	f, err := os.Open(p.Path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	r, err := NewReader(f, p.Size)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestWriteRoundtrip(t *testing.T) {
	parent := t.TempDir()
	makeBag(t, parent, "sub1")

	p, err := Write(parent, "sub1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Path != filepath.Join(parent, "sub1.zip") {
		t.Errorf("Received path %s", p.Path)
	}
	info, err := os.Stat(p.Path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != p.Size {
		t.Errorf("Received size %d, file is %d", p.Size, info.Size())
	}
	if len(p.MD5) != 32 || len(p.SHA256) != 64 {
		t.Errorf("Bad checksums %q %q", p.MD5, p.SHA256)
	}

	r := openPackage(t, p)
	if r.Name() != "sub1" {
		t.Errorf("Received name %s, expected sub1", r.Name())
	}
	files := r.Files()
	sort.Strings(files)
	expected := []string{
		"sub1/",
		"sub1/bag-info.txt",
		"sub1/bagit.txt",
		"sub1/data/",
		"sub1/data/hello.txt",
		"sub1/data/sub/",
		"sub1/data/sub/bagit.txt",
		"sub1/manifest-md5.txt",
	}
	if len(files) != len(expected) {
		t.Fatalf("Received %v, expected %v", files, expected)
	}
	for i := range expected {
		if files[i] != expected[i] {
			t.Errorf("Received %s, expected %s", files[i], expected[i])
		}
	}

	// the archived declaration has exactly one '#' in front
	b, err := r.ReadAll("bagit.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "#"+testDeclaration {
		t.Errorf("Received %q, expected %q", string(b), "#"+testDeclaration)
	}
	if !r.Pending() {
		t.Errorf("Pending returned false")
	}
	// any file named bagit.txt is treated the same way
	b, _ = r.ReadAll("data/sub/bagit.txt")
	if string(b) != "#nested" {
		t.Errorf("Received %q, expected %q", string(b), "#nested")
	}
	b, _ = r.ReadAll("data/hello.txt")
	if string(b) != "hello" {
		t.Errorf("Received %q, expected %q", string(b), "hello")
	}

	// the declaration on disk is byte-identical
	disk, err := ioutil.ReadFile(filepath.Join(parent, "sub1", "bagit.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(disk) != testDeclaration {
		t.Errorf("On disk declaration changed to %q", string(disk))
	}
}

func TestWriteReplacesStrayZip(t *testing.T) {
	parent := t.TempDir()
	makeBag(t, parent, "sub1")
	stray := filepath.Join(parent, "sub1.zip")
	if err := ioutil.WriteFile(stray, []byte("left from an interrupted run"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := Write(parent, "sub1")
	if err != nil {
		t.Fatal(err)
	}
	r := openPackage(t, p)
	if len(r.Files()) == 0 {
		t.Errorf("Package is empty")
	}
}

func TestWriteMissingBag(t *testing.T) {
	parent := t.TempDir()
	_, err := Write(parent, "nothere")
	if err == nil {
		t.Fatalf("Expected an error")
	}
	if _, err := os.Stat(filepath.Join(parent, "nothere.zip")); !os.IsNotExist(err) {
		t.Errorf("Partial zip was left behind")
	}
}

func TestCommentDeclaration(t *testing.T) {
	var table = []struct{ input, output string }{
		{"", "#"},
		{"BagIt-Version: 1.0\n", "#BagIt-Version: 1.0\n"},
		{"#already\n", "##already\n"},
	}
	for _, tab := range table {
		out := string(commentDeclaration([]byte(tab.input)))
		if out != tab.output {
			t.Errorf("Received %q, expected %q", out, tab.output)
		}
	}
}
