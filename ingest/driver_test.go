package ingest

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/ndlib/bagingest/bagit"
	"github.com/ndlib/bagingest/catalog"
	"github.com/ndlib/bagingest/upload"
	"github.com/ndlib/bagingest/util"
)

const declaration = "BagIt-Version: 0.97\nTag-File-Character-Encoding: UTF-8\n"

// makeSubmission creates the bag root/l1/l2/name.
func makeSubmission(t *testing.T, root, l1, l2, name, info string) string {
	t.Helper()
	bagdir := filepath.Join(root, l1, l2, name)
	var files = []struct {
		name    string
		content string
	}{
		{"bagit.txt", declaration},
		{"bag-info.txt", info},
		{"data/file.txt", "content of " + name},
	}
	for _, f := range files {
		p := filepath.Join(bagdir, filepath.FromSlash(f.name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(p, []byte(f.content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return bagdir
}

// countingCatalog counts the changes made to a memory catalog.
type countingCatalog struct {
	*catalog.Memory
	creates int
	adds    int
}

func (c *countingCatalog) CreateFolder(ctx context.Context, title, description, securityTag string, parent catalog.Ref) (catalog.Folder, error) {
	c.creates++
	return c.Memory.CreateFolder(ctx, title, description, securityTag, parent)
}

func (c *countingCatalog) AddIdentifier(ctx context.Context, e catalog.Entity, namespace, value string) error {
	c.adds++
	return c.Memory.AddIdentifier(ctx, e, namespace, value)
}

type uploadCall struct {
	path        string
	folder      catalog.Ref
	bucket      string
	deleteAfter bool
	progress    bool
	zip         []byte
}

// recordingUploader remembers each upload. If ingest is set, each package
// is entered into it, as the repository would after ingesting the package.
type recordingUploader struct {
	calls  []uploadCall
	ingest *catalog.Memory
	err    error
}

func (u *recordingUploader) UploadZipPackage(ctx context.Context, path string, folder catalog.Ref, bucket string, progress upload.Progress, deleteAfter bool) error {
	if u.err != nil {
		return u.err
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	u.calls = append(u.calls, uploadCall{
		path:        path,
		folder:      folder,
		bucket:      bucket,
		deleteAfter: deleteAfter,
		progress:    progress != nil,
		zip:         b,
	})
	if u.ingest != nil {
		name := strings.TrimSuffix(filepath.Base(path), ".zip")
		u.ingest.AddAsset(ctx, name, folder)
	}
	if deleteAfter {
		return os.Remove(path)
	}
	return nil
}

func newDriver(root string, cat Catalog, up Uploader, buf *bytes.Buffer) *Driver {
	return &Driver{
		Catalog:           cat,
		Uploader:          up,
		Log:               util.NewLogger("test", logging.DEBUG, buf),
		SecurityTag:       "open",
		DataFolder:        root,
		Bucket:            "tenant.package.upload",
		MaxSubmissions:    10,
		DeleteAfterUpload: true,
	}
}

func TestRunEndToEnd(t *testing.T) {
	root := t.TempDir()
	bagdir := makeSubmission(t, root, "A", "B", "sub1", "Source-Organization: KAUST\nDC_Title: Foo\nDC_description: Bar\n")
	mem := catalog.NewMemory()
	up := &recordingUploader{}
	var buf bytes.Buffer
	d := newDriver(root, mem, up, &buf)
	d.Progress = func(name string) upload.Progress {
		if name != "sub1.zip" {
			t.Errorf("Received progress for %s, expected sub1.zip", name)
		}
		return func(sent, total int64) {}
	}

	summary, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	folders := mem.Folders()
	if len(folders) != 2 {
		t.Fatalf("Received %v, expected 2 folders", folders)
	}
	a, b := folders[0], folders[1]
	if a.Title != "A" || a.Description != "A" || a.Parent != "" || a.SecurityTag != "open" {
		t.Errorf("Received %+v for folder A", a)
	}
	if b.Title != "B" || b.Parent != a.Ref {
		t.Errorf("Received %+v for folder B", b)
	}
	for _, f := range folders {
		ids := mem.Identifiers(f.Ref)
		if len(ids) != 1 || ids[0].Namespace != "code" || ids[0].Value != f.Title {
			t.Errorf("Received identifiers %v for %s", ids, f.Title)
		}
	}

	if len(up.calls) != 1 {
		t.Fatalf("Received %d uploads, expected 1", len(up.calls))
	}
	call := up.calls[0]
	if call.folder != b.Ref || call.bucket != "tenant.package.upload" || !call.deleteAfter || !call.progress {
		t.Errorf("Received %+v", call)
	}
	if call.path != filepath.Join(root, "A", "B", "sub1.zip") {
		t.Errorf("Received path %s", call.path)
	}
	r, err := bagit.NewReader(bytes.NewReader(call.zip), int64(len(call.zip)))
	if err != nil {
		t.Fatal(err)
	}
	meta, err := r.ReadAll("sub1.metadata")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(meta, []byte("<Title>Foo</Title><ScopeAndContent>Bar</ScopeAndContent>")) {
		t.Errorf("Received metadata %s", meta)
	}
	if !r.Pending() {
		t.Errorf("Archived bagit.txt is not commented out")
	}

	if summary.Uploaded != 1 || summary.FoldersCreated != 2 || summary.Skipped != 0 || summary.CapReached {
		t.Errorf("Received %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(bagdir, "sub1.metadata")); !os.IsNotExist(err) {
		t.Errorf("Metadata file left behind, err = %v", err)
	}
	disk, _ := ioutil.ReadFile(filepath.Join(bagdir, "bagit.txt"))
	if string(disk) != declaration {
		t.Errorf("Received %q on disk, expected %q", disk, declaration)
	}

	out := buf.String()
	for _, line := range []string{
		"Packages will be created from folders in " + root,
		"Found A Folder",
		"Found B Folder",
		"Uploading sub1 to S3 bucket tenant.package.upload",
	} {
		if !strings.Contains(out, line) {
			t.Errorf("Log is missing %q:\n%s", line, out)
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	root := t.TempDir()
	makeSubmission(t, root, "A", "B", "sub1", "DC_Title: Foo\n")
	makeSubmission(t, root, "A", "C", "sub2", "DC_Title: Foo\n")
	mem := catalog.NewMemory()
	cat := &countingCatalog{Memory: mem}
	up := &recordingUploader{ingest: mem}
	var buf bytes.Buffer

	summary, err := newDriver(root, cat, up, &buf).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cat.creates != 3 || cat.adds != 3 || summary.Uploaded != 2 {
		t.Errorf("First run: Received %d creates, %d adds, %+v", cat.creates, cat.adds, summary)
	}

	cat.creates, cat.adds = 0, 0
	buf.Reset()
	summary, err = newDriver(root, cat, up, &buf).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cat.creates != 0 || cat.adds != 0 {
		t.Errorf("Second run: Received %d creates, %d adds, expected none", cat.creates, cat.adds)
	}
	if summary.Uploaded != 0 || summary.Skipped != 2 || summary.FoldersReused != 3 {
		t.Errorf("Second run: Received %+v", summary)
	}
	if len(up.calls) != 2 {
		t.Errorf("Received %d uploads, expected 2", len(up.calls))
	}
	if !strings.Contains(buf.String(), "skipping folder sub1") {
		t.Errorf("Log is missing skip line:\n%s", buf.String())
	}
}

func TestRunSkip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	bagdir := makeSubmission(t, root, "A", "B", "sub1", "DC_Title: Foo\n")
	mem := catalog.NewMemory()
	mem.AddAsset(ctx, "sub1", "")
	up := &recordingUploader{}
	var buf bytes.Buffer

	summary, err := newDriver(root, mem, up, &buf).Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(up.calls) != 0 || summary.Skipped != 1 {
		t.Errorf("Received %d uploads, %+v", len(up.calls), summary)
	}
	for _, fname := range []string{
		filepath.Join(root, "A", "B", "sub1.zip"),
		filepath.Join(bagdir, "sub1.metadata"),
	} {
		if _, err := os.Stat(fname); !os.IsNotExist(err) {
			t.Errorf("%s exists, err = %v", fname, err)
		}
	}
}

func TestRunCap(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"s1", "s2", "s3", "s4", "s5"} {
		makeSubmission(t, root, "A", "B", name, "")
	}
	makeSubmission(t, root, "A", "C", "s6", "")
	mem := catalog.NewMemory()
	up := &recordingUploader{}
	var buf bytes.Buffer
	d := newDriver(root, mem, up, &buf)
	d.MaxSubmissions = 2
	d.DeleteAfterUpload = false

	summary, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(up.calls) != 2 || summary.Uploaded != 2 || !summary.CapReached {
		t.Fatalf("Received %d uploads, %+v", len(up.calls), summary)
	}
	for i, name := range []string{"s1.zip", "s2.zip"} {
		if filepath.Base(up.calls[i].path) != name {
			t.Errorf("Received upload %s, expected %s", up.calls[i].path, name)
		}
	}
	// the rest are untouched
	for _, name := range []string{"B/s3.zip", "B/s4.zip", "B/s5.zip", "C/s6.zip"} {
		if _, err := os.Stat(filepath.Join(root, "A", filepath.FromSlash(name))); !os.IsNotExist(err) {
			t.Errorf("%s exists, err = %v", name, err)
		}
	}
	// later level 2 folders are still reconciled
	if n := len(mem.Folders()); n != 3 {
		t.Errorf("Received %d folders, expected 3", n)
	}
}

func TestRunParentFolder(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	makeSubmission(t, root, "A", "B", "sub1", "")
	mem := catalog.NewMemory()
	top, _ := mem.CreateFolder(ctx, "Top", "Top", "open", "")
	var buf bytes.Buffer
	d := newDriver(root, mem, &recordingUploader{}, &buf)
	d.ParentFolder = top.Ref

	if _, err := d.Run(ctx); err != nil {
		t.Fatal(err)
	}
	folders := mem.Folders()
	if len(folders) != 3 || folders[1].Title != "A" || folders[1].Parent != top.Ref {
		t.Errorf("Received %+v", folders)
	}
	if !strings.Contains(buf.String(), "Packages will be ingested into Top") {
		t.Errorf("Log is missing parent line:\n%s", buf.String())
	}

	d.ParentFolder = "missing"
	_, err := d.Run(ctx)
	if errors.Cause(err) != catalog.ErrNotFound {
		t.Errorf("Received %v, expected %v", err, catalog.ErrNotFound)
	}
}

func TestRunIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	makeSubmission(t, root, "A", "B", "sub1", "")
	for _, name := range []string{"readme.txt", "A/notes.txt", "A/B/old.zip"} {
		ioutil.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte("x"), 0644)
	}
	up := &recordingUploader{}
	var buf bytes.Buffer
	summary, err := newDriver(root, catalog.NewMemory(), up, &buf).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Uploaded != 1 || summary.FoldersCreated != 2 {
		t.Errorf("Received %+v", summary)
	}
}

func TestRunUploadError(t *testing.T) {
	root := t.TempDir()
	makeSubmission(t, root, "A", "B", "sub1", "")
	up := &recordingUploader{err: errors.New("connection reset")}
	var buf bytes.Buffer
	summary, err := newDriver(root, catalog.NewMemory(), up, &buf).Run(context.Background())
	if err == nil {
		t.Fatalf("Expected an error")
	}
	if summary.Uploaded != 0 {
		t.Errorf("Received %+v", summary)
	}
}

func TestRunMissingDataFolder(t *testing.T) {
	var buf bytes.Buffer
	d := newDriver(filepath.Join(t.TempDir(), "missing"), catalog.NewMemory(), &recordingUploader{}, &buf)
	if _, err := d.Run(context.Background()); err == nil {
		t.Errorf("Expected an error")
	}
}
