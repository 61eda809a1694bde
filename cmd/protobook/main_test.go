package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/protobook/core/book"
	"github.com/FocuswithJustin/protobook/core/cas"
	"github.com/FocuswithJustin/protobook/core/errors"
	"github.com/FocuswithJustin/protobook/internal/catalog"
	"github.com/FocuswithJustin/protobook/internal/config"
)

const (
	fixturePath = "../../core/fb2/testdata/makarenko.fb2"
	fixtureID   = "6f1e0c4a-1b7e-4a39-9a4a-3e7f1f6c2b10"
	fixtureName = "Педагогическая поэма. Полная версия"
)

// Test helper functions

// setupCLI points the global flags at a config file in a temp dir and
// captures command output.
func setupCLI(t *testing.T, configYAML string) (dir string, out *bytes.Buffer) {
	t.Helper()
	dir = t.TempDir()
	cfgPath := filepath.Join(dir, "protobook.yaml")
	if configYAML != "" {
		if err := os.WriteFile(cfgPath, []byte(configYAML), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
	}

	origCLI := CLI
	CLI.Config = cfgPath
	CLI.LogLevel = "error"
	CLI.LogFormat = ""

	origStdout := stdout
	out = &bytes.Buffer{}
	stdout = out

	t.Cleanup(func() {
		CLI = origCLI
		stdout = origStdout
	})
	return dir, out
}

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	return data
}

func createTestFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func decodeBookFile(t *testing.T, path string) *book.Book {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()
	b, err := book.Decode(f, "")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return b
}

// Tests for ConvertCmd

func TestConvertCmd_Run(t *testing.T) {
	dir, out := setupCLI(t, "")
	outPath := filepath.Join(dir, "book.json")
	blobs := filepath.Join(dir, "blobs")

	cmd := &ConvertCmd{Path: fixturePath, Out: outPath, ID: fixtureID, Blobs: blobs, Workers: 2}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	b := decodeBookFile(t, outPath)
	if b.ID != fixtureID || b.ShortTitle != fixtureName {
		t.Errorf("book = %s %q", b.ID, b.ShortTitle)
	}
	if errs := book.ValidateBook(b); len(errs) != 0 {
		t.Errorf("ValidateBook() = %v", errs)
	}

	if !strings.Contains(out.String(), "Stored 2 binaries") {
		t.Errorf("output = %q", out.String())
	}
	store, err := cas.NewStore(blobs)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if b.Cover == nil {
		t.Fatal("book has no cover")
	}
	if _, err := store.LookupBlake3(cas.Blake3Hash([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0x4a, 0x46, 0x49, 0x46, 0x00, 0x01, 0x01})); err != nil {
		t.Errorf("cover blob not stored: %v", err)
	}
}

func TestConvertCmd_XZ(t *testing.T) {
	dir, _ := setupCLI(t, "")
	outPath := filepath.Join(dir, "book.json.xz")

	if err := (&ConvertCmd{Path: fixturePath, Out: outPath, XZ: true}).Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}) {
		t.Error("output is not an xz stream")
	}
	if b := decodeBookFile(t, outPath); b.ShortTitle != fixtureName {
		t.Errorf("ShortTitle = %q", b.ShortTitle)
	}
}

func TestConvertCmd_ConfigCompressionAndDefaultOut(t *testing.T) {
	dir, _ := setupCLI(t, "output:\n  compression: xz\n")
	input := createTestFile(t, dir, "poem.fb2", readFixture(t))

	if err := (&ConvertCmd{Path: input}).Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "poem.json.xz")); err != nil {
		t.Errorf("default output missing: %v", err)
	}
}

func TestConvertCmd_InvalidID(t *testing.T) {
	dir, _ := setupCLI(t, "")
	err := (&ConvertCmd{Path: fixturePath, Out: filepath.Join(dir, "x.json"), ID: "not-a-uuid"}).Run()
	if err == nil || !strings.Contains(err.Error(), "invalid --id") {
		t.Errorf("Run() error = %v, want invalid id", err)
	}
}

func TestConvertCmd_InvalidConfig(t *testing.T) {
	dir, _ := setupCLI(t, "convert:\n  workers: 0\n")
	err := (&ConvertCmd{Path: fixturePath, Out: filepath.Join(dir, "x.json")}).Run()
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Run() error = %v, want config validation error", err)
	}
}

// Tests for readSource

func TestReadSource_Containers(t *testing.T) {
	dir := t.TempDir()
	fixture := readFixture(t)

	var zipped bytes.Buffer
	zw := zip.NewWriter(&zipped)
	w, err := zw.Create("makarenko.fb2")
	if err != nil {
		t.Fatalf("zip Create() error = %v", err)
	}
	w.Write(fixture)
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}

	var packed bytes.Buffer
	xw, err := xz.NewWriter(&packed)
	if err != nil {
		t.Fatalf("xz.NewWriter() error = %v", err)
	}
	xw.Write(fixture)
	if err := xw.Close(); err != nil {
		t.Fatalf("xz Close() error = %v", err)
	}

	tests := []struct {
		name    string
		file    string
		content []byte
	}{
		{"plain", "book.fb2", fixture},
		{"zip", "book.fb2.zip", zipped.Bytes()},
		{"xz", "book.fb2.xz", packed.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := readSource(createTestFile(t, dir, tt.file, tt.content))
			if err != nil {
				t.Fatalf("readSource() error = %v", err)
			}
			if src.Description.TitleInfo.BookTitle != fixtureName {
				t.Errorf("BookTitle = %q", src.Description.TitleInfo.BookTitle)
			}
			if len(src.Binaries) != 2 {
				t.Errorf("binaries = %d, want 2", len(src.Binaries))
			}
		})
	}
}

func TestReadSource_Errors(t *testing.T) {
	dir := t.TempDir()

	var noFB2 bytes.Buffer
	zw := zip.NewWriter(&noFB2)
	for _, name := range []string{"readme.txt", "cover.jpg"} {
		w, _ := zw.Create(name)
		w.Write([]byte("x"))
	}
	zw.Close()

	tests := []struct {
		name    string
		file    string
		content []byte
		check   func(error) bool
	}{
		{"binary", "book.bin", []byte{0x00, 0x01, 0x02}, func(err error) bool { return errors.Is(err, errors.ErrUnsupported) }},
		{"zip without fb2", "book.zip", noFB2.Bytes(), func(err error) bool { return errors.Is(err, errors.ErrNotFound) }},
		{"malformed xml", "book.fb2", []byte("<FictionBook><body>"), func(err error) bool {
			var pe *errors.ParseError
			return errors.As(err, &pe) && pe.Format == "FB2"
		}},
		{"wrong root", "book.fb2", []byte("<html/>"), func(err error) bool {
			var pe *errors.ParseError
			return errors.As(err, &pe)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readSource(createTestFile(t, dir, tt.file, tt.content))
			if err == nil || !tt.check(err) {
				t.Errorf("readSource() error = %v", err)
			}
		})
	}

	if _, err := readSource(filepath.Join(dir, "missing.fb2")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("readSource(missing) error = %v", err)
	}
	if _, err := readSource(""); err == nil {
		t.Error("readSource(\"\") error = nil")
	}
}

// Tests for InfoCmd and ValidateCmd

func TestInfoCmd_Run(t *testing.T) {
	_, out := setupCLI(t, "")

	if err := (&InfoCmd{Path: fixturePath, ID: fixtureID}).Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, want := range []string{
		"id: " + fixtureID,
		"short_title: " + fixtureName,
		"iso_date: 1936-01-01",
		"display_date: 1936",
		"language: ru",
		"binaries: 2",
		"notes: 1, comments: 1",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestInfoCmd_JSON(t *testing.T) {
	_, out := setupCLI(t, "")

	if err := (&InfoCmd{Path: fixturePath, ID: fixtureID, JSON: true}).Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	var info infoOutput
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if info.ID != fixtureID || info.ShortTitle != fixtureName || info.ISODate != "1936-01-01" {
		t.Errorf("info = %+v", info)
	}
	if info.Stats.Chapters != 3 || info.Stats.Notes != 1 {
		t.Errorf("stats = %+v", info.Stats)
	}
}

func TestValidateCmd_Run(t *testing.T) {
	dir, out := setupCLI(t, "")

	var packed bytes.Buffer
	xw, err := xz.NewWriter(&packed)
	if err != nil {
		t.Fatalf("xz.NewWriter() error = %v", err)
	}
	xw.Write(readFixture(t))
	if err := xw.Close(); err != nil {
		t.Fatalf("xz Close() error = %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
		want    string
	}{
		{"fixture", fixturePath, false, "OK"},
		{"xz", createTestFile(t, dir, "book.fb2.xz", packed.Bytes()), false, "OK"},
		{"unclosed element", createTestFile(t, dir, "broken.fb2", []byte(
			"<FictionBook>\n<body>\n<section><p>Текст</section>\n</body>\n</FictionBook>\n")), true, "line 3:"},
		{"undeclared entity", createTestFile(t, dir, "entity.fb2", []byte(
			"<FictionBook>\n<body><p>&nbsp;</p></body>\n</FictionBook>\n")), true, "line 2:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := (&ValidateCmd{Path: tt.path}).Run()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v\n%s", err, tt.wantErr, out.String())
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

// Tests for the catalog commands

func TestCatalogCommands(t *testing.T) {
	dir, out := setupCLI(t, "")
	db := filepath.Join(dir, "catalog.db")
	CLI.Config = createTestFile(t, dir, "protobook.yaml", []byte(
		"catalog:\n  path: "+db+"\nblobs:\n  dir: "+filepath.Join(dir, "blobs")+"\n"))

	if err := (&CatalogAddCmd{Path: fixturePath, ID: fixtureID}).Run(); err != nil {
		t.Fatalf("add error = %v", err)
	}
	if !strings.Contains(out.String(), "Added "+fixtureID) {
		t.Errorf("add output = %q", out.String())
	}

	out.Reset()
	if err := (&CatalogListCmd{}).Run(); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out.String(), fixtureName) || !strings.Contains(out.String(), "Антон Семёнович Макаренко") {
		t.Errorf("list output = %q", out.String())
	}

	out.Reset()
	if err := (&CatalogShowCmd{ID: fixtureID}).Run(); err != nil {
		t.Fatalf("show error = %v", err)
	}
	var entry catalog.Entry
	if err := json.Unmarshal(out.Bytes(), &entry); err != nil {
		t.Fatalf("show output is not JSON: %v", err)
	}
	if entry.ID != fixtureID || entry.ISODate != "1936-01-01" {
		t.Errorf("entry = %+v", entry)
	}

	out.Reset()
	if err := (&CatalogShowCmd{ID: fixtureID, Book: true}).Run(); err != nil {
		t.Fatalf("show --book error = %v", err)
	}
	b, err := book.Decode(bytes.NewReader(out.Bytes()), book.CompressionNone)
	if err != nil {
		t.Fatalf("show --book output: %v", err)
	}
	if b.Notes == nil || len(b.Notes.Content) != 1 {
		t.Errorf("stored book notes = %+v", b.Notes)
	}

	out.Reset()
	if err := (&CatalogShowCmd{ID: fixtureID, Verify: true}).Run(); err != nil {
		t.Fatalf("show --verify error = %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "2 binaries OK") {
		t.Errorf("show --verify output = %q", out.String())
	}

	cat, err := catalog.OpenReadOnly(db)
	if err != nil {
		t.Fatalf("OpenReadOnly() error = %v", err)
	}
	bins, err := cat.Binaries(context.Background(), fixtureID)
	cat.Close()
	if err != nil || len(bins) != 2 {
		t.Fatalf("Binaries() = %v, %v", bins, err)
	}
	blobPath := filepath.Join(dir, "blobs", "binaries", bins[0].BlobID[:2], bins[0].BlobID)
	if err := os.WriteFile(blobPath, []byte("damaged"), 0644); err != nil {
		t.Fatalf("failed to damage blob: %v", err)
	}
	out.Reset()
	if err := (&CatalogShowCmd{ID: fixtureID, Verify: true}).Run(); err == nil {
		t.Error("show --verify accepted a damaged blob")
	}
	if !strings.Contains(out.String(), "sha256 mismatch") {
		t.Errorf("show --verify output = %q", out.String())
	}
	os.Remove(blobPath)
	out.Reset()
	if err := (&CatalogShowCmd{ID: fixtureID, Verify: true}).Run(); err == nil {
		t.Error("show --verify accepted a missing blob")
	}
	if !strings.Contains(out.String(), bins[0].BlobID+": missing") {
		t.Errorf("show --verify output = %q", out.String())
	}

	if err := (&CatalogRmCmd{ID: fixtureID}).Run(); err != nil {
		t.Fatalf("rm error = %v", err)
	}
	if err := (&CatalogRmCmd{ID: fixtureID}).Run(); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second rm error = %v, want ErrNotFound", err)
	}

	out.Reset()
	if err := (&CatalogListCmd{JSON: true}).Run(); err != nil {
		t.Fatalf("list --json error = %v", err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("list --json after rm = %q", out.String())
	}
}

func TestCatalogFlagsOverrideConfig(t *testing.T) {
	dir, out := setupCLI(t, "blobs:\n  dir: "+filepath.Join(t.TempDir(), "blobs")+"\n")
	db := filepath.Join(dir, "other.db")
	flags := CatalogFlags{DB: db}

	if err := (&CatalogListCmd{CatalogFlags: flags}).Run(); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out.String(), "No books") {
		t.Errorf("output = %q", out.String())
	}
	if err := (&CatalogShowCmd{CatalogFlags: flags, ID: fixtureID}).Run(); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("show error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Errorf("read-only commands created %s", db)
	}

	if err := (&CatalogAddCmd{CatalogFlags: flags, Path: fixturePath, ID: fixtureID}).Run(); err != nil {
		t.Fatalf("add error = %v", err)
	}
	out.Reset()
	if err := (&CatalogListCmd{CatalogFlags: flags}).Run(); err != nil {
		t.Fatalf("list error = %v", err)
	}
	if !strings.Contains(out.String(), fixtureID) {
		t.Errorf("list output = %q", out.String())
	}
}

// Tests for BlobCmd

func TestBlobCmd_Run(t *testing.T) {
	dir, out := setupCLI(t, "")
	blobs := filepath.Join(dir, "blobs")
	store, err := cas.NewStore(blobs)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	data := []byte{0xff, 0xd8, 0xff, 0xe0}
	ref, err := store.Put(uuid.MustParse(fixtureID), data)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	tests := []struct {
		name    string
		ref     string
		out     string
		wantErr bool
	}{
		{"by id", ref.ID.String(), "", false},
		{"by blake3", ref.BLAKE3, "", false},
		{"by upper-case blake3", strings.ToUpper(ref.BLAKE3), "", false},
		{"to file", ref.ID.String(), filepath.Join(dir, "cover.jpg"), false},
		{"unknown id", "00000000-0000-0000-0000-000000000001", "", true},
		{"unknown hash", strings.Repeat("0", 64), "", true},
		{"malformed ref", "cover.jpg", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := (&BlobCmd{Ref: tt.ref, Out: tt.out, Dir: blobs}).Run()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := out.Bytes()
			if tt.out != "" {
				if got, err = os.ReadFile(tt.out); err != nil {
					t.Fatalf("ReadFile() error = %v", err)
				}
			}
			if !bytes.Equal(got, data) {
				t.Errorf("blob = %x, want %x", got, data)
			}
		})
	}
}

func TestVersionCmd_Run(t *testing.T) {
	_, out := setupCLI(t, "")
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out.String(), "protobook version "+version) {
		t.Errorf("output = %q", out.String())
	}
}

func TestKongParse(t *testing.T) {
	setupCLI(t, "")
	tests := []struct {
		args  []string
		want  string
		bound func() bool
	}{
		{[]string{"convert", fixturePath, "--xz", "--workers", "4"}, "convert <path>", func() bool {
			return CLI.Convert.XZ && CLI.Convert.Workers == 4
		}},
		{[]string{"info", fixturePath, "--json"}, "info <path>", func() bool { return CLI.Info.JSON }},
		{[]string{"catalog", "list", "--db", "x.db"}, "catalog list", func() bool { return CLI.Catalog.List.DB != "" }},
		{[]string{"catalog", "rm", fixtureID}, "catalog rm <id>", func() bool { return CLI.Catalog.Rm.ID == fixtureID }},
		{[]string{"catalog", "show", fixtureID, "--verify"}, "catalog show <id>", func() bool { return CLI.Catalog.Show.Verify }},
		{[]string{"blob", fixtureID, "-o", "cover.jpg"}, "blob <ref>", func() bool { return CLI.Blob.Out != "" }},
		{[]string{"--log-level", "debug", "version"}, "version", func() bool { return CLI.LogLevel == "debug" }},
	}
	for _, tt := range tests {
		parser, err := kong.New(&CLI, kong.Vars{"config_path": config.DefaultPath})
		if err != nil {
			t.Fatalf("kong.New() error = %v", err)
		}
		ctx, err := parser.Parse(tt.args)
		if err != nil {
			t.Errorf("Parse(%v) error = %v", tt.args, err)
			continue
		}
		if got := ctx.Command(); got != tt.want {
			t.Errorf("Parse(%v) command = %q, want %q", tt.args, got, tt.want)
		}
		if !tt.bound() {
			t.Errorf("Parse(%v) did not bind flags", tt.args)
		}
	}
}
