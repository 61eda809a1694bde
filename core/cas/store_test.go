package cas

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewStore(root)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, root
}

// TestPutAndGet tests that a stored binary is returned byte for byte under
// its identifier.
func TestPutAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.MustParse("c0ffee00-0000-4000-8000-000000000001")
	data := []byte("\xff\xd8\xff\xe0 cover image bytes")

	ref, err := store.Put(id, data)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	h := sha256.Sum256(data)
	if ref.SHA256 != hex.EncodeToString(h[:]) {
		t.Errorf("SHA256 = %s, want %s", ref.SHA256, hex.EncodeToString(h[:]))
	}
	if ref.ID != id || ref.Size != int64(len(data)) {
		t.Errorf("ref = %+v", ref)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}
	if !store.Has(id) {
		t.Error("Has() = false after Put")
	}
}

func TestBlobPath(t *testing.T) {
	store, root := newTestStore(t)
	id := uuid.MustParse("6f1e0c4a-1b7e-4a39-9a4a-3e7f1f6c2b10")
	if _, err := store.Put(id, []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	want := filepath.Join(root, "binaries", "6f", id.String())
	if _, err := os.Stat(want); err != nil {
		t.Errorf("blob not at %s: %v", want, err)
	}
	if store.Root() != root {
		t.Errorf("Root() = %q, want %q", store.Root(), root)
	}
}

func TestPutReplaces(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()

	if _, err := store.Put(id, []byte("first")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := store.Put(id, []byte("second")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Get() = %q, want %q", got, "second")
	}
}

func TestPutEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()

	ref, err := store.Put(id, nil)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ref.Size != 0 || ref.SHA256 != Hash([]byte{}) {
		t.Errorf("ref = %+v", ref)
	}
	got, err := store.Get(id)
	if err != nil || len(got) != 0 {
		t.Errorf("Get() = %q, %v", got, err)
	}
}

func TestGetNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()

	if _, err := store.Get(id); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Get() error = %v, want ErrBlobNotFound", err)
	}
	if store.Has(id) {
		t.Error("Has() = true for missing blob")
	}
}

func TestVerify(t *testing.T) {
	store, _ := newTestStore(t)
	id := uuid.New()
	ref, err := store.Put(id, []byte("binary"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	tests := []struct {
		name    string
		id      uuid.UUID
		hash    string
		wantErr error
		wantMsg string
	}{
		{"match", id, ref.SHA256, nil, ""},
		{"mismatch", id, Hash([]byte("other")), nil, "sha256 mismatch"},
		{"invalid hash", id, "not-a-hash", ErrInvalidHash, ""},
		{"missing blob", uuid.New(), ref.SHA256, ErrBlobNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Verify(tt.id, tt.hash)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantMsg != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
					t.Errorf("Verify() error = %v, want %q", err, tt.wantMsg)
				}
			default:
				if err != nil {
					t.Errorf("Verify() error = %v", err)
				}
			}
		})
	}
}

func TestGetReadError(t *testing.T) {
	store, root := newTestStore(t)
	id := uuid.New()

	// A directory where the blob should be makes ReadFile fail with
	// something other than ErrNotExist.
	name := id.String()
	if err := os.MkdirAll(filepath.Join(root, "binaries", name[:2], name), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	_, err := store.Get(id)
	if err == nil || errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Get() error = %v, want read error", err)
	}
}

func TestNewStoreMkdirError(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	if _, err := NewStore(file); err == nil {
		t.Error("expected error when root is a file")
	}
}

// TestPutInjectedErrors covers the atomic write failure paths for both the
// blob (first call) and its pointer file (second call).
func TestPutInjectedErrors(t *testing.T) {
	injected := errors.New("injected")
	tests := []struct {
		name    string
		inject  func(fail int) func()
		fail    int
		wantMsg string
	}{
		{
			name: "blob write",
			inject: func(fail int) func() {
				orig := tempFileWrite
				n := 0
				tempFileWrite = func(f *os.File, data []byte) (int, error) {
					if n++; n == fail {
						return 0, injected
					}
					return f.Write(data)
				}
				return func() { tempFileWrite = orig }
			},
			fail:    1,
			wantMsg: "failed to write",
		},
		{
			name: "blob close",
			inject: func(fail int) func() {
				orig := tempFileClose
				n := 0
				tempFileClose = func(f io.Closer) error {
					if n++; n == fail {
						f.Close()
						return injected
					}
					return f.Close()
				}
				return func() { tempFileClose = orig }
			},
			fail:    1,
			wantMsg: "failed to close temp file",
		},
		{
			name: "blob rename",
			inject: func(fail int) func() {
				orig := osRename
				n := 0
				osRename = func(oldpath, newpath string) error {
					if n++; n == fail {
						return injected
					}
					return os.Rename(oldpath, newpath)
				}
				return func() { osRename = orig }
			},
			fail:    1,
			wantMsg: "failed to rename",
		},
		{
			name: "pointer write",
			inject: func(fail int) func() {
				orig := tempFileWrite
				n := 0
				tempFileWrite = func(f *os.File, data []byte) (int, error) {
					if n++; n == fail {
						return 0, injected
					}
					return f.Write(data)
				}
				return func() { tempFileWrite = orig }
			},
			fail:    2,
			wantMsg: "failed to create BLAKE3 pointer",
		},
		{
			name: "pointer rename",
			inject: func(fail int) func() {
				orig := osRename
				n := 0
				osRename = func(oldpath, newpath string) error {
					if n++; n == fail {
						return injected
					}
					return os.Rename(oldpath, newpath)
				}
				return func() { osRename = orig }
			},
			fail:    2,
			wantMsg: "failed to create BLAKE3 pointer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			restore := tt.inject(tt.fail)
			defer restore()

			_, err := store.Put(uuid.New(), []byte("payload"))
			if !errors.Is(err, injected) {
				t.Fatalf("Put() error = %v, want injected error", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Put() error = %v, want %q", err, tt.wantMsg)
			}
		})
	}
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	store, root := newTestStore(t)
	orig := osRename
	defer func() { osRename = orig }()
	osRename = func(oldpath, newpath string) error {
		return errors.New("injected rename error")
	}

	id := uuid.New()
	if _, err := store.Put(id, []byte("payload")); err == nil {
		t.Fatal("expected error when rename fails")
	}

	entries, err := os.ReadDir(filepath.Join(root, "binaries", id.String()[:2]))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestHash(t *testing.T) {
	// SHA-256 of the empty string.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Hash(nil); got != empty {
		t.Errorf("Hash(nil) = %s, want %s", got, empty)
	}
}
