package installer

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/RainOrigami/ModIoManager/modio"
)

// makeZip builds an in-memory zip archive from a name-to-content map.
func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip entry: %v", err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write zip entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
	return buf.Bytes()
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

type installFixture struct {
	installer *Installer
	modsDir   string
	mod       *modio.Mod
	downloads *atomic.Int64
}

// newInstallFixture serves archive at an httptest endpoint and builds a mod
// record pointing at it, declaring declaredMD5 as the expected hash.
func newInstallFixture(t *testing.T, archive []byte, declaredMD5 string) *installFixture {
	t.Helper()

	var downloads atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads.Add(1)
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)

	root := t.TempDir()
	modsDir := filepath.Join(root, "mods")
	downloadDir := filepath.Join(root, "download")

	client := modio.NewClient(server.URL, "", "modio-manager/test", 50)
	mod := &modio.Mod{
		ID:   42,
		Name: "Test Mod",
		Platforms: []modio.Platform{
			{Platform: "windows", ModfileLive: 4711},
		},
		Modfile: modio.ModFile{
			ID:       4711,
			Filename: "testmod.zip",
			Filesize: int64(len(archive)),
			Filehash: modio.FileHash{MD5: declaredMD5},
			Download: modio.Download{BinaryURL: server.URL + "/testmod.zip"},
		},
	}

	return &installFixture{
		installer: New(client, modsDir, downloadDir, "windows", nil),
		modsDir:   modsDir,
		mod:       mod,
		downloads: &downloads,
	}
}

func TestInstall(t *testing.T) {
	archive := makeZip(t, map[string]string{
		"mod.pak":         "pak bytes",
		"assets/tex.uexp": "texture bytes",
	})
	fx := newInstallFixture(t, archive, md5Hex(archive))

	if err := fx.installer.Install(context.Background(), fx.mod, nil); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	installPath := fx.installer.InstallPath(42)
	for entry, want := range map[string]string{
		filepath.Join(DataDirName, "mod.pak"):            "pak bytes",
		filepath.Join(DataDirName, "assets", "tex.uexp"): "texture bytes",
	} {
		got, err := os.ReadFile(filepath.Join(installPath, entry))
		if err != nil {
			t.Fatalf("Missing installed file %s: %v", entry, err)
		}
		if string(got) != want {
			t.Errorf("File %s content mismatch: %q", entry, got)
		}
	}

	taint, err := os.ReadFile(filepath.Join(installPath, TaintFileName))
	if err != nil {
		t.Fatalf("Missing taint marker: %v", err)
	}
	if string(taint) != "4711" {
		t.Errorf("Expected taint 4711, got %q", taint)
	}

	// The downloaded archive must not linger after installation.
	entries, err := os.ReadDir(filepath.Join(fx.modsDir, "..", "download"))
	if err != nil {
		t.Fatalf("Failed to read download directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected an empty download directory, found %d entries", len(entries))
	}
}

func TestInstallRejectsHashMismatch(t *testing.T) {
	archive := makeZip(t, map[string]string{"mod.pak": "pak bytes"})
	fx := newInstallFixture(t, archive, "deadbeefdeadbeefdeadbeefdeadbeef")

	err := fx.installer.Install(context.Background(), fx.mod, nil)

	var integrityErr *IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("Expected IntegrityError, got %v", err)
	}
	if integrityErr.Expected != "deadbeefdeadbeefdeadbeefdeadbeef" {
		t.Errorf("Unexpected expected hash: %s", integrityErr.Expected)
	}
	if integrityErr.Actual != md5Hex(archive) {
		t.Errorf("Unexpected actual hash: %s", integrityErr.Actual)
	}

	// Mismatch means no retry: one download, artifact deleted, nothing installed.
	if fx.downloads.Load() != 1 {
		t.Errorf("Expected exactly one download, got %d", fx.downloads.Load())
	}
	if _, err := os.Stat(fx.installer.InstallPath(42)); !os.IsNotExist(err) {
		t.Error("Expected no install directory after integrity failure")
	}
	archivePath := filepath.Join(fx.modsDir, "..", "download", "UGC42", "testmod.zip")
	if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
		t.Error("Expected the corrupted artifact to be deleted")
	}
}

func TestInstallHashComparisonIsCaseInsensitive(t *testing.T) {
	archive := makeZip(t, map[string]string{"mod.pak": "pak bytes"})
	fx := newInstallFixture(t, archive, strings.ToUpper(md5Hex(archive)))

	if err := fx.installer.Install(context.Background(), fx.mod, nil); err != nil {
		t.Fatalf("Expected an uppercase declared hash to verify, got: %v", err)
	}
}

func TestInstallUnsupportedPlatform(t *testing.T) {
	archive := makeZip(t, map[string]string{"mod.pak": "pak bytes"})
	fx := newInstallFixture(t, archive, md5Hex(archive))
	fx.mod.Platforms = []modio.Platform{{Platform: "ps5", ModfileLive: 4711}}

	err := fx.installer.Install(context.Background(), fx.mod, nil)
	if !errors.Is(err, ErrPlatformUnsupported) {
		t.Fatalf("Expected ErrPlatformUnsupported, got %v", err)
	}
	if fx.downloads.Load() != 0 {
		t.Errorf("Expected no download for an unsupported platform, got %d", fx.downloads.Load())
	}
}

func TestInstallReplacesPreviousVersion(t *testing.T) {
	archive := makeZip(t, map[string]string{"new.pak": "new bytes"})
	fx := newInstallFixture(t, archive, md5Hex(archive))

	// A previously installed version with different contents.
	oldData := filepath.Join(fx.installer.InstallPath(42), DataDirName)
	if err := os.MkdirAll(oldData, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(oldData, "old.pak"), []byte("old bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fx.installer.InstallPath(42), TaintFileName), []byte("1"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := fx.installer.Install(context.Background(), fx.mod, nil); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(oldData, "old.pak")); !os.IsNotExist(err) {
		t.Error("Expected the previous version to be removed")
	}
	if _, err := os.Stat(filepath.Join(oldData, "new.pak")); err != nil {
		t.Errorf("Expected the new version to be installed: %v", err)
	}
	taint, err := os.ReadFile(filepath.Join(fx.installer.InstallPath(42), TaintFileName))
	if err != nil || string(taint) != "4711" {
		t.Errorf("Expected taint 4711 after replacement, got %q (%v)", taint, err)
	}
}

func TestInstallKeepsPreviousVersionOnExtractionFailure(t *testing.T) {
	// Correctly hashed but not a zip archive, so extraction fails after the
	// integrity check passes.
	garbage := []byte("this is not a zip archive")
	fx := newInstallFixture(t, garbage, md5Hex(garbage))

	oldData := filepath.Join(fx.installer.InstallPath(42), DataDirName)
	if err := os.MkdirAll(oldData, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(oldData, "old.pak"), []byte("old bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	err := fx.installer.Install(context.Background(), fx.mod, nil)
	if err == nil {
		t.Fatal("Expected extraction to fail")
	}

	if _, statErr := os.Stat(filepath.Join(oldData, "old.pak")); statErr != nil {
		t.Error("Expected the previous version to survive a failed install")
	}
}

func TestRemove(t *testing.T) {
	archive := makeZip(t, map[string]string{"mod.pak": "pak bytes"})
	fx := newInstallFixture(t, archive, md5Hex(archive))

	if err := fx.installer.Install(context.Background(), fx.mod, nil); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if err := fx.installer.Remove(42); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(fx.installer.InstallPath(42)); !os.IsNotExist(err) {
		t.Error("Expected the install directory to be gone")
	}

	// Removing again is a no-op.
	if err := fx.installer.Remove(42); err != nil {
		t.Errorf("Expected repeated removal to succeed, got %v", err)
	}
}

func TestConcurrentInstallsOfDifferentMods(t *testing.T) {
	archiveA := makeZip(t, map[string]string{"a.pak": "contents of mod a"})
	archiveB := makeZip(t, map[string]string{"b.pak": "contents of mod b"})

	// Mod A's download stalls mid-body until mod B has installed completely,
	// so B's whole pipeline runs while A's partial archive sits in scratch.
	aStarted := make(chan struct{})
	releaseA := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.zip":
			_, _ = w.Write(archiveA[:len(archiveA)/2])
			w.(http.Flusher).Flush()
			close(aStarted)
			<-releaseA
			_, _ = w.Write(archiveA[len(archiveA)/2:])
		case "/b.zip":
			_, _ = w.Write(archiveB)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	root := t.TempDir()
	client := modio.NewClient(server.URL, "", "modio-manager/test", 50)
	ins := New(client, filepath.Join(root, "mods"), filepath.Join(root, "download"), "windows", nil)

	makeMod := func(id int, name, file string, archive []byte) *modio.Mod {
		return &modio.Mod{
			ID:        id,
			Name:      name,
			Platforms: []modio.Platform{{Platform: "windows", ModfileLive: id * 10}},
			Modfile: modio.ModFile{
				ID:       id * 10,
				Filename: file,
				Filesize: int64(len(archive)),
				Filehash: modio.FileHash{MD5: md5Hex(archive)},
				Download: modio.Download{BinaryURL: server.URL + "/" + file},
			},
		}
	}
	modA := makeMod(1, "Stalled Mod", "a.zip", archiveA)
	modB := makeMod(2, "Fast Mod", "b.zip", archiveB)

	errA := make(chan error, 1)
	go func() {
		errA <- ins.Install(context.Background(), modA, nil)
	}()

	<-aStarted
	if err := ins.Install(context.Background(), modB, nil); err != nil {
		t.Fatalf("Install of second mod failed: %v", err)
	}
	close(releaseA)
	if err := <-errA; err != nil {
		t.Fatalf("Install of stalled mod failed: %v", err)
	}

	for modID, entry := range map[int]string{1: "a.pak", 2: "b.pak"} {
		path := filepath.Join(ins.InstallPath(modID), DataDirName, entry)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected mod %d to be installed intact: %v", modID, err)
		}
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	entry, err := writer.Create("../escape.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.Write([]byte("escaped")); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	archivePath := filepath.Join(root, "evil.zip")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(root, "dest")
	if err := extractZip(archivePath, dest, nil); err == nil {
		t.Fatal("Expected a path traversal entry to be rejected")
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); !os.IsNotExist(err) {
		t.Error("Expected no file outside the destination directory")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:          "0 B",
		512:        "512 B",
		2048:       "2.0 KB",
		1536:       "1.5 KB",
		3145728:    "3.0 MB",
		5368709120: "5.0 GB",
	}
	for n, want := range cases {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
