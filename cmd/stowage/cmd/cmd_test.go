package cmd

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/unkn0wn-root/stowage/filestore"
	"github.com/unkn0wn-root/stowage/kv"
)

// run executes the root command with a throwaway root directory and prefs file.
func run(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"--config", filepath.Join(dir, "absent.yaml"),
		"--root", filepath.Join(dir, "data"),
		"--kv-backend", "prefs",
		"--kv-path", filepath.Join(dir, "prefs.cbor"),
	}
	return execute(t, stdin, append(base, args...)...)
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags undoes earlier executions: cobra keeps flag values, and viper
// prefers a changed flag over its own defaults.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestPutGetRmKeyValue(t *testing.T) {
	dir := t.TempDir()

	if _, err := run(t, dir, "dark mode", "put", "theme", "-t", "kv"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "prefs.cbor")); err != nil {
		t.Fatalf("prefs snapshot not written: %v", err)
	}

	// a separate invocation reads it back from the snapshot file
	out, err := run(t, dir, "", "get", "theme", "-t", "kv")
	if err != nil || out != "dark mode" {
		t.Fatalf("get = %q, %v", out, err)
	}

	if _, err := run(t, dir, "", "rm", "theme", "-t", "kv"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := run(t, dir, "", "get", "theme", "-t", "kv"); !errors.Is(err, errNotFound) {
		t.Fatalf("get after rm: %v", err)
	}
}

func TestPutFileIntoDocuments(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, dir, "", "put", "note", src, "-t", "document")
	want := filepath.Join(dir, "data", "document", "note")
	if err != nil || strings.TrimSpace(out) != want {
		t.Fatalf("put = %q, %v (want path %q)", out, err, want)
	}

	dst := filepath.Join(dir, "copy.txt")
	if _, err := run(t, dir, "", "get", "note", "-t", "document", "-o", dst); err != nil {
		t.Fatalf("get: %v", err)
	}
	if b, _ := os.ReadFile(dst); string(b) != "hello" {
		t.Fatalf("copy = %q", b)
	}

	if _, err := run(t, dir, "", "rm", "note", "missing", "-t", "document"); err == nil {
		t.Fatalf("rm of a missing file should fail")
	}
	if _, err := os.Stat(want); !os.IsNotExist(err) {
		t.Fatalf("note not removed: %v", err)
	}
}

func TestImagePutGet(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 5, 3))
	for x := 0; x < 5; x++ {
		img.SetNRGBA(x, 1, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "in.png")
	if err := os.WriteFile(src, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, dir, "", "image", "put", "icon", src, "--format", "qoi", "-t", "cache"); err != nil {
		t.Fatalf("image put: %v", err)
	}
	stored, err := os.ReadFile(filepath.Join(dir, "data", "cache", "icon"))
	if err != nil || !bytes.HasPrefix(stored, []byte("qoif")) {
		t.Fatalf("stored payload is not QOI: %v", err)
	}

	dst := filepath.Join(dir, "out.png")
	if _, err := run(t, dir, "", "image", "get", "icon", dst, "-t", "cache"); err != nil {
		t.Fatalf("image get: %v", err)
	}
	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil || cfg.Width != 5 || cfg.Height != 3 {
		t.Fatalf("out.png = %+v, %v", cfg, err)
	}
}

func TestUnknownTarget(t *testing.T) {
	if _, err := run(t, t.TempDir(), "x", "put", "k", "-t", "tmp"); err == nil {
		t.Fatalf("unknown target accepted")
	}
}

func TestSQLiteBackendFromEnv(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "kv.db")
	t.Setenv("STOWAGE_SQLITE_PATH", db)

	if _, err := run(t, dir, "42", "put", "answer", "-t", "kv", "--kv-backend", "sqlite"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("sqlite file not created: %v", err)
	}
	out, err := run(t, dir, "", "get", "answer", "-t", "kv", "--kv-backend", "sqlite")
	if err != nil || out != "42" {
		t.Fatalf("get = %q, %v", out, err)
	}
}

func TestDefaultKeyValueFileOutsideLocations(t *testing.T) {
	dir := t.TempDir()
	// registered first so it runs after the environment is restored
	t.Cleanup(xdg.Reload)
	for _, v := range []string{"HOME", "XDG_CONFIG_HOME", "XDG_DATA_HOME", "XDG_STATE_HOME", "XDG_CACHE_HOME"} {
		t.Setenv(v, filepath.Join(dir, strings.ToLower(v)))
	}
	xdg.Reload()

	cfg := filepath.Join(dir, "absent.yaml")
	if _, err := execute(t, "dark mode", "--config", cfg, "put", "theme", "-t", "kv"); err != nil {
		t.Fatalf("put kv: %v", err)
	}
	kvFile := filepath.Join(xdg.StateHome, "stowage", "prefs.cbor")
	if _, err := os.Stat(kvFile); err != nil {
		t.Fatalf("kv snapshot not at %s: %v", kvFile, err)
	}

	// a library file with the same name as the kv snapshot
	if _, err := execute(t, "junk", "--config", cfg, "put", "prefs.cbor", "-t", "library"); err != nil {
		t.Fatalf("put library: %v", err)
	}
	if _, err := execute(t, "junk", "--config", cfg, "put", "kv.db", "-t", "library"); err != nil {
		t.Fatalf("put library: %v", err)
	}

	out, err := execute(t, "", "--config", cfg, "get", "theme", "-t", "kv")
	if err != nil || out != "dark mode" {
		t.Fatalf("get kv after library writes = %q, %v", out, err)
	}
}

type countingKV struct {
	kv.Backend
	closed *int
}

func (c countingKV) Close(ctx context.Context) error {
	*c.closed++
	return c.Backend.Close(ctx)
}

func TestFailedSetupClosesKeyValue(t *testing.T) {
	closed := 0
	kvBackends["counting"] = func(filestore.Backend) (kv.Backend, error) {
		return countingKV{Backend: kv.NewMemory(), closed: &closed}, nil
	}
	t.Cleanup(func() { delete(kvBackends, "counting") })

	_, err := run(t, t.TempDir(), "v", "put", "k", "-t", "kv", "--kv-backend", "counting", "--cache", "bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown cache") {
		t.Fatalf("put err = %v, want unknown cache", err)
	}
	if closed != 1 {
		t.Fatalf("kv backend closed %d times, want 1", closed)
	}
}

func TestKeyValueFlagListsEveryBackend(t *testing.T) {
	usage := rootCmd.PersistentFlags().Lookup("kv-backend").Usage
	for name := range kvBackends {
		if !strings.Contains(usage, name) {
			t.Fatalf("--kv-backend help %q omits %q", usage, name)
		}
	}
}
