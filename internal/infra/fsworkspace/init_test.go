package fsworkspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aalvaropc/procblock/internal/domain"
)

func TestInitializer_Init_CreatesWorkspaceFiles(t *testing.T) {
	tmp := t.TempDir()

	if err := NewInitializer().Init(domain.WorkspaceSpec{Root: tmp}, false); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	assertFileExists(t, filepath.Join(tmp, "procblock.yaml"))
	assertFileExists(t, filepath.Join(tmp, "input", "PUMP01.yaml"))
	assertFileExists(t, filepath.Join(tmp, ".gitignore"))

	for _, d := range []string{"input", "reports", filepath.Join(".procblock", "logs")} {
		info, err := os.Stat(filepath.Join(tmp, d))
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", d, err)
		}
	}
}

func TestInitializer_Init_SkipsExistingFilesUnlessForce(t *testing.T) {
	tmp := t.TempDir()

	cfgPath := filepath.Join(tmp, "procblock.yaml")
	if err := os.WriteFile(cfgPath, []byte("custom\n"), 0o644); err != nil {
		t.Fatalf("write existing procblock.yaml: %v", err)
	}

	i := NewInitializer()

	if err := i.Init(domain.WorkspaceSpec{Root: tmp}, false); err != nil {
		t.Fatalf("Init (force=false) error: %v", err)
	}

	b, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read procblock.yaml: %v", err)
	}
	if string(b) != "custom\n" {
		t.Fatalf("expected procblock.yaml preserved, got %q", string(b))
	}

	if err := i.Init(domain.WorkspaceSpec{Root: tmp}, true); err != nil {
		t.Fatalf("Init (force=true) error: %v", err)
	}

	b, err = os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read procblock.yaml after force: %v", err)
	}
	if !strings.Contains(string(b), "procblock:") {
		t.Fatalf("expected procblock.yaml overwritten with template, got %q", string(b))
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file %s, stat err=%v", path, err)
	}
}
