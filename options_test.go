package poh

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poh.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRunConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	wantNoErr(t, err)
	if cfg.Backend != BackendVM || cfg.Trace {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadRunConfigReadsFields(t *testing.T) {
	path := writeConfig(t, "backend: walker\ntrace: true\nhistory: /tmp/h\n")
	cfg, err := LoadRunConfig(path)
	wantNoErr(t, err)
	if cfg.Backend != BackendWalker || !cfg.Trace || cfg.History != "/tmp/h" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRunConfigEmptyBackendFallsBack(t *testing.T) {
	path := writeConfig(t, "trace: true\n")
	cfg, err := LoadRunConfig(path)
	wantNoErr(t, err)
	if cfg.Backend != BackendVM {
		t.Fatalf("backend = %q", cfg.Backend)
	}
}

func TestLoadRunConfigRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "backend: jit\n")
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestLoadRunConfigRejectsMalformedYaml(t *testing.T) {
	path := writeConfig(t, "backend: [unterminated\n")
	if _, err := LoadRunConfig(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}
