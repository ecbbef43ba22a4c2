package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mcdev12/pomoroom/go/internal/models"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "session.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Nickname() != "" {
		t.Fatalf("Nickname() = %q, want empty", cfg.Nickname())
	}
	if cfg.Color() != models.Palette[0] {
		t.Fatalf("Color() = %q, want %q", cfg.Color(), models.Palette[0])
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetNickname("alice"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetColor("#60a5fa"); err != nil {
		t.Fatal(err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Nickname() != "alice" || again.Color() != "#60a5fa" {
		t.Fatalf("reloaded %q/%q, want alice/#60a5fa", again.Nickname(), again.Color())
	}
}

func TestClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	cfg, _ := Load(path)
	if err := cfg.SetNickname("bob"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file still present: %v", err)
	}
	if cfg.Nickname() != "" {
		t.Fatal("nickname not cleared")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("nickname: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInMemoryNeverWrites(t *testing.T) {
	cfg := InMemory("carol", "")
	if err := cfg.SetColor("#f472b6"); err != nil {
		t.Fatal(err)
	}
	if cfg.Color() != "#f472b6" {
		t.Fatalf("Color() = %q", cfg.Color())
	}
}
