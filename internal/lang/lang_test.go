package lang

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCatalog_FallbackToEnglish(t *testing.T) {
	c := Default()
	if got := c.Message(KeyBradleyRespawned, "fr"); got != english[KeyBradleyRespawned] {
		t.Fatalf("expected english fallback, got %q", got)
	}
	if got := c.Message(KeyBradleyRespawned, "de-AT"); got != german[KeyBradleyRespawned] {
		t.Fatalf("expected german match, got %q", got)
	}
	if got := c.Message("NoSuchKey", "en"); got != "NoSuchKey" {
		t.Fatalf("unknown key should echo, got %q", got)
	}
	if got := c.Message(KeyNoPermission, "not a tag!"); got != english[KeyNoPermission] {
		t.Fatalf("bad tag should fall back, got %q", got)
	}
}

func TestCatalog_LoadDirOverrides(t *testing.T) {
	dir := t.TempDir()
	_ = os.WriteFile(filepath.Join(dir, "en.yaml"), []byte("BradleyHasBeenRespawned: \"{HilCol}APC is back{ColEnd}\"\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "fr.yml"), []byte("BradleyHasBeenRespawned: \"Bradley est revenu\"\n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	c := Default()
	if err := c.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got := c.Message(KeyBradleyRespawned, "en"); got != "{HilCol}APC is back{ColEnd}" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Message(KeyBradleyRespawned, "fr"); got != "Bradley est revenu" {
		t.Fatalf("new language not added: %q", got)
	}
	// Keys missing from a partial translation fall back to English.
	if got := c.Message(KeyNoPermission, "fr"); got != english[KeyNoPermission] {
		t.Fatalf("partial translation fallback failed: %q", got)
	}
	if err := c.LoadDir(filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("missing dir should be ignored: %v", err)
	}
}

func TestRenderer_Colorizes(t *testing.T) {
	r := Renderer{
		Catalog: Default(),
		Colors:  Colors{Msg: "<color=#939393>", Hil: "<color=orange>", Err: "<color=red>"},
		LangOf:  func(string) string { return "en" },
	}
	got := r.Get(KeyNoPermission, "p1")
	if got != "<color=red>You do not have permission to use this command!</color>" {
		t.Fatalf("unexpected colorized message: %q", got)
	}
	if strings.Contains(r.Get(KeyPlayerCharged, "p1"), "{HilCol}") {
		t.Fatalf("placeholder left behind")
	}
}
