package upstream

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	return path
}

func TestLoadProfiles(t *testing.T) {
	path := writeProfiles(t, `
default_profile: flash
profiles:
  - name: flash
    provider: gemini
    model: gemini-2.0-flash
    temperature: 0.7
  - name: local
    provider: echo
`)
	set, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if len(set.Profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(set.Profiles))
	}
	def := set.Default()
	if def.Name != "flash" || def.Model != "gemini-2.0-flash" {
		t.Errorf("default = %+v", def)
	}
	if def.Temperature == nil || *def.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", def.Temperature)
	}
	if _, ok := set.Lookup("local"); !ok {
		t.Error("Lookup(local) not found")
	}
	if _, ok := set.Lookup("missing"); ok {
		t.Error("Lookup(missing) unexpectedly found")
	}
}

func TestLoadProfilesRejectsUnknownProvider(t *testing.T) {
	path := writeProfiles(t, `
profiles:
  - name: bad
    provider: teleport
`)
	if _, err := LoadProfiles(path); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadProfilesRejectsMissingDefault(t *testing.T) {
	path := writeProfiles(t, `
default_profile: ghost
profiles:
  - name: real
    provider: echo
`)
	if _, err := LoadProfiles(path); err == nil {
		t.Fatal("expected error for undefined default_profile")
	}
}

func TestResolvedSystemPrompt(t *testing.T) {
	p := Profile{SystemPrompt: "  "}
	if got := p.ResolvedSystemPrompt(); got != DefaultSystemPrompt {
		t.Errorf("blank prompt resolved to %q, want default persona", got)
	}
	p.SystemPrompt = "You are terse."
	if got := p.ResolvedSystemPrompt(); got != "You are terse." {
		t.Errorf("prompt = %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(ErrInvalidCredentials); got != MsgInvalidCredentials {
		t.Errorf("credentials message = %q", got)
	}
	if got := UserMessage(os.ErrClosed); got != MsgGenericFailure {
		t.Errorf("generic message = %q", got)
	}
}
