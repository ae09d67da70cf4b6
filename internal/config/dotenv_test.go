package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := `# local console settings
SUPABASE_URL="https://proj.supabase.co"
JWT_SECRET=dev-secret
REDIS_ADDR = localhost:6379
not-a-pair
=orphan-value
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JWT_SECRET", "from-environment")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if got := os.Getenv("SUPABASE_URL"); got != "https://proj.supabase.co" {
		t.Errorf("expected quotes stripped, got %q", got)
	}
	if got := os.Getenv("REDIS_ADDR"); got != "localhost:6379" {
		t.Errorf("expected whitespace trimmed, got %q", got)
	}
	// The environment wins over the file.
	if got := os.Getenv("JWT_SECRET"); got != "from-environment" {
		t.Errorf("expected existing env var to take precedence, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
