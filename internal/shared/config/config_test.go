package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadAppliesOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("UPLOAD_DIR", "/tmp/receipts")
	t.Setenv("OCR_TIMEOUT_SEC", "15")
	t.Setenv("EXTRACT_CONCURRENCY", "2")
	t.Setenv("OCR_ENABLED", "false")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ALLOW_ORIGINS", " http://a.test , ,http://b.test")

	cfg := Load()

	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3 store, got %q", cfg.ObjectStoreType)
	}
	if cfg.LocalStoreDir != "/tmp/receipts" {
		t.Fatalf("unexpected upload dir %q", cfg.LocalStoreDir)
	}
	if cfg.OCRTimeout != 15*time.Second {
		t.Fatalf("expected 15s OCR timeout, got %s", cfg.OCRTimeout)
	}
	if cfg.ExtractConcurrency != 2 {
		t.Fatalf("expected concurrency 2, got %d", cfg.ExtractConcurrency)
	}
	if cfg.OCREnabled {
		t.Fatalf("expected OCR disabled")
	}
	if cfg.MigrateOnStart {
		t.Fatalf("expected migrations off by default in production")
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowOrigin)
	}
}

func TestLoadDevDefaultsJWTSecret(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("OCR_DPI", "not-a-number")

	cfg := Load()
	if cfg.JWTSecret != "dev-secret" {
		t.Fatalf("expected dev secret fallback, got %q", cfg.JWTSecret)
	}
	if cfg.OCRDPI != 300 {
		t.Fatalf("expected default DPI on bad input, got %d", cfg.OCRDPI)
	}
	if cfg.CleanupDefaultDays != 30 {
		t.Fatalf("expected 30 cleanup days, got %d", cfg.CleanupDefaultDays)
	}
}

func TestParseEnvLine(t *testing.T) {
	cases := []struct {
		line    string
		key     string
		val     string
		wantRow bool
	}{
		{"PORT=9090", "PORT", "9090", true},
		{"export OCR_LANG=eng+fra", "OCR_LANG", "eng+fra", true},
		{`JWT_SECRET="a # not a comment"`, "JWT_SECRET", "a # not a comment", true},
		{"S3_PREFIX='receipts/'", "S3_PREFIX", "receipts/", true},
		{"LOG_LEVEL=debug # noisy", "LOG_LEVEL", "debug", true},
		{"# comment", "", "", false},
		{"NOEQUALS", "", "", false},
		{"BAD KEY=1", "", "", false},
	}
	for _, tc := range cases {
		key, val, ok := parseEnvLine(tc.line)
		if ok != tc.wantRow || key != tc.key || val != tc.val {
			t.Fatalf("%q: got (%q, %q, %v)", tc.line, key, val, ok)
		}
	}
}

func TestLoadEnvFilesKeepsProcessEnv(t *testing.T) {
	path := t.TempDir() + "/.env"
	if err := os.WriteFile(path, []byte("DOTENV_SET_KEY=from-file\nDOTENV_NEW_KEY=fresh\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DOTENV_SET_KEY", "from-process")
	t.Setenv("DOTENV_NEW_KEY", "")
	os.Unsetenv("DOTENV_NEW_KEY")

	loadEnvFiles(path)
	t.Cleanup(func() { os.Unsetenv("DOTENV_NEW_KEY") })

	if got := os.Getenv("DOTENV_SET_KEY"); got != "from-process" {
		t.Fatalf("expected process value to win, got %q", got)
	}
	if got := os.Getenv("DOTENV_NEW_KEY"); got != "fresh" {
		t.Fatalf("expected file value for unset key, got %q", got)
	}
}
