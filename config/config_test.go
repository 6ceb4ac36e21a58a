package config

import (
	"os"
	"testing"
)

func TestLoadConfig_ReadsEnvVars(t *testing.T) {
	env := map[string]string{
		"DB_HOST":           "localhost",
		"DB_PORT":           "5432",
		"DB_USER":           "user1",
		"DB_PASSWORD":       "pass1",
		"DB_NAME":           "db1",
		"JWT_SECRET":        "secret",
		"SMTP_HOST":         "smtp.test.com",
		"SMTP_PORT":         "587",
		"SMTP_USER":         "mail@test.com",
		"SMTP_APP_PASSWORD": "app-pass",
		"SMTP_SENDER":       "noreply@test.com",
		"GCS_BUCKET":        "regform-uploads",
		"BASE_URL":          "https://events.test.com",
	}

	for k, v := range env {
		os.Setenv(k, v)
		t.Cleanup(func(key string) func() {
			return func() { os.Unsetenv(key) }
		}(k))
	}

	cfg := LoadConfig()

	if cfg.DBHost != env["DB_HOST"] {
		t.Fatalf("DBHost=%q want %q", cfg.DBHost, env["DB_HOST"])
	}
	if cfg.DBPort != env["DB_PORT"] {
		t.Fatalf("DBPort=%q want %q", cfg.DBPort, env["DB_PORT"])
	}
	if cfg.DBUser != env["DB_USER"] {
		t.Fatalf("DBUser=%q want %q", cfg.DBUser, env["DB_USER"])
	}
	if cfg.DBPassword != env["DB_PASSWORD"] {
		t.Fatalf("DBPassword=%q want %q", cfg.DBPassword, env["DB_PASSWORD"])
	}
	if cfg.DBName != env["DB_NAME"] {
		t.Fatalf("DBName=%q want %q", cfg.DBName, env["DB_NAME"])
	}
	if cfg.JWTSecret != env["JWT_SECRET"] {
		t.Fatalf("JWTSecret=%q want %q", cfg.JWTSecret, env["JWT_SECRET"])
	}
	if cfg.SMTPHost != env["SMTP_HOST"] {
		t.Fatalf("SMTPHost=%q want %q", cfg.SMTPHost, env["SMTP_HOST"])
	}
	if cfg.SMTPPort != env["SMTP_PORT"] {
		t.Fatalf("SMTPPort=%q want %q", cfg.SMTPPort, env["SMTP_PORT"])
	}
	if cfg.SMTPUser != env["SMTP_USER"] {
		t.Fatalf("SMTPUser=%q want %q", cfg.SMTPUser, env["SMTP_USER"])
	}
	if cfg.SMTPPass != env["SMTP_APP_PASSWORD"] {
		t.Fatalf("SMTPPass=%q want %q", cfg.SMTPPass, env["SMTP_APP_PASSWORD"])
	}
	if cfg.SMTPSender != env["SMTP_SENDER"] {
		t.Fatalf("SMTPSender=%q want %q", cfg.SMTPSender, env["SMTP_SENDER"])
	}
	if cfg.GCSBucket != env["GCS_BUCKET"] {
		t.Fatalf("GCSBucket=%q want %q", cfg.GCSBucket, env["GCS_BUCKET"])
	}
	if cfg.BaseURL != env["BASE_URL"] {
		t.Fatalf("BaseURL=%q want %q", cfg.BaseURL, env["BASE_URL"])
	}
}

func TestLoadConfig_MissingVars_ReturnEmptyStrings(t *testing.T) {
	keys := []string{
		"DB_HOST",
		"DB_PORT",
		"DB_USER",
		"DB_PASSWORD",
		"DB_NAME",
		"JWT_SECRET",
		"SMTP_HOST",
		"SMTP_PORT",
		"SMTP_USER",
		"SMTP_APP_PASSWORD",
		"SMTP_SENDER",
		"GCS_BUCKET",
		"BASE_URL",
	}

	for _, k := range keys {
		os.Unsetenv(k)
	}

	cfg := LoadConfig()

	if cfg.DBHost != "" || cfg.DBPort != "" || cfg.DBUser != "" || cfg.DBPassword != "" || cfg.DBName != "" ||
		cfg.JWTSecret != "" || cfg.SMTPHost != "" || cfg.SMTPPort != "" || cfg.SMTPUser != "" ||
		cfg.SMTPPass != "" || cfg.SMTPSender != "" || cfg.GCSBucket != "" || cfg.BaseURL != "" {
		t.Fatalf("expected all empty strings, got: %+v", cfg)
	}
}
