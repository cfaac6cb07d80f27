package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %q, want info", cfg.Log.Level)
	}
	if cfg.Receiver.ResolveFrames != "receiver" {
		t.Errorf("receiver.resolve_frames = %q, want receiver", cfg.Receiver.ResolveFrames)
	}
	if !cfg.Emitter.CollectStacktrace {
		t.Error("emitter.collect_stacktrace should default to true")
	}
	if cfg.Upload.Timeout != 30*time.Second {
		t.Errorf("upload.timeout = %v, want 30s", cfg.Upload.Timeout)
	}
	if err := NewValidator().Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
log:
  level: debug
receiver:
  socket_path: /tmp/ct.sock
  resolve_frames: disabled
upload:
  endpoint: https://crash.example.com/intake
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Receiver.SocketPath != "/tmp/ct.sock" {
		t.Errorf("receiver.socket_path = %q", cfg.Receiver.SocketPath)
	}
	if cfg.Upload.Timeout != 5*time.Second {
		t.Errorf("upload.timeout = %v, want 5s", cfg.Upload.Timeout)
	}
	// Values absent from the file keep their defaults.
	if cfg.Store.Path != ".crashtrack/crashes.db" {
		t.Errorf("store.path = %q, want default", cfg.Store.Path)
	}
}

func TestValidatorRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad resolve mode", func(c *Config) { c.Receiver.ResolveFrames = "sometimes" }, "receiver.resolve_frames"},
		{"zero max frames", func(c *Config) { c.Emitter.MaxFrames = 0 }, "emitter.max_frames"},
		{"empty endpoint", func(c *Config) { c.Upload.Endpoint = "" }, "upload.endpoint"},
		{"bad endpoint scheme", func(c *Config) { c.Upload.Endpoint = "ftp://x" }, "upload.endpoint"},
		{"negative timeout", func(c *Config) { c.Upload.Timeout = -time.Second }, "upload.timeout"},
		{"empty intake addr", func(c *Config) { c.Intake.Addr = "" }, "intake.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewLoader().Load()
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)

			err = NewValidator().Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			verrs, ok := err.(ValidationErrors)
			if !ok {
				t.Fatalf("error type %T, want ValidationErrors", err)
			}
			found := false
			for _, ve := range verrs {
				if ve.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.field, verrs)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error: %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if err := NewValidator().Validate(cfg); err != nil {
		t.Errorf("generated config does not validate: %v", err)
	}

	// Refuses to clobber.
	if err := WriteDefault(path); err == nil {
		t.Error("expected error writing over existing config")
	}
}
