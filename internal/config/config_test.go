package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: gateway-1
server:
  addr: ":9000"
database:
  postgres:
    host: localhost
    port: 5432
    name: farmkonnect
    user: fkuser
    password: fkpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "gateway-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "gateway-1")
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, ":9000")
	}
	if cfg.Database.Postgres.Name != "farmkonnect" {
		t.Errorf("Database.Postgres.Name = %q, want %q", cfg.Database.Postgres.Name, "farmkonnect")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: gateway-1
database:
  postgres:
    host: localhost
    name: farmkonnect
    user: fkuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: gateway-1
database:
  postgres:
    host: localhost
    name: farmkonnect
    user: fkuser
    password: fkpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want default %q", cfg.Server.Addr, DefaultServerAddr)
	}
	if cfg.Heartbeat.Interval != DefaultHeartbeatInterval {
		t.Errorf("Heartbeat.Interval = %v, want default %v", cfg.Heartbeat.Interval, DefaultHeartbeatInterval)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Poller.Interval != DefaultPollInterval {
		t.Errorf("Poller.Interval = %v, want default %v", cfg.Poller.Interval, DefaultPollInterval)
	}
}

func TestValidate(t *testing.T) {
	base := `
instance:
  id: gateway-1
database:
  postgres:
    host: localhost
    name: farmkonnect
    user: fkuser
    password: fkpass
`

	t.Run("valid config passes", func(t *testing.T) {
		path := writeTempFile(t, base)
		if _, err := LoadAndValidate(path); err != nil {
			t.Errorf("LoadAndValidate failed: %v", err)
		}
	})

	t.Run("missing instance id", func(t *testing.T) {
		path := writeTempFile(t, strings.Replace(base, "id: gateway-1", "id: \"\"", 1))
		if _, err := LoadAndValidate(path); err == nil {
			t.Error("expected error for missing instance.id")
		}
	})

	t.Run("missing db host", func(t *testing.T) {
		path := writeTempFile(t, strings.Replace(base, "host: localhost", "host: \"\"", 1))
		if _, err := LoadAndValidate(path); err == nil {
			t.Error("expected error for missing database host")
		}
	})

	t.Run("verify without secret", func(t *testing.T) {
		path := writeTempFile(t, base+`
auth:
  verify: true
`)
		if _, err := LoadAndValidate(path); err == nil {
			t.Error("expected error for auth.verify without secret")
		}
	})
}
