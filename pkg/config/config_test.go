package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "wiki")
	path := writeConfig(t, "name: ${SAMPLE_NAME}\ncount: 3\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "wiki" || s.Count != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, "count: 2\n")
	s := sample{Name: "default"}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q, want default", s.Name)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	s := sample{Name: "default"}
	if err := Load(path, &s); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "name: x\ncuont: 1\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Fatal("unknown key should fail")
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeConfig(t, "count: -1\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default"}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if err != nil || found {
		t.Fatalf("found = %v, err = %v", found, err)
	}
	if s.Name != "default" {
		t.Errorf("defaults changed: %+v", s)
	}

	bad := sample{Count: -5}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &bad); err == nil {
		t.Error("defaults should still be validated")
	}

	found, err = LoadOptional(writeConfig(t, "count: 7\n"), &s)
	if err != nil || !found || s.Count != 7 {
		t.Errorf("found = %v, err = %v, s = %+v", found, err, s)
	}
}
