package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"src.tabl.sh/pkg/env"
	"src.tabl.sh/pkg/testutil"
)

var wantLoaded = &Config{
	DB:              "/tmp/tabl.db",
	AutoRecalculate: false,
	Interval:        Duration(5 * time.Second),
	Tables: []Table{{
		Name:     "prices",
		Rows:     3,
		Cols:     2,
		Labels:   []string{"price", "tax"},
		Formulas: map[string]string{"col 2": "col 1 * 0.2"},
	}},
}

const yamlConfig = `
db: /tmp/tabl.db
auto-recalculate: false
interval: 5s
tables:
  - name: prices
    rows: 3
    cols: 2
    labels: [price, tax]
    formulas:
      col 2: col 1 * 0.2
`

const tomlConfig = `
db = "/tmp/tabl.db"
auto-recalculate = false
interval = "5s"

[[tables]]
name = "prices"
rows = 3
cols = 2
labels = ["price", "tax"]
[tables.formulas]
"col 2" = "col 1 * 0.2"
`

func TestLoad(t *testing.T) {
	dir := testutil.TempDir(t)
	for _, name := range []string{"config.yaml", "config.toml"} {
		content := yamlConfig
		if filepath.Ext(name) == ".toml" {
			content = tomlConfig
		}
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			mustWrite(t, path, content)
			cfg, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(wantLoaded, cfg); diff != "" {
				t.Errorf("config (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "config.yaml")
	mustWrite(t, path, "log: /tmp/tabl.log\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Log = "/tmp/tabl.log"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := testutil.TempDir(t)
	tests := []struct {
		name    string
		content string
	}{
		{"unknown.yaml", "colour: red\n"},
		{"unknown.toml", "colour = \"red\"\n"},
		{"interval.yaml", "interval: soon\n"},
		{"negative.toml", "interval = \"-1s\"\n"},
		{"syntax.toml", "db = \n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(dir, test.name)
			mustWrite(t, path, test.content)
			if _, err := Load(path); err == nil {
				t.Errorf("Load(%q) -> nil error", test.name)
			}
		})
	}

	path := filepath.Join(dir, "config.ini")
	mustWrite(t, path, "")
	if _, err := Load(path); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Load(config.ini) -> %v, want ErrUnknownFormat", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing.yaml) -> %v, want ErrNotExist", err)
	}
}

func TestPath(t *testing.T) {
	dir := testutil.TempDir(t)
	testutil.Setenv(t, env.TABL_CONFIG, "")
	testutil.Setenv(t, env.XDG_CONFIG_HOME, dir)

	if p, err := Path(); p != "" || err != nil {
		t.Errorf("Path() -> (%q, %v), want empty", p, err)
	}

	want := filepath.Join(dir, "tabl", "config.toml")
	must(t, os.MkdirAll(filepath.Dir(want), 0o755))
	mustWrite(t, want, "")
	if p, err := Path(); p != want || err != nil {
		t.Errorf("Path() -> (%q, %v), want %q", p, err, want)
	}

	testutil.Setenv(t, env.TABL_CONFIG, "/etc/tabl.yaml")
	if p, err := Path(); p != "/etc/tabl.yaml" || err != nil {
		t.Errorf("Path() -> (%q, %v), want $TABL_CONFIG", p, err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	must(t, os.WriteFile(path, []byte(content), 0o644))
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
