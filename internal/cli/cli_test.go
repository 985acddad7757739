package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baedrik/skulls2/internal/paths"
	"github.com/baedrik/skulls2/internal/sqlite"
	"github.com/baedrik/skulls2/pkg/types"
)

const seedYAML = `categories:
  - name: background
    variants:
      - {name: red, display_name: Red}
      - {name: blue, display_name: Blue}
  - name: eyes
    variants:
      - {name: two, display_name: Two}
      - {name: cyclops, display_name: Cyclops}
  - name: mouth
    variants:
      - {name: jaw, display_name: Jaw}
      - {name: none, display_name: None}
dependencies:
  - id: {category: eyes, variant: cyclops}
    correlated:
      - {category: mouth, variant: none}
skull_type_layers:
  cyclops: {category: 1, variant: 1}
  jawless: {category: 2, variant: 1}
metadata:
  public:
    description: test collection
`

// testEnv isolates one CLI invocation context in temp directories.
type testEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(paths.EnvConfigDir, "")
	t.Setenv(paths.EnvDataDir, "")
	for _, key := range envKeys {
		t.Setenv(envPrefix+"_"+strings.ToUpper(key), "")
	}
	dir := t.TempDir()
	return &testEnv{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "skulls %v", args)
	return out
}

func (e *testEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(filepath.Dir(e.dataDir), name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) seeded() *testEnv {
	e.t.Helper()
	e.mustRun("import", e.writeFile("seed.yaml", seedYAML))
	return e
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun("init")
	assert.Contains(t, out, "skulls initialized successfully")
	assert.FileExists(t, paths.ConfigFile(env.configDir))
	assert.FileExists(t, filepath.Join(env.dataDir, sqlite.DatabaseFile))

	// A second init keeps the existing config.
	require.NoError(t, os.WriteFile(paths.ConfigFile(env.configDir), []byte("backend: sqlite\nlisten_addr: \":9999\"\n"), 0o600))
	out = env.mustRun("--json", "init")
	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, false, res["config_written"])
	data, err := os.ReadFile(paths.ConfigFile(env.configDir))
	require.NoError(t, err)
	assert.Contains(t, string(data), ":9999")
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun("version")
	assert.Contains(t, out, "skulls v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults without config file", func(t *testing.T) {
		newTestEnv(t)
		s, err := loadSettings(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, defaultSettings(), s)
	})

	t.Run("config file and env override", func(t *testing.T) {
		newTestEnv(t)
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(paths.ConfigFile(dir), []byte("backend: sqlite\nlisten_addr: \":9000\"\nlog_format: json\n"), 0o600))
		t.Setenv("SKULLS_LISTEN_ADDR", ":9100")

		s, err := loadSettings(dir)
		require.NoError(t, err)
		assert.Equal(t, ":9100", s.ListenAddr)
		assert.Equal(t, "json", s.LogFormat)
	})

	t.Run("unknown backend", func(t *testing.T) {
		newTestEnv(t)
		t.Setenv("SKULLS_BACKEND", "postgres")
		_, err := loadSettings(t.TempDir())
		assert.ErrorIs(t, err, types.ErrBackendUnknown)
	})
}

func TestImportAndInspect(t *testing.T) {
	env := newTestEnv(t).seeded()

	out := env.mustRun("query", `{"state":{}}`)
	assert.JSONEq(t, `{"state":{"category_count":3,"skip":[]}}`, out)

	assert.Equal(t, "0,1,1\n", env.mustRun("transmute", "0,0,0", "eyes/cyclops"))
	out = env.mustRun("--json", "transmute", "0,0,0", "eyes/cyclops")
	assert.JSONEq(t, `{"composition":[0,1,1]}`, out)

	assert.Equal(t, "cyclops: true\njawless: true\n", env.mustRun("skull-type", "0,1,1"))
	out = env.mustRun("--json", "skull-type", "1,0,0")
	assert.JSONEq(t, `{"is_cyclops":false,"is_jawless":false}`, out)

	out = env.mustRun("category", "eyes")
	assert.Contains(t, out, "category 1/3: eyes")
	assert.Contains(t, out, "mouth/none")

	out = env.mustRun("--json", "variant", "--index", "1:1")
	assert.JSONEq(t, `{"category_index":1,"info":{"index":1,"variant_info":{"name":"cyclops","display_name":"Cyclops"},"includes":[{"category":"mouth","variant":"none"}]}}`, out)

	out = env.mustRun("dependencies")
	assert.Contains(t, out, "1 dependencies")
	assert.Contains(t, out, "eyes/cyclops")

	out = env.mustRun("query", `{"common_metadata":{}}`)
	assert.JSONEq(t, `{"common_metadata":{"metadata":{"public":{"description":"test collection"}}}}`, out)
}

func TestExecute(t *testing.T) {
	env := newTestEnv(t).seeded()

	out := env.mustRun("execute", `{"modify_category":{"name":"background","new_skip":true}}`)
	assert.JSONEq(t, `{"modify_category":{"status":"success"}}`, out)
	out = env.mustRun("query", `{"serve_bulk_export":{}}`)
	assert.JSONEq(t, `{"serve_bulk_export":{"category_names":["background","eyes","mouth"],"dependencies":[{"id":{"category":1,"variant":1},"correlated":[{"category":2,"variant":1}]}],"skip":[0]}}`, out)

	msg := env.writeFile("msg.json", `{"add_variants":{"category_name":"hat","variants":[]}}`)
	_, err := env.run("execute", "--file", msg)
	require.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = env.run("execute")
	assert.ErrorIs(t, err, errUsage)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestEnv(t).seeded()
	src.mustRun("execute", `{"modify_category":{"name":"mouth","new_skip":true}}`)
	want := src.mustRun("query", `{"serve_bulk_export":{}}`)

	for _, name := range []string{"snapshot.jsonl", "seed.yaml", "seed.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			exporter := &testEnv{t: t, configDir: src.configDir, dataDir: src.dataDir}
			exporter.mustRun("export", path)

			dst := &testEnv{t: t, configDir: filepath.Join(t.TempDir(), "config"), dataDir: filepath.Join(t.TempDir(), "data")}
			dst.mustRun("import", path)
			assert.JSONEq(t, want, dst.mustRun("query", `{"serve_bulk_export":{}}`))
			assert.Equal(t, "cyclops: true\njawless: true\n", dst.mustRun("skull-type", "0,1,1"))
		})
	}
}

func TestImportRejectsBadSeed(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile("bad.yaml", "categories:\n  - name: eyes\n    colour: red\n")
	_, err := env.run("import", path)
	require.ErrorIs(t, err, types.ErrInvalidData)

	_, err = env.run("import", env.writeFile("seed.txt", seedYAML))
	assert.ErrorIs(t, err, errUsage)
}

func TestParseComposition(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Composition
		wantErr bool
	}{
		{in: "", want: types.Composition{}},
		{in: "0", want: types.Composition{0}},
		{in: "1, 2,255", want: types.Composition{1, 2, 255}},
		{in: "1,256", wantErr: true},
		{in: "1,,2", wantErr: true},
		{in: "-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseComposition(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrInvalidComposition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLayers(t *testing.T) {
	id, err := parseLayer("eyes/cyclops")
	require.NoError(t, err)
	assert.Equal(t, types.LayerID{Category: "eyes", Variant: "cyclops"}, id)
	_, err = parseLayer("eyes")
	assert.ErrorIs(t, err, errUsage)

	sid, err := parseStoredLayer("3:17")
	require.NoError(t, err)
	assert.Equal(t, types.StoredLayerID{Category: 3, Variant: 17}, sid)
	_, err = parseStoredLayer("3:300")
	assert.ErrorIs(t, err, errUsage)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitUserError, exitCode(errors.Join(errors.New("ctx"), types.ErrDuplicate)))
	assert.Equal(t, exitSysError, exitCode(errors.New("disk full")))
}

func TestServe(t *testing.T) {
	newTestEnv(t)
	a := &app{settings: defaultSettings()}
	a.settings.Backend = types.BackendMemory
	a.settings.LogLevel = "error"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() { errCh <- a.serve(ctx, "127.0.0.1:0", ready) }()

	var addr string
	select {
	case addr = <-ready:
	case err := <-errCh:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","category_count":0}`, string(body))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout):
		t.Fatal("server did not shut down")
	}
}
