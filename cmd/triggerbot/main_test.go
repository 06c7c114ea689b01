package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Memati8383/AI-Triggerbot/internal/httputil"
)

type cliEnv struct {
	dir    string
	config string
	db     string
}

func newCLIEnv(t *testing.T) *cliEnv {
	dir := t.TempDir()
	return &cliEnv{
		dir:    dir,
		config: filepath.Join(dir, "config.json"),
		db:     filepath.Join(dir, "sessions.db"),
	}
}

func (c *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", c.config, "--db", c.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "triggerbot dev")
}

func TestProfilesCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "* balanced")
	for _, name := range []string{"aggressive", "stealth", "sniper"} {
		assert.Contains(t, out, name)
	}

	out, err = env.run(t, "profiles", "apply", "sniper")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile sniper applied")

	out, err = env.run(t, "config", "get", "profile")
	require.NoError(t, err)
	assert.Equal(t, `"sniper"`, strings.TrimSpace(out))

	_, err = env.run(t, "profiles", "apply", "turbo")
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "config", "set", "confidence", "0.3")
	require.NoError(t, err)
	_, err = env.run(t, "config", "set", "crosshair_style", "circle")
	require.NoError(t, err)

	out, err := env.run(t, "config", "get", "confidence")
	require.NoError(t, err)
	assert.Equal(t, "0.3", strings.TrimSpace(out))

	out, err = env.run(t, "config", "get", "crosshair_style")
	require.NoError(t, err)
	assert.Equal(t, `"circle"`, strings.TrimSpace(out))

	_, err = env.run(t, "config", "set", "confidence", "7")
	assert.Error(t, err, "out of range")
	_, err = env.run(t, "config", "set", "nope", "1")
	assert.Error(t, err)
	_, err = env.run(t, "config", "get", "nope")
	assert.Error(t, err)

	out, err = env.run(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, `"confidence": 0.3`)

	out, err = env.run(t, "config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "aim_tolerance\n")
}

func TestRunRequiresBackend(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "run", "--headless")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--synthetic")
}

func TestRunHeadlessRecordsSession(t *testing.T) {
	env := newCLIEnv(t)
	png := filepath.Join(env.dir, "heat.png")

	out, err := env.run(t, "run", "--synthetic", "--headless", "--active",
		"--duration", "300ms", "--listen", "", "--grpc-listen", "",
		"--heatmap-out", png)
	require.NoError(t, err)
	assert.Contains(t, out, "Session summary")
	assert.Contains(t, out, "saved to "+env.db)
	assert.Contains(t, out, "Heatmap written to")

	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	out, err = env.run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "1 sessions")
	assert.Contains(t, out, "synthetic")
}

func TestRunWithBrokenConfigUsesDefaults(t *testing.T) {
	for name, body := range map[string]string{
		"syntax": `{"confidence": 0.3,`,
		"range":  `{"aim_smooth": 5}`,
	} {
		t.Run(name, func(t *testing.T) {
			env := newCLIEnv(t)
			require.NoError(t, os.WriteFile(env.config, []byte(body), 0o644))

			out, err := env.run(t, "run", "--synthetic", "--headless",
				"--duration", "100ms", "--listen", "", "--grpc-listen", "")
			require.NoError(t, err)
			assert.Contains(t, out, "Session summary")

			// Maintenance commands still report the broken file.
			_, err = env.run(t, "config", "get", "confidence")
			assert.Error(t, err)
		})
	}
}

func TestHeatmapCommand(t *testing.T) {
	env := newCLIEnv(t)
	html := filepath.Join(env.dir, "heat.html")

	out, err := env.run(t, "heatmap", "--ticks", "60", "--out", html)
	require.NoError(t, err)
	assert.Contains(t, out, "Simulated 60 ticks")

	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Target Heatmap")
}

func TestMigrateCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 0")

	out, err = env.run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "All migrations applied")

	_, err = env.run(t, "migrate", "sideways")
	assert.Error(t, err)
}

func TestStatusAndControlCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/stats":
			httputil.WriteJSONOK(w, map[string]interface{}{
				"session_id": "abc", "state": "engaging", "active": true,
				"shots": 10, "hits": 7, "accuracy": 70.0, "profile": "stealth",
				"priority": "largest", "confidence": 0.35,
			})
		case r.Method == http.MethodPost && r.URL.Path == "/api/control/panic":
			httputil.WriteJSONOK(w, map[string]interface{}{"action": "panic", "active": false})
		default:
			httputil.NotFound(w, "no route")
		}
	}))
	defer srv.Close()

	env := newCLIEnv(t)
	out, err := env.run(t, "status", "--addr", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "session:    abc")
	assert.Contains(t, out, "accuracy:   70.0%")
	assert.Contains(t, out, "state:      engaging (active=true panic=false)")
	assert.Contains(t, out, "priority largest")

	out, err = env.run(t, "control", "panic", "--addr", strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	assert.Equal(t, "action: panic\nactive: false\n", out)

	_, err = env.run(t, "control", "reset", "--addr", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no route")

	_, err = env.run(t, "control", "explode", "--addr", srv.URL)
	assert.Error(t, err)
}
