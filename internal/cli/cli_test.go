package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/reqtrace/pkg/errors"
	"github.com/matzehuels/reqtrace/pkg/integrations/pypi"
	"github.com/matzehuels/reqtrace/pkg/observability"
	"github.com/matzehuels/reqtrace/pkg/trace"
)

var registry = map[string]map[string]any{
	"anyio": {
		"name":        "anyio",
		"version":     "4.4.0",
		"classifiers": []string{"Framework :: AnyIO"},
		"requires_dist": []string{
			"idna>=2.8",
			`exceptiongroup>=1.0.2; python_version < "3.11"`,
			`trio>=0.23; extra == "trio"`,
		},
	},
	"exceptiongroup": {
		"name":    "exceptiongroup",
		"version": "1.2.2",
		"requires_dist": []string{
			`typing-extensions>=4.6.0; python_version < "3.13"`,
			`pytest>=6; extra == "test"`,
		},
	},
	"typing-extensions": {
		"name":          "typing_extensions",
		"version":       "4.12.2",
		"requires_dist": nil,
	},
	"flaky": nil,
}

func newRegistry(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/json")
		info, ok := registry[name]
		switch {
		case !ok:
			http.NotFound(w, r)
		case info == nil:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			json.NewEncoder(w).Encode(map[string]any{"info": info})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// runCLI executes the root command with args against an isolated config and
// cache directory and returns what was written to Out.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Cleanup(observability.Reset)

	var out, logs bytes.Buffer
	c := New(&logs, LogInfo)
	c.Out = &out
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&logs)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func traceLine(name, text string) string {
	return fmt.Sprintf("  %30s : %s\n", name, text)
}

func TestRootCommand_Trace(t *testing.T) {
	srv := newRegistry(t)

	out, err := runCLI(t, "--registry", srv.URL, "anyio")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}

	want := fmt.Sprintf("%30s : anyio\n", "Name") +
		fmt.Sprintf("%30s : 4.4.0\n", "Version") +
		fmt.Sprintf("%30s : [Framework :: AnyIO]\n", "Classifiers") +
		fmt.Sprintf("%30s : [idna>=2.8, exceptiongroup>=1.0.2; python_version < \"3.11\", trio>=0.23; extra == \"trio\"]\n", "Requires_dist") +
		traceLine("idna", "Add") +
		traceLine("typing-extensions", "Add from exceptiongroup") +
		traceLine("exceptiongroup", "Add from anyio") +
		traceLine("trio", "False from anyio")
	if out != want {
		t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", out, want)
	}
}

func TestRootCommand_EnvOverride(t *testing.T) {
	srv := newRegistry(t)

	out, err := runCLI(t, "--registry", srv.URL, "--env", "python_version=3.12", "anyio")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if !strings.Contains(out, traceLine("exceptiongroup", "False from anyio")) {
		t.Errorf("python 3.12 should exclude exceptiongroup:\n%s", out)
	}
	if strings.Contains(out, "typing-extensions") {
		t.Errorf("excluded dependency must not be traced:\n%s", out)
	}
}

func TestRootCommand_AllDepths(t *testing.T) {
	srv := newRegistry(t)

	out, err := runCLI(t, "--registry", srv.URL, "--all-depths", "anyio")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if !strings.Contains(out, traceLine("pytest", "False from exceptiongroup")) {
		t.Errorf("--all-depths should report nested exclusions:\n%s", out)
	}
}

func TestRootCommand_MultiplePackages(t *testing.T) {
	srv := newRegistry(t)

	out, err := runCLI(t, "--registry", srv.URL, "anyio", "typing-extensions")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if n := strings.Count(out, fmt.Sprintf("%30s : ", "Name")); n != 2 {
		t.Errorf("want one metadata block per package, got %d:\n%s", n, out)
	}
	if !strings.Contains(out, fmt.Sprintf("%30s : None\n", "Requires_dist")) {
		t.Errorf("null requires_dist should print None:\n%s", out)
	}
}

func TestRootCommand_JSON(t *testing.T) {
	srv := newRegistry(t)

	out, err := runCLI(t, "--registry", srv.URL, "--json", "anyio")
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	var rep trace.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, out)
	}
	if rep.Package != "anyio" || len(rep.Decisions) != 4 {
		t.Errorf("report = %+v", rep)
	}
}

func TestRootCommand_Graph(t *testing.T) {
	srv := newRegistry(t)
	path := filepath.Join(t.TempDir(), "anyio.dot")

	if _, err := runCLI(t, "--registry", srv.URL, "--graph", path, "anyio"); err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("graph not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "digraph") || !strings.Contains(string(data), `"exceptiongroup"`) {
		t.Errorf("unexpected graph:\n%s", data)
	}

	if _, err := runCLI(t, "--registry", srv.URL, "--graph", "out.png", "anyio"); err == nil {
		t.Error("unsupported graph extension should fail")
	}
}

func TestRootCommand_Errors(t *testing.T) {
	srv := newRegistry(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
		msg  string
	}{
		{"not found", []string{"missing"}, errors.ErrCodePackageNotFound, "Error: fetch missing: registry returned status 404"},
		{"server error", []string{"flaky"}, errors.ErrCodeRegistryStatus, "Error: fetch flaky: registry returned status 503"},
		{"bad env", []string{"--env", "python=3", "anyio"}, errors.ErrCodeInvalidInput, "Error: --env"},
		{"bad name", []string{"../etc"}, errors.ErrCodeInvalidPackage, "Error: package name contains invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, append([]string{"--registry", srv.URL}, tt.args...)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
			var buf bytes.Buffer
			PrintError(&buf, err)
			if !strings.Contains(buf.String(), tt.msg) {
				t.Errorf("PrintError = %q, want it to contain %q", buf.String(), tt.msg)
			}
		})
	}
}

func TestRootCommand_StopsAtFirstError(t *testing.T) {
	srv := newRegistry(t)

	out, err := runCLI(t, "--registry", srv.URL, "missing", "anyio")
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(out, "anyio") {
		t.Errorf("packages after a failure must not be traced:\n%s", out)
	}
}

func TestHistory(t *testing.T) {
	srv := newRegistry(t)
	dir := t.TempDir()

	if _, err := runCLI(t, "--registry", srv.URL, "--store", dir, "anyio"); err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	out, err := runCLI(t, "--store", dir, "history", "AnyIO")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "anyio") || !strings.Contains(out, "4.4.0") {
		t.Errorf("history output missing report:\n%s", out)
	}

	if _, err := runCLI(t, "history"); errors.GetCode(err) != errors.ErrCodeInvalidInput {
		t.Errorf("history without a store: err = %v", err)
	}
}

func TestEnvCommand(t *testing.T) {
	out, err := runCLI(t, "--env", "sys_platform=win32", "env")
	if err != nil {
		t.Fatalf("env failed: %v", err)
	}
	for _, want := range []string{`python_version : "3.10"`, `sys_platform : "win32"`, `extra : ""`} {
		if !strings.Contains(out, want) {
			t.Errorf("env output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommand(t *testing.T) {
	out, err := runCLI(t, "--retries", "2", "--no-cache", "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	for _, want := range []string{`registry = "` + pypi.DefaultBaseURL + `"`, "retries = 2", `backend = "none"`} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "retries = 1\n[environment]\npython_version = \"3.8\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "--config", path, "--env", "sys_platform=darwin", "env")
	if err != nil {
		t.Fatalf("env failed: %v", err)
	}
	if !strings.Contains(out, `python_version : "3.8"`) || !strings.Contains(out, `sys_platform : "darwin"`) {
		t.Errorf("file and flag overrides not applied:\n%s", out)
	}

	if _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.toml"), "env"); err == nil {
		t.Error("an explicit missing config file should fail")
	}
}

func TestCacheCommands(t *testing.T) {
	srv := newRegistry(t)
	cacheHome := t.TempDir()

	// runCLI isolates XDG_CACHE_HOME; override it after the helper sets it.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	c := New(&bytes.Buffer{}, LogInfo)
	var out bytes.Buffer
	c.Out = &out
	root := c.RootCommand()
	root.SetArgs([]string{"--registry", srv.URL, "anyio"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	t.Cleanup(observability.Reset)

	entries, _ := os.ReadDir(filepath.Join(cacheHome, appName))
	if len(entries) == 0 {
		t.Fatal("trace should populate the file cache")
	}

	out.Reset()
	root = c.RootCommand()
	root.SetArgs([]string{"cache", "path"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != filepath.Join(cacheHome, appName) {
		t.Errorf("cache path = %q", out.String())
	}

	root = c.RootCommand()
	root.SetArgs([]string{"cache", "clear"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	entries, _ = os.ReadDir(filepath.Join(cacheHome, appName))
	if len(entries) != 0 {
		t.Errorf("cache clear left %d entries", len(entries))
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/xdg", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CACHE_HOME", "")
	dir, err = cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestFormatList(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, "None"},
		{[]string{}, "[]"},
		{[]string{"a"}, "[a]"},
		{[]string{"a", "b; x == \"y\""}, `[a, b; x == "y"]`},
	}
	for _, tt := range tests {
		if got := formatList(tt.in); got != tt.want {
			t.Errorf("formatList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGraphPath(t *testing.T) {
	if got := graphPath("out/g.svg", "anyio", false); got != "out/g.svg" {
		t.Errorf("single package: %q", got)
	}
	if got := graphPath("out/g.svg", "anyio", true); got != "out/g-anyio.svg" {
		t.Errorf("multiple packages: %q", got)
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("displayAddr(:8080) = %q", got)
	}
	if got := displayAddr("0.0.0.0:9000"); got != "0.0.0.0:9000" {
		t.Errorf("displayAddr(0.0.0.0:9000) = %q", got)
	}
}
