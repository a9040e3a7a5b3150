package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mxn2020/minions-openclaw/pkg/cli"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway/gatewaytest"
)

type env struct {
	t        *testing.T
	dataFile string
}

func newEnv(t *testing.T) *env {
	return &env{t: t, dataFile: filepath.Join(t.TempDir(), "data.json")}
}

// run executes a command with the test data file; flags must precede arguments
func (e *env) run(args ...string) (string, *cli.Error) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	argv := []string{"openclaw-manager"}
	argv = append(argv, args[0])
	rest := args[1:]
	// subcommand groups take their subcommand name before flags
	if args[0] == "snapshot" || args[0] == "config" || args[0] == "backup" {
		argv = append(argv, rest[0])
		rest = rest[1:]
	}
	argv = append(argv, "--data-file", e.dataFile, "--gateway-timeout", "2s")
	argv = append(argv, rest...)

	err := cli.Run(context.Background(), argv,
		cli.WithWriter(&stdout),
		cli.WithErrWriter(&stderr),
	)
	return stdout.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("command %v failed: %s", args, err.Message)
	}
	return out
}

func (e *env) register(url string) string {
	e.t.Helper()
	out := e.mustRun("register", "--title", "test gateway", url)
	gt.S(e.t, out).Contains("Instance registered: ")
	return strings.TrimSpace(strings.TrimPrefix(out, "Instance registered: "))
}

func TestRegisterListShowRemove(t *testing.T) {
	e := newEnv(t)
	id := e.register("ws://127.0.0.1:18789")

	out := e.mustRun("list")
	gt.S(t, out).Contains(id)
	gt.S(t, out).Contains("test gateway")
	gt.S(t, out).Contains("registered")

	out = e.mustRun("show", id)
	gt.S(t, out).Contains(`"url": "ws://127.0.0.1:18789"`)

	e.mustRun("remove", id)
	out = e.mustRun("list")
	gt.S(t, out).Contains("No instances registered")
}

func TestExitCodes(t *testing.T) {
	e := newEnv(t)

	_, err := e.run("register")
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, cli.ExitValidation)

	_, err = e.run("show", "no-such-instance")
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, cli.ExitNotFound)

	_, err = e.run("show")
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, cli.ExitValidation)

	id := e.register("ws://127.0.0.1:1")
	_, err = e.run("ping", id)
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, cli.ExitProtocol)

	out := e.mustRun("list")
	gt.S(t, out).Contains("unreachable")
}

func TestPingAndCapture(t *testing.T) {
	srv := gatewaytest.New(t, gatewaytest.WithPresence(
		[]any{map[string]any{"name": "helper"}, map[string]any{"name": "coder"}},
		[]any{map[string]any{"name": "slack"}},
		[]any{map[string]any{"id": "gpt-4"}},
		map[string]any{"gatewayConfig": map[string]any{"port": 18789}},
	))
	e := newEnv(t)
	id := e.register(srv.URL())

	out := e.mustRun("ping", id)
	gt.S(t, out).Contains("test gateway: online")

	out = e.mustRun("agents", id)
	gt.S(t, out).Contains("helper")
	gt.S(t, out).Contains("coder")
	out = e.mustRun("models", id)
	gt.S(t, out).Contains("gpt-4")

	out = e.mustRun("snapshot", "capture", id)
	gt.S(t, out).Contains("agents=2 channels=1 models=1")
	out = e.mustRun("snapshot", "capture", id)
	gt.S(t, out).Contains("Snapshot captured: ")

	out = e.mustRun("snapshot", "history", id)
	gt.Equal(t, len(strings.Split(strings.TrimSpace(out), "\n")), 2)

	out = e.mustRun("config", "show", id)
	gt.S(t, out).Contains(`"port": 18789`)
}

func TestSnapshotDiffAndDelete(t *testing.T) {
	agents := []any{map[string]any{"name": "helper"}}
	srv := gatewaytest.New(t, gatewaytest.WithPresence(agents, nil, nil, map[string]any{}))
	e := newEnv(t)
	id := e.register(srv.URL())

	first := snapshotID(t, e.mustRun("snapshot", "capture", id))
	second := snapshotID(t, e.mustRun("snapshot", "capture", id))

	out := e.mustRun("snapshot", "diff", first, second)
	gt.S(t, out).Contains("capturedAt: ")
	gt.S(t, out).NotContains("agentCount")

	e.mustRun("snapshot", "delete", first)
	out = e.mustRun("snapshot", "list", id)
	gt.S(t, out).Contains(second)
	gt.S(t, out).NotContains(first)

	// deleted snapshots stay comparable
	out = e.mustRun("snapshot", "diff", first, second)
	gt.S(t, out).Contains("capturedAt: ")

	_, err := e.run("snapshot", "delete", first)
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, cli.ExitNotFound)
}

func TestConfigImportExport(t *testing.T) {
	e := newEnv(t)
	id := e.register("ws://127.0.0.1:18789")

	path := filepath.Join(t.TempDir(), "openclaw.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(`
agents:
  - name: bot
    model: gpt-4
gatewayConfig:
  port: 18789
`), 0o600))

	out := e.mustRun("config", "import", "--file", path, id)
	gt.S(t, out).Contains("Imported 2 sections (0 replaced)")

	out = e.mustRun("config", "import", "--file", path, id)
	gt.S(t, out).Contains("(2 replaced)")

	out = e.mustRun("config", "export", "--format", "yaml", id)
	gt.S(t, out).Contains("name: bot")

	out = e.mustRun("config", "export", id)
	gt.S(t, out).Contains(`"model": "gpt-4"`)

	_, err := e.run("config", "export", "--format", "toml", id)
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, cli.ExitValidation)
}

func TestConfigDiffFiles(t *testing.T) {
	e := newEnv(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	gt.NoError(t, os.WriteFile(a, []byte(`{"agents":[{"name":"bot"}],"gatewayConfig":{"port":1}}`), 0o600))
	gt.NoError(t, os.WriteFile(b, []byte(`{"agents":[{"name":"bot"},{"name":"new"}],"gatewayConfig":{"port":2}}`), 0o600))

	out := e.mustRun("config", "diff", "--files", a, b)
	gt.S(t, out).Contains("+ agents")
	gt.S(t, out).Contains("~ gatewayConfig.port: 1 -> 2")
}

func TestIdentity(t *testing.T) {
	e := newEnv(t)
	id := e.register("ws://127.0.0.1:18789")

	out := e.mustRun("identity", id)
	gt.S(t, out).Contains("Device identity attached: sha256:")

	out = e.mustRun("show", id)
	gt.S(t, out).Contains(`"devicePrivateKey": "(hidden)"`)
	gt.S(t, out).NotContains("PRIVATE KEY")

	bad := filepath.Join(t.TempDir(), "bad.pem")
	gt.NoError(t, os.WriteFile(bad, []byte("not a key"), 0o600))
	_, err := e.run("identity", "--key-file", bad, id)
	gt.V(t, err).NotNil()
	gt.Equal(t, err.Code, cli.ExitValidation)
}

func snapshotID(t *testing.T, out string) string {
	t.Helper()
	gt.S(t, out).Contains("Snapshot captured: ")
	rest := strings.TrimPrefix(out, "Snapshot captured: ")
	return strings.Fields(rest)[0]
}
