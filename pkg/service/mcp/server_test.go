package mcp_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/repository"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway/gatewaytest"
	"github.com/mxn2020/minions-openclaw/pkg/service/mcp"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/configdoc"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/instance"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/snapshot"
)

type fixture struct {
	session *mcpsdk.ClientSession
	inst    *instance.UseCase
	configs *configdoc.UseCase
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := repository.NewMemory()
	inst := instance.New(repo)
	snaps := snapshot.New(repo, snapshot.WithConnector(inst))
	configs := configdoc.New(repo, configdoc.WithSnapshots(snaps))

	srv := mcp.NewServer(inst, snaps, configs, "test")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcpsdk.StreamableClientTransport{Endpoint: ts.URL}, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return &fixture{session: session, inst: inst, configs: configs}
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	result, err := f.session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	gt.NoError(t, err)
	gt.A(t, result.Content).Length(1)
	return result
}

func textOf(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	return text.Text
}

func TestListTools(t *testing.T) {
	f := setup(t)

	tools, err := f.session.ListTools(context.Background(), nil)
	gt.NoError(t, err)
	names := map[string]bool{}
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{
		"list_instances", "get_instance", "ping_instance", "capture_snapshot",
		"list_snapshots", "snapshot_history", "diff_snapshots", "export_config",
	} {
		gt.True(t, names[name])
	}
}

func TestInstanceToolsHideSecrets(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.inst.Register(ctx, "gw", "ws://localhost:8080", "very-secret")
	gt.NoError(t, err)

	result := f.call(t, "list_instances", nil)
	gt.False(t, result.IsError)
	var list []model.Record
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &list))
	gt.A(t, list).Length(1)
	gt.Equal(t, list[0].ID, rec.ID)
	gt.S(t, textOf(t, result)).NotContains("very-secret")

	result = f.call(t, "get_instance", map[string]any{"instance_id": rec.ID.String()})
	gt.False(t, result.IsError)
	gt.S(t, textOf(t, result)).Contains("ws://localhost:8080")
	gt.S(t, textOf(t, result)).NotContains("very-secret")

	result = f.call(t, "get_instance", map[string]any{"instance_id": "missing"})
	gt.True(t, result.IsError)
	gt.S(t, textOf(t, result)).Contains("instance not found")
}

func TestSnapshotTools(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	gw := gatewaytest.New(t, gatewaytest.WithPresence(
		[]any{"a1", "a2"}, []any{"c1"}, []any{}, map[string]any{"port": 18789},
	))

	rec, err := f.inst.Register(ctx, "gw", gw.URL(), "")
	gt.NoError(t, err)
	args := map[string]any{"instance_id": rec.ID.String()}

	result := f.call(t, "ping_instance", args)
	gt.False(t, result.IsError)
	gt.S(t, textOf(t, result)).Contains("latency_ms")

	var first, second model.Record
	result = f.call(t, "capture_snapshot", args)
	gt.False(t, result.IsError)
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &first))
	gt.Equal(t, first.Int("agentCount"), 2)

	result = f.call(t, "capture_snapshot", args)
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &second))

	var history []model.Record
	result = f.call(t, "snapshot_history", args)
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &history))
	gt.A(t, history).Length(2)
	gt.Equal(t, history[0].ID, second.ID)

	var list []model.Record
	result = f.call(t, "list_snapshots", args)
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &list))
	gt.A(t, list).Length(2)

	var diff map[string]model.FieldDiff
	result = f.call(t, "diff_snapshots", map[string]any{
		"snapshot_a": first.ID.String(),
		"snapshot_b": first.ID.String(),
	})
	gt.False(t, result.IsError)
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &diff))
	gt.Equal(t, len(diff), 0)
}

func TestExportConfigTool(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	rec, err := f.inst.Register(ctx, "gw", "ws://localhost:8080", "")
	gt.NoError(t, err)
	_, err = f.configs.Import(ctx, rec.ID, &model.Config{
		Agents: []*model.AgentConfig{{Name: "bot", Model: "gpt-4"}},
	})
	gt.NoError(t, err)

	result := f.call(t, "export_config", map[string]any{"instance_id": rec.ID.String()})
	gt.False(t, result.IsError)

	var cfg model.Config
	gt.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &cfg))
	gt.A(t, cfg.Agents).Length(1)
	gt.Equal(t, cfg.Agents[0].Model, "gpt-4")
}
