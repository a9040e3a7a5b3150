package configdoc_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/repository"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/configdoc"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/instance"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/snapshot"
)

func ptr[T any](v T) *T { return &v }

func fullConfig() *model.Config {
	return &model.Config{
		Agents: []*model.AgentConfig{
			{Name: "bot", Model: "gpt-4", SystemPrompt: ptr("be brief"), Tools: []string{"search"},
				Channels: []string{"slack"}, Skills: []string{"summarize"}, Enabled: ptr(false)},
			{Name: "123", Model: "claude", SystemPrompt: ptr(""), Tools: []string{"a", "b"},
				Channels: []string{"x"}, Skills: []string{"y"}, Enabled: ptr(true)},
		},
		Channels: []*model.ChannelConfig{
			{Type: "slack", Name: "slack", Config: map[string]any{"token": "abc", "retries": 3}, Enabled: ptr(true)},
		},
		ModelProviders: []*model.ModelProviderConfig{
			{Provider: "openai", Model: "gpt-4", APIKey: ptr("k"), BaseURL: ptr("https://api"), Enabled: ptr(true)},
		},
		Hooks: []*model.HookConfig{
			{URL: "https://hook", Events: []string{"start"}, Secret: ptr("s"), Enabled: ptr(true)},
		},
		CronJobs: []*model.CronJobConfig{
			{Name: "nightly", Schedule: "0 0 * * *", Action: "backup", Enabled: ptr(true)},
		},
		SessionConfig: &model.SessionConfig{MaxSessions: ptr(5), SessionTimeout: ptr(60), PersistSessions: ptr(true)},
		GatewayConfig: &model.GatewayConfig{Host: ptr("0.0.0.0"), Port: ptr(18789), TLSEnabled: ptr(true),
			CertPath: ptr("/c"), KeyPath: ptr("/k")},
		LoggingConfig: &model.LoggingConfig{Level: ptr("debug"), Format: ptr("json"), Outputs: []string{"file"}},
		IdentityConfig: &model.IdentityConfig{Name: ptr("main"), DeviceID: ptr("d1"), PublicKey: ptr("pk")},
		UIConfig:       &model.UIConfig{Enabled: ptr(true), Port: ptr(3000), Theme: ptr("dark")},
	}
}

func registerInstance(t *testing.T, repo repository.Repository) model.RecordID {
	t.Helper()
	rec, err := instance.New(repo).Register(context.Background(), "gw", "ws://localhost:8080", "")
	gt.NoError(t, err)
	return rec.ID
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	gt.NoError(t, err)
	return string(raw)
}

func TestDecomposeAppliesDefaults(t *testing.T) {
	parent := model.NewRecordID()
	d := configdoc.Decompose(&model.Config{
		Agents: []*model.AgentConfig{{Name: "bot", Model: "gpt-4"}},
	}, parent)

	gt.A(t, d.Records).Length(1)
	gt.A(t, d.Relations).Length(1)
	rec := d.Records[0]
	gt.Equal(t, rec.Title, "bot")
	gt.Equal(t, rec.Type, model.TypeAgent)
	gt.Equal(t, rec.String("model"), "gpt-4")
	gt.Equal(t, rec.Fields["enabled"].(bool), true)
	gt.Equal(t, rec.String("tools"), "[]")

	rel := d.Relations[0]
	gt.Equal(t, rel.SourceID, parent)
	gt.Equal(t, rel.TargetID, rec.ID)
	gt.Equal(t, rel.Type, model.RelationParentOf)
}

func TestDecomposeEmptyAndSingletons(t *testing.T) {
	gt.A(t, configdoc.Decompose(&model.Config{}, model.NewRecordID()).Records).Length(0)
	gt.A(t, configdoc.Decompose(nil, model.NewRecordID()).Records).Length(0)

	d := configdoc.Decompose(&model.Config{
		SessionConfig: &model.SessionConfig{},
		LoggingConfig: &model.LoggingConfig{},
	}, model.NewRecordID())
	gt.A(t, d.Records).Length(2)
	gt.Equal(t, d.Records[0].Title, "Session Config")
	gt.Equal(t, d.Records[0].Int("maxSessions"), 10)
	gt.Equal(t, d.Records[0].Int("sessionTimeout"), 3600)
	gt.Equal(t, d.Records[1].String("outputs"), `["stdout"]`)
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	repo := repository.NewFile(path)
	instID := registerInstance(t, repo)

	cfg := fullConfig()
	uc := configdoc.New(repo)
	result, err := uc.Import(ctx, instID, cfg)
	gt.NoError(t, err)
	gt.A(t, result.Created).Length(11)
	gt.Equal(t, result.Replaced, 0)

	// a fresh store reads the document back from disk
	exported, err := configdoc.New(repository.NewFile(path)).Export(ctx, instID)
	gt.NoError(t, err)
	gt.Equal(t, mustJSON(t, exported), mustJSON(t, cfg))
	gt.Equal(t, exported.Agents[1].Name, "123")
}

func TestImportExportRoundTripEverySectionWithEmptyValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	repo := repository.NewFile(path)
	instID := registerInstance(t, repo)

	cfg := &model.Config{
		Agents: []*model.AgentConfig{
			{Name: "bot", Model: "m", SystemPrompt: ptr(""), Tools: []string{},
				Channels: []string{}, Skills: []string{}, Enabled: ptr(true)},
		},
		Channels: []*model.ChannelConfig{
			{Type: "slack", Name: "team", Config: map[string]any{}, Enabled: ptr(false)},
		},
		ModelProviders: []*model.ModelProviderConfig{
			{Provider: "openai", Model: "gpt-4", APIKey: ptr(""), BaseURL: ptr(""), Enabled: ptr(true)},
		},
		Skills: []*model.SkillConfig{
			{Name: "summarize", Description: ptr("short"), Enabled: ptr(true), Config: map[string]any{}},
		},
		Tools: []*model.ToolConfig{
			{Name: "search", Type: "http", Config: map[string]any{}, Enabled: ptr(true)},
		},
		SessionConfig: &model.SessionConfig{MaxSessions: ptr(1), SessionTimeout: ptr(2), PersistSessions: ptr(false)},
		GatewayConfig: &model.GatewayConfig{Host: ptr("h"), Port: ptr(1), TLSEnabled: ptr(false),
			CertPath: ptr(""), KeyPath: ptr("")},
		TalkConfig:    &model.TalkConfig{Provider: ptr("p"), Voice: ptr("v"), Enabled: ptr(true)},
		BrowserConfig: &model.BrowserConfig{Enabled: ptr(true), Headless: ptr(false), Timeout: ptr(10)},
		Hooks: []*model.HookConfig{
			{URL: "https://hook", Events: []string{}, Secret: ptr(""), Enabled: ptr(true)},
		},
		CronJobs: []*model.CronJobConfig{
			{Name: "nightly", Schedule: "@daily", Action: "backup", Enabled: ptr(false)},
		},
		DiscoveryConfig: &model.DiscoveryConfig{Enabled: ptr(true), Port: ptr(5353), Interfaces: []string{}},
		IdentityConfig:  &model.IdentityConfig{Name: ptr("n"), DeviceID: ptr("d"), PublicKey: ptr("k")},
		CanvasConfig:    &model.CanvasConfig{Enabled: ptr(true), Port: ptr(1), AuthEnabled: ptr(false)},
		LoggingConfig:   &model.LoggingConfig{Level: ptr("warn"), Format: ptr("text"), Outputs: []string{}},
		UIConfig:        &model.UIConfig{Enabled: ptr(false), Port: ptr(2), Theme: ptr("light")},
	}

	result, err := configdoc.New(repo).Import(ctx, instID, cfg)
	gt.NoError(t, err)
	gt.A(t, result.Created).Length(16)

	exported, err := configdoc.New(repository.NewFile(path)).Export(ctx, instID)
	gt.NoError(t, err)
	gt.Equal(t, mustJSON(t, exported), mustJSON(t, cfg))
	gt.A(t, exported.LoggingConfig.Outputs).Length(0)
	gt.V(t, exported.DiscoveryConfig.Interfaces).NotNil()
}

func TestExportKeepsEmptyListsFromFile(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	instID := registerInstance(t, repo)

	doc, err := configdoc.LoadFromFile(writeFile(t, "openclaw.json", `{
		"agents": [{"name": "bot", "model": "m", "tools": []}],
		"discoveryConfig": {"interfaces": []}
	}`))
	gt.NoError(t, err)

	uc := configdoc.New(repo)
	_, err = uc.Import(ctx, instID, doc)
	gt.NoError(t, err)

	exported, err := uc.Export(ctx, instID)
	gt.NoError(t, err)
	m, err := exported.ToMap()
	gt.NoError(t, err)

	agent := m["agents"].([]any)[0].(map[string]any)
	gt.A(t, agent["tools"].([]any)).Length(0)
	discovery := m["discoveryConfig"].(map[string]any)
	gt.A(t, discovery["interfaces"].([]any)).Length(0)
}

func TestImportReplacesPreviousChildren(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	instID := registerInstance(t, repo)
	uc := configdoc.New(repo)

	_, err := uc.Import(ctx, instID, fullConfig())
	gt.NoError(t, err)

	next := &model.Config{Agents: []*model.AgentConfig{{Name: "only", Model: "m"}}}
	result, err := uc.Import(ctx, instID, next)
	gt.NoError(t, err)
	gt.Equal(t, result.Replaced, 11)

	exported, err := uc.Export(ctx, instID)
	gt.NoError(t, err)
	gt.A(t, exported.Agents).Length(1)
	gt.Equal(t, exported.Agents[0].Name, "only")
	gt.Nil(t, exported.GatewayConfig)

	ds, err := repo.Load(ctx)
	gt.NoError(t, err)
	gt.A(t, ds.Children(instID, true)).Length(12)
}

func TestImportInvalidWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	instID := registerInstance(t, repo)
	uc := configdoc.New(repo)

	_, err := uc.Import(ctx, instID, &model.Config{
		Agents: []*model.AgentConfig{{Name: "ok", Model: "m"}, {Name: "", Model: "m"}},
	})
	gt.True(t, errors.Is(err, model.ErrValidation))

	ds, err := repo.Load(ctx)
	gt.NoError(t, err)
	gt.A(t, ds.Records).Length(1)

	_, err = uc.Import(ctx, model.NewRecordID(), fullConfig())
	gt.True(t, errors.Is(err, model.ErrNotFound))
	_, err = uc.Export(ctx, model.NewRecordID())
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestDiffAddedAgent(t *testing.T) {
	a := &model.Config{Agents: []*model.AgentConfig{{Name: "bot", Model: "gpt-4"}}}
	b := &model.Config{Agents: []*model.AgentConfig{{Name: "bot", Model: "gpt-4"}, {Name: "new", Model: "m"}}}

	diff, err := configdoc.Diff(a, b)
	gt.NoError(t, err)
	added := diff.Added["agents"].([]any)
	gt.A(t, added).Length(1)
	gt.Equal(t, added[0].(map[string]any)["name"].(string), "new")
	_, removed := diff.Removed["agents"]
	gt.False(t, removed)

	same, err := configdoc.Diff(a, a)
	gt.NoError(t, err)
	gt.True(t, same.IsEmpty())

	fromNil, err := configdoc.Diff(nil, a)
	gt.NoError(t, err)
	gt.False(t, fromNil.IsEmpty())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFromFileJSON(t *testing.T) {
	path := writeFile(t, "openclaw.json", `{
		"agents": [{"name": "bot", "model": "gpt-4", "extra": true}],
		"gatewayConfig": {"port": 18789},
		"somethingElse": {"ignored": 1}
	}`)

	cfg, err := configdoc.LoadFromFile(path)
	gt.NoError(t, err)
	gt.A(t, cfg.Agents).Length(1)
	gt.Equal(t, cfg.Agents[0].Model, "gpt-4")
	gt.Equal(t, *cfg.GatewayConfig.Port, 18789)
	gt.S(t, mustJSON(t, cfg)).NotContains("somethingElse")
}

func TestLoadFromFileYAML(t *testing.T) {
	path := writeFile(t, "openclaw.yaml", `
agents:
  - name: bot
    model: gpt-4
    tools: [search]
channels:
  - type: slack
    name: team
    config:
      token: abc
loggingConfig:
  level: debug
`)

	cfg, err := configdoc.LoadFromFile(path)
	gt.NoError(t, err)
	gt.A(t, cfg.Agents).Length(1)
	gt.A(t, cfg.Agents[0].Tools).Length(1)
	gt.Equal(t, cfg.Channels[0].Config["token"].(string), "abc")
	gt.Equal(t, *cfg.LoggingConfig.Level, "debug")
}

func TestLoadFromFileRejectsWrongShape(t *testing.T) {
	for _, content := range []string{
		`{"agents": "not a list"}`,
		`{"gatewayConfig": {"port": "not a number"}}`,
		`[1, 2, 3]`,
		`{broken`,
	} {
		_, err := configdoc.LoadFromFile(writeFile(t, "bad.json", content))
		gt.True(t, errors.Is(err, model.ErrValidation))
	}

	_, err := configdoc.LoadFromFile(writeFile(t, "bad.yml", "agents: [\n"))
	gt.True(t, errors.Is(err, model.ErrValidation))
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := configdoc.LoadFromFile(filepath.Join(t.TempDir(), "none.json"))
	gt.True(t, errors.Is(err, model.ErrNotFound))
}

func TestLoadFromFileUnreadable(t *testing.T) {
	_, err := configdoc.LoadFromFile(t.TempDir())
	gt.True(t, errors.Is(err, model.ErrStorage))
	gt.False(t, errors.Is(err, model.ErrValidation))
}

func TestShowLatestSnapshotConfig(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	instID := registerInstance(t, repo)
	snaps := snapshot.New(repo)
	uc := configdoc.New(repo, configdoc.WithSnapshots(snaps))

	_, err := uc.Show(ctx, instID)
	gt.True(t, errors.Is(err, model.ErrNotFound))

	_, err = snaps.Capture(ctx, instID, &model.Presence{Config: map[string]any{"port": 1}})
	gt.NoError(t, err)
	_, err = snaps.Capture(ctx, instID, &model.Presence{Config: map[string]any{"port": 2}})
	gt.NoError(t, err)

	cfg, err := uc.Show(ctx, instID)
	gt.NoError(t, err)
	gt.Equal(t, cfg["port"].(float64), 2)
}
