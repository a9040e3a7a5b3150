package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/mxn2020/minions-openclaw/pkg/model"
)

func TestSectionFieldsDefaults(t *testing.T) {
	agent := &model.AgentConfig{Name: "bot", Model: "gpt-4"}
	fields := agent.Fields()
	gt.Equal(t, fields["enabled"].(bool), true)
	gt.Equal(t, fields["systemPrompt"].(string), "")
	gt.Equal(t, fields["tools"].(string), "[]")

	gw := &model.GatewayConfig{}
	gt.Equal(t, gw.Fields()["host"].(string), "localhost")
	gt.Equal(t, gw.Fields()["port"].(int), 8080)

	logCfg := &model.LoggingConfig{}
	gt.Equal(t, logCfg.Fields()["outputs"].(string), `["stdout"]`)

	gt.Equal(t, (&model.IdentityConfig{}).Title(), "Identity")
	name := "edge-1"
	gt.Equal(t, (&model.IdentityConfig{Name: &name}).Title(), "edge-1")
	gt.Equal(t, (&model.ModelProviderConfig{Provider: "openai", Model: "gpt-4o"}).Title(), "openai/gpt-4o")
}

func TestSectionFromRecordParsesJSONFields(t *testing.T) {
	agent := &model.AgentConfig{Name: "123", Model: "m", Tools: []string{"search"}}
	rec := model.NewRecord(model.TypeAgent, agent.Title(), agent.Fields())

	s, err := model.SectionFromRecord(rec)
	gt.NoError(t, err)
	restored, ok := s.(*model.AgentConfig)
	gt.True(t, ok)
	gt.Equal(t, restored.Name, "123")
	gt.A(t, restored.Tools).Length(1)
	gt.Equal(t, restored.Tools[0], "search")
	gt.Equal(t, *restored.Enabled, true)
}

func TestSectionFromRecordUnknownType(t *testing.T) {
	rec := model.NewRecord(model.TypeInstance, "i", map[string]any{"url": "ws://x"})
	_, err := model.SectionFromRecord(rec)
	gt.Error(t, err)
}

func TestConfigFromMapDropsUnknownKeys(t *testing.T) {
	cfg, err := model.ConfigFromMap(map[string]any{
		"agents":  []any{map[string]any{"name": "bot", "model": "gpt-4", "mood": "happy"}},
		"unknown": map[string]any{"x": 1},
	})
	gt.NoError(t, err)
	gt.A(t, cfg.Agents).Length(1)

	m, err := cfg.ToMap()
	gt.NoError(t, err)
	_, hasUnknown := m["unknown"]
	gt.False(t, hasUnknown)
	_, hasMood := m["agents"].([]any)[0].(map[string]any)["mood"]
	gt.False(t, hasMood)
}

func TestDiffConfigMapsAddedAgent(t *testing.T) {
	a := map[string]any{
		"agents": []any{map[string]any{"name": "bot", "model": "gpt-4"}},
	}
	b := map[string]any{
		"agents": []any{
			map[string]any{"name": "bot", "model": "gpt-4"},
			map[string]any{"name": "helper", "model": "claude"},
		},
	}

	diff := model.DiffConfigMaps(a, b)
	added, ok := diff.Added["agents"].([]any)
	gt.True(t, ok)
	gt.A(t, added).Length(1)
	gt.Equal(t, added[0].(map[string]any)["name"].(string), "helper")

	_, hasRemoved := diff.Removed["agents"]
	gt.False(t, hasRemoved)
	gt.Equal(t, len(diff.Changed), 0)
}

func TestDiffConfigMapsModifiedItemIsRemoveAndAdd(t *testing.T) {
	a := map[string]any{"hooks": []any{map[string]any{"url": "https://a"}}}
	b := map[string]any{"hooks": []any{map[string]any{"url": "https://b"}}}

	diff := model.DiffConfigMaps(a, b)
	gt.A(t, diff.Added["hooks"].([]any)).Length(1)
	gt.A(t, diff.Removed["hooks"].([]any)).Length(1)
}

func TestDiffConfigMapsSingletons(t *testing.T) {
	a := map[string]any{
		"gatewayConfig": map[string]any{"host": "localhost", "port": float64(8080)},
		"talkConfig":    map[string]any{"voice": "alto"},
	}
	b := map[string]any{
		"gatewayConfig": map[string]any{"host": "localhost", "port": float64(9090), "tlsEnabled": true},
		"uiConfig":      map[string]any{"theme": "dark"},
	}

	diff := model.DiffConfigMaps(a, b)

	changed := diff.Changed["gatewayConfig"]
	gt.Equal(t, len(changed), 2)
	gt.Equal(t, changed["port"].From.(float64), 8080)
	gt.Equal(t, changed["port"].To.(float64), 9090)
	gt.Nil(t, changed["tlsEnabled"].From)

	_, uiAdded := diff.Added["uiConfig"]
	gt.True(t, uiAdded)
	_, talkRemoved := diff.Removed["talkConfig"]
	gt.True(t, talkRemoved)
}

func TestDiffConfigMapsEqual(t *testing.T) {
	a := map[string]any{
		"agents":        []any{map[string]any{"name": "bot"}},
		"sessionConfig": map[string]any{"maxSessions": float64(3)},
	}
	gt.True(t, model.DiffConfigMaps(a, a).IsEmpty())
}
