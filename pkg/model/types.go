package model

import (
	"github.com/m-mizutani/goerr/v2"
)

type FieldKind string

const (
	FieldString   FieldKind = "string"
	FieldTextarea FieldKind = "textarea"
	FieldNumber   FieldKind = "number"
	FieldBoolean  FieldKind = "boolean"
	FieldDate     FieldKind = "date"
	FieldJSON     FieldKind = "json"
)

// FieldDef describes one field of a record type
type FieldDef struct {
	Name     string
	Kind     FieldKind
	Required bool
	Label    string
}

// TypeDef describes a record type. Field order is the display order.
type TypeDef struct {
	ID          TypeID
	Name        string
	Description string
	Fields      []FieldDef
}

const (
	TypeInstance        TypeID = "openclaw-instance"
	TypeSnapshot        TypeID = "openclaw-snapshot"
	TypeAgent           TypeID = "openclaw-agent"
	TypeChannel         TypeID = "openclaw-channel"
	TypeModelProvider   TypeID = "openclaw-model-provider"
	TypeSkill           TypeID = "openclaw-skill"
	TypeToolConfig      TypeID = "openclaw-tool-config"
	TypeHook            TypeID = "openclaw-hook"
	TypeCronJob         TypeID = "openclaw-cron-job"
	TypeSessionConfig   TypeID = "openclaw-session-config"
	TypeGatewayConfig   TypeID = "openclaw-gateway-config"
	TypeTalkConfig      TypeID = "openclaw-talk-config"
	TypeBrowserConfig   TypeID = "openclaw-browser-config"
	TypeDiscoveryConfig TypeID = "openclaw-discovery-config"
	TypeIdentityConfig  TypeID = "openclaw-identity-config"
	TypeCanvasConfig    TypeID = "openclaw-canvas-config"
	TypeLoggingConfig   TypeID = "openclaw-logging-config"
	TypeUIConfig        TypeID = "openclaw-ui-config"
)

func req(name string, kind FieldKind, label string) FieldDef {
	return FieldDef{Name: name, Kind: kind, Required: true, Label: label}
}

func opt(name string, kind FieldKind, label string) FieldDef {
	return FieldDef{Name: name, Kind: kind, Label: label}
}

var typeDefs = []*TypeDef{
	{ID: TypeInstance, Name: "OpenClaw Instance", Description: "A registered OpenClaw Gateway endpoint", Fields: []FieldDef{
		req("url", FieldString, "Gateway URL (ws:// or wss://)"),
		opt("token", FieldString, "Auth Token"),
		opt("deviceId", FieldString, "Device ID"),
		opt("devicePublicKey", FieldString, "Device Public Key"),
		opt("devicePrivateKey", FieldString, "Device Private Key"),
		opt("status", FieldString, "Status"),
		opt("lastPingAt", FieldDate, "Last Ping At"),
		opt("lastPingLatencyMs", FieldNumber, "Last Ping Latency (ms)"),
		opt("version", FieldString, "Version"),
	}},
	{ID: TypeSnapshot, Name: "OpenClaw Snapshot", Description: "Point-in-time capture of a gateway", Fields: []FieldDef{
		req("instanceId", FieldString, "Instance ID"),
		opt("capturedAt", FieldDate, "Captured At"),
		opt("config", FieldTextarea, "Config JSON"),
		opt("agentCount", FieldNumber, "Agent Count"),
		opt("channelCount", FieldNumber, "Channel Count"),
		opt("modelCount", FieldNumber, "Model Count"),
	}},
	{ID: TypeAgent, Name: "OpenClaw Agent", Fields: []FieldDef{
		req("name", FieldString, "Name"),
		req("model", FieldString, "Model"),
		opt("systemPrompt", FieldTextarea, "System Prompt"),
		opt("tools", FieldJSON, "Tools (JSON)"),
		opt("channels", FieldJSON, "Channels (JSON)"),
		opt("skills", FieldJSON, "Skills (JSON)"),
		opt("enabled", FieldBoolean, "Enabled"),
	}},
	{ID: TypeChannel, Name: "OpenClaw Channel", Fields: []FieldDef{
		req("type", FieldString, "Type"),
		req("name", FieldString, "Name"),
		opt("config", FieldJSON, "Config (JSON)"),
		opt("enabled", FieldBoolean, "Enabled"),
	}},
	{ID: TypeModelProvider, Name: "OpenClaw Model Provider", Fields: []FieldDef{
		req("provider", FieldString, "Provider"),
		req("model", FieldString, "Model"),
		opt("apiKey", FieldString, "API Key"),
		opt("baseUrl", FieldString, "Base URL"),
		opt("enabled", FieldBoolean, "Enabled"),
	}},
	{ID: TypeSkill, Name: "OpenClaw Skill", Fields: []FieldDef{
		req("name", FieldString, "Name"),
		opt("description", FieldTextarea, "Description"),
		opt("enabled", FieldBoolean, "Enabled"),
		opt("config", FieldJSON, "Config (JSON)"),
	}},
	{ID: TypeToolConfig, Name: "OpenClaw Tool Config", Fields: []FieldDef{
		req("name", FieldString, "Name"),
		req("type", FieldString, "Type"),
		opt("config", FieldJSON, "Config (JSON)"),
		opt("enabled", FieldBoolean, "Enabled"),
	}},
	{ID: TypeHook, Name: "OpenClaw Hook", Fields: []FieldDef{
		req("url", FieldString, "URL"),
		opt("events", FieldJSON, "Events (JSON)"),
		opt("secret", FieldString, "Secret"),
		opt("enabled", FieldBoolean, "Enabled"),
	}},
	{ID: TypeCronJob, Name: "OpenClaw Cron Job", Fields: []FieldDef{
		req("name", FieldString, "Name"),
		req("schedule", FieldString, "Schedule (cron)"),
		req("action", FieldString, "Action"),
		opt("enabled", FieldBoolean, "Enabled"),
	}},
	{ID: TypeSessionConfig, Name: "OpenClaw Session Config", Fields: []FieldDef{
		opt("maxSessions", FieldNumber, "Max Sessions"),
		opt("sessionTimeout", FieldNumber, "Session Timeout (s)"),
		opt("persistSessions", FieldBoolean, "Persist Sessions"),
	}},
	{ID: TypeGatewayConfig, Name: "OpenClaw Gateway Config", Fields: []FieldDef{
		opt("host", FieldString, "Host"),
		opt("port", FieldNumber, "Port"),
		opt("tlsEnabled", FieldBoolean, "TLS Enabled"),
		opt("certPath", FieldString, "Cert Path"),
		opt("keyPath", FieldString, "Key Path"),
	}},
	{ID: TypeTalkConfig, Name: "OpenClaw Talk Config", Fields: []FieldDef{
		opt("provider", FieldString, "Provider"),
		opt("voice", FieldString, "Voice"),
		opt("enabled", FieldBoolean, "Enabled"),
	}},
	{ID: TypeBrowserConfig, Name: "OpenClaw Browser Config", Fields: []FieldDef{
		opt("enabled", FieldBoolean, "Enabled"),
		opt("headless", FieldBoolean, "Headless"),
		opt("timeout", FieldNumber, "Timeout (ms)"),
	}},
	{ID: TypeDiscoveryConfig, Name: "OpenClaw Discovery Config", Fields: []FieldDef{
		opt("enabled", FieldBoolean, "Enabled"),
		opt("port", FieldNumber, "Port"),
		opt("interfaces", FieldJSON, "Interfaces (JSON)"),
	}},
	{ID: TypeIdentityConfig, Name: "OpenClaw Identity Config", Fields: []FieldDef{
		opt("name", FieldString, "Name"),
		opt("deviceId", FieldString, "Device ID"),
		opt("publicKey", FieldString, "Public Key"),
	}},
	{ID: TypeCanvasConfig, Name: "OpenClaw Canvas Config", Fields: []FieldDef{
		opt("enabled", FieldBoolean, "Enabled"),
		opt("port", FieldNumber, "Port"),
		opt("authEnabled", FieldBoolean, "Auth Enabled"),
	}},
	{ID: TypeLoggingConfig, Name: "OpenClaw Logging Config", Fields: []FieldDef{
		opt("level", FieldString, "Level"),
		opt("format", FieldString, "Format"),
		opt("outputs", FieldJSON, "Outputs (JSON)"),
	}},
	{ID: TypeUIConfig, Name: "OpenClaw UI Config", Fields: []FieldDef{
		opt("enabled", FieldBoolean, "Enabled"),
		opt("port", FieldNumber, "Port"),
		opt("theme", FieldString, "Theme"),
	}},
}

var typeIndex = func() map[TypeID]*TypeDef {
	m := make(map[TypeID]*TypeDef, len(typeDefs))
	for _, t := range typeDefs {
		m[t.ID] = t
	}
	return m
}()

// TypeDefs returns every known record type
func TypeDefs() []*TypeDef {
	return append([]*TypeDef{}, typeDefs...)
}

// LookupType returns the type definition for id
func LookupType(id TypeID) (*TypeDef, bool) {
	t, ok := typeIndex[id]
	return t, ok
}

// Field returns the definition of the named field
func (t *TypeDef) Field(name string) (FieldDef, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Validate checks required fields and value kinds of the record against its type.
// A required string field must not be empty.
func (t *TypeDef) Validate(r *Record) error {
	for _, f := range t.Fields {
		v, ok := r.Fields[f.Name]
		if !ok || v == nil {
			if f.Required {
				return goerr.Wrap(ErrValidation, "required field is missing",
					goerr.V("type", t.ID), goerr.V("field", f.Name))
			}
			continue
		}
		if !f.Kind.accepts(v) {
			return goerr.Wrap(ErrValidation, "field has invalid value",
				goerr.V("type", t.ID), goerr.V("field", f.Name), goerr.V("value", v))
		}
		if s, isStr := v.(string); isStr && f.Required && s == "" {
			return goerr.Wrap(ErrValidation, "required field is empty",
				goerr.V("type", t.ID), goerr.V("field", f.Name))
		}
	}
	return nil
}

func (k FieldKind) accepts(v any) bool {
	switch k {
	case FieldString, FieldTextarea, FieldDate, FieldJSON:
		_, ok := v.(string)
		return ok
	case FieldNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case FieldBoolean:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}
