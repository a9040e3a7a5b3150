package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Config is a gateway configuration document. Optional scalar fields are
// pointers so that absence can be told apart from a zero value when defaults
// are applied at decomposition.
type Config struct {
	Agents          []*AgentConfig         `json:"agents,omitempty" yaml:"agents,omitempty"`
	Channels        []*ChannelConfig       `json:"channels,omitempty" yaml:"channels,omitempty"`
	ModelProviders  []*ModelProviderConfig `json:"modelProviders,omitempty" yaml:"modelProviders,omitempty"`
	Skills          []*SkillConfig         `json:"skills,omitempty" yaml:"skills,omitempty"`
	Tools           []*ToolConfig          `json:"tools,omitempty" yaml:"tools,omitempty"`
	SessionConfig   *SessionConfig         `json:"sessionConfig,omitempty" yaml:"sessionConfig,omitempty"`
	GatewayConfig   *GatewayConfig         `json:"gatewayConfig,omitempty" yaml:"gatewayConfig,omitempty"`
	TalkConfig      *TalkConfig            `json:"talkConfig,omitempty" yaml:"talkConfig,omitempty"`
	BrowserConfig   *BrowserConfig         `json:"browserConfig,omitempty" yaml:"browserConfig,omitempty"`
	Hooks           []*HookConfig          `json:"hooks,omitempty" yaml:"hooks,omitempty"`
	CronJobs        []*CronJobConfig       `json:"cronJobs,omitempty" yaml:"cronJobs,omitempty"`
	DiscoveryConfig *DiscoveryConfig       `json:"discoveryConfig,omitempty" yaml:"discoveryConfig,omitempty"`
	IdentityConfig  *IdentityConfig        `json:"identityConfig,omitempty" yaml:"identityConfig,omitempty"`
	CanvasConfig    *CanvasConfig          `json:"canvasConfig,omitempty" yaml:"canvasConfig,omitempty"`
	LoggingConfig   *LoggingConfig         `json:"loggingConfig,omitempty" yaml:"loggingConfig,omitempty"`
	UIConfig        *UIConfig              `json:"uiConfig,omitempty" yaml:"uiConfig,omitempty"`
}

type SectionKind int

const (
	SectionAgent SectionKind = iota
	SectionChannel
	SectionModelProvider
	SectionSkill
	SectionTool
	SectionSession
	SectionGateway
	SectionTalk
	SectionBrowser
	SectionHook
	SectionCronJob
	SectionDiscovery
	SectionIdentity
	SectionCanvas
	SectionLogging
	SectionUI
)

// SectionInfo maps a section kind to its record type and document key
type SectionInfo struct {
	Kind   SectionKind
	TypeID TypeID
	Key    string
	List   bool
}

var sectionInfos = []SectionInfo{
	{SectionAgent, TypeAgent, "agents", true},
	{SectionChannel, TypeChannel, "channels", true},
	{SectionModelProvider, TypeModelProvider, "modelProviders", true},
	{SectionSkill, TypeSkill, "skills", true},
	{SectionTool, TypeToolConfig, "tools", true},
	{SectionSession, TypeSessionConfig, "sessionConfig", false},
	{SectionGateway, TypeGatewayConfig, "gatewayConfig", false},
	{SectionTalk, TypeTalkConfig, "talkConfig", false},
	{SectionBrowser, TypeBrowserConfig, "browserConfig", false},
	{SectionHook, TypeHook, "hooks", true},
	{SectionCronJob, TypeCronJob, "cronJobs", true},
	{SectionDiscovery, TypeDiscoveryConfig, "discoveryConfig", false},
	{SectionIdentity, TypeIdentityConfig, "identityConfig", false},
	{SectionCanvas, TypeCanvasConfig, "canvasConfig", false},
	{SectionLogging, TypeLoggingConfig, "loggingConfig", false},
	{SectionUI, TypeUIConfig, "uiConfig", false},
}

// SectionInfos returns every section kind in document order
func SectionInfos() []SectionInfo {
	return append([]SectionInfo{}, sectionInfos...)
}

// Info returns the static description of the kind
func (k SectionKind) Info() SectionInfo {
	return sectionInfos[k]
}

// SectionKindOf resolves a record type to a section kind
func SectionKindOf(typeID TypeID) (SectionKind, bool) {
	for _, s := range sectionInfos {
		if s.TypeID == typeID {
			return s.Kind, true
		}
	}
	return 0, false
}

// Section is one decomposable unit of a config document
type Section interface {
	Kind() SectionKind
	// Title is the title of the child record
	Title() string
	// Fields returns flattened field values with defaults applied. JSON
	// typed fields are serialized as JSON text.
	Fields() map[string]any
	place(c *Config)
}

// Sections returns the non-empty sections of the document in document order
func (c *Config) Sections() []Section {
	var out []Section
	for _, a := range c.Agents {
		out = append(out, a)
	}
	for _, x := range c.Channels {
		out = append(out, x)
	}
	for _, x := range c.ModelProviders {
		out = append(out, x)
	}
	for _, x := range c.Skills {
		out = append(out, x)
	}
	for _, x := range c.Tools {
		out = append(out, x)
	}
	if c.SessionConfig != nil {
		out = append(out, c.SessionConfig)
	}
	if c.GatewayConfig != nil {
		out = append(out, c.GatewayConfig)
	}
	if c.TalkConfig != nil {
		out = append(out, c.TalkConfig)
	}
	if c.BrowserConfig != nil {
		out = append(out, c.BrowserConfig)
	}
	for _, x := range c.Hooks {
		out = append(out, x)
	}
	for _, x := range c.CronJobs {
		out = append(out, x)
	}
	if c.DiscoveryConfig != nil {
		out = append(out, c.DiscoveryConfig)
	}
	if c.IdentityConfig != nil {
		out = append(out, c.IdentityConfig)
	}
	if c.CanvasConfig != nil {
		out = append(out, c.CanvasConfig)
	}
	if c.LoggingConfig != nil {
		out = append(out, c.LoggingConfig)
	}
	if c.UIConfig != nil {
		out = append(out, c.UIConfig)
	}
	return out
}

// Add places a section into the document: appended for list kinds, set for singletons
func (c *Config) Add(s Section) {
	s.place(c)
}

// ToMap converts the document into its generic JSON form
func (c *Config) ToMap() (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal config")
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal config")
	}
	return out, nil
}

// ConfigFromMap converts a generic JSON form into a document. Unknown keys are dropped.
func ConfigFromMap(m map[string]any) (*Config, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, goerr.Wrap(ErrValidation, "config is not serializable", goerr.V("error", err.Error()))
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, goerr.Wrap(ErrValidation, "config does not match document shape", goerr.V("error", err.Error()))
	}
	return &cfg, nil
}

// SectionFromRecord rebuilds a section from a child record. Fields declared
// as JSON in the record type are parsed back; other values are used as is.
func SectionFromRecord(r *Record) (Section, error) {
	kind, ok := SectionKindOf(r.Type)
	if !ok {
		return nil, goerr.Wrap(ErrValidation, "record is not a config section", goerr.V("type", r.Type))
	}
	def, _ := LookupType(r.Type)

	values := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		f, known := def.Field(k)
		if !known {
			continue
		}
		if s, isStr := v.(string); isStr && f.Kind == FieldJSON {
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				v = parsed
			}
		}
		values[k] = v
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal section fields", goerr.V("record_id", r.ID))
	}
	s := newSection(kind)
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, goerr.Wrap(ErrValidation, "record fields do not match section shape",
			goerr.V("record_id", r.ID), goerr.V("type", r.Type), goerr.V("error", err.Error()))
	}
	return s, nil
}

func newSection(kind SectionKind) Section {
	switch kind {
	case SectionAgent:
		return &AgentConfig{}
	case SectionChannel:
		return &ChannelConfig{}
	case SectionModelProvider:
		return &ModelProviderConfig{}
	case SectionSkill:
		return &SkillConfig{}
	case SectionTool:
		return &ToolConfig{}
	case SectionSession:
		return &SessionConfig{}
	case SectionGateway:
		return &GatewayConfig{}
	case SectionTalk:
		return &TalkConfig{}
	case SectionBrowser:
		return &BrowserConfig{}
	case SectionHook:
		return &HookConfig{}
	case SectionCronJob:
		return &CronJobConfig{}
	case SectionDiscovery:
		return &DiscoveryConfig{}
	case SectionIdentity:
		return &IdentityConfig{}
	case SectionCanvas:
		return &CanvasConfig{}
	case SectionLogging:
		return &LoggingConfig{}
	default:
		return &UIConfig{}
	}
}

func jsonText(v any, fallback string) string {
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return fallback
	}
	return string(raw)
}

func strOr(p *string, d string) string {
	if p == nil {
		return d
	}
	return *p
}

func intOr(p *int, d int) int {
	if p == nil {
		return d
	}
	return *p
}

func boolOr(p *bool, d bool) bool {
	if p == nil {
		return d
	}
	return *p
}
