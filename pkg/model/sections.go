package model

// List and map fields are tagged omitzero: an empty value is encoded, an
// absent one is left out.

type AgentConfig struct {
	Name         string   `json:"name" yaml:"name"`
	Model        string   `json:"model" yaml:"model"`
	SystemPrompt *string  `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
	Tools        []string `json:"tools,omitzero" yaml:"tools"`
	Channels     []string `json:"channels,omitzero" yaml:"channels"`
	Skills       []string `json:"skills,omitzero" yaml:"skills"`
	Enabled      *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (x *AgentConfig) Kind() SectionKind { return SectionAgent }
func (x *AgentConfig) Title() string     { return x.Name }
func (x *AgentConfig) place(c *Config)   { c.Agents = append(c.Agents, x) }

func (x *AgentConfig) Fields() map[string]any {
	return map[string]any{
		"name":         x.Name,
		"model":        x.Model,
		"systemPrompt": strOr(x.SystemPrompt, ""),
		"tools":        jsonText(x.Tools, "[]"),
		"channels":     jsonText(x.Channels, "[]"),
		"skills":       jsonText(x.Skills, "[]"),
		"enabled":      boolOr(x.Enabled, true),
	}
}

type ChannelConfig struct {
	Type    string         `json:"type" yaml:"type"`
	Name    string         `json:"name" yaml:"name"`
	Config  map[string]any `json:"config,omitzero" yaml:"config"`
	Enabled *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (x *ChannelConfig) Kind() SectionKind { return SectionChannel }
func (x *ChannelConfig) Title() string     { return x.Name }
func (x *ChannelConfig) place(c *Config)   { c.Channels = append(c.Channels, x) }

func (x *ChannelConfig) Fields() map[string]any {
	return map[string]any{
		"type":    x.Type,
		"name":    x.Name,
		"config":  jsonText(x.Config, "{}"),
		"enabled": boolOr(x.Enabled, true),
	}
}

type ModelProviderConfig struct {
	Provider string  `json:"provider" yaml:"provider"`
	Model    string  `json:"model" yaml:"model"`
	APIKey   *string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL  *string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (x *ModelProviderConfig) Kind() SectionKind { return SectionModelProvider }
func (x *ModelProviderConfig) Title() string     { return x.Provider + "/" + x.Model }
func (x *ModelProviderConfig) place(c *Config)   { c.ModelProviders = append(c.ModelProviders, x) }

func (x *ModelProviderConfig) Fields() map[string]any {
	return map[string]any{
		"provider": x.Provider,
		"model":    x.Model,
		"apiKey":   strOr(x.APIKey, ""),
		"baseUrl":  strOr(x.BaseURL, ""),
		"enabled":  boolOr(x.Enabled, true),
	}
}

type SkillConfig struct {
	Name        string         `json:"name" yaml:"name"`
	Description *string        `json:"description,omitempty" yaml:"description,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Config      map[string]any `json:"config,omitzero" yaml:"config"`
}

func (x *SkillConfig) Kind() SectionKind { return SectionSkill }
func (x *SkillConfig) Title() string     { return x.Name }
func (x *SkillConfig) place(c *Config)   { c.Skills = append(c.Skills, x) }

func (x *SkillConfig) Fields() map[string]any {
	return map[string]any{
		"name":        x.Name,
		"description": strOr(x.Description, ""),
		"enabled":     boolOr(x.Enabled, true),
		"config":      jsonText(x.Config, "{}"),
	}
}

type ToolConfig struct {
	Name    string         `json:"name" yaml:"name"`
	Type    string         `json:"type" yaml:"type"`
	Config  map[string]any `json:"config,omitzero" yaml:"config"`
	Enabled *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (x *ToolConfig) Kind() SectionKind { return SectionTool }
func (x *ToolConfig) Title() string     { return x.Name }
func (x *ToolConfig) place(c *Config)   { c.Tools = append(c.Tools, x) }

func (x *ToolConfig) Fields() map[string]any {
	return map[string]any{
		"name":    x.Name,
		"type":    x.Type,
		"config":  jsonText(x.Config, "{}"),
		"enabled": boolOr(x.Enabled, true),
	}
}

type SessionConfig struct {
	MaxSessions     *int  `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`
	SessionTimeout  *int  `json:"sessionTimeout,omitempty" yaml:"sessionTimeout,omitempty"`
	PersistSessions *bool `json:"persistSessions,omitempty" yaml:"persistSessions,omitempty"`
}

func (x *SessionConfig) Kind() SectionKind { return SectionSession }
func (x *SessionConfig) Title() string     { return "Session Config" }
func (x *SessionConfig) place(c *Config)   { c.SessionConfig = x }

func (x *SessionConfig) Fields() map[string]any {
	return map[string]any{
		"maxSessions":     intOr(x.MaxSessions, 10),
		"sessionTimeout":  intOr(x.SessionTimeout, 3600),
		"persistSessions": boolOr(x.PersistSessions, false),
	}
}

type GatewayConfig struct {
	Host       *string `json:"host,omitempty" yaml:"host,omitempty"`
	Port       *int    `json:"port,omitempty" yaml:"port,omitempty"`
	TLSEnabled *bool   `json:"tlsEnabled,omitempty" yaml:"tlsEnabled,omitempty"`
	CertPath   *string `json:"certPath,omitempty" yaml:"certPath,omitempty"`
	KeyPath    *string `json:"keyPath,omitempty" yaml:"keyPath,omitempty"`
}

func (x *GatewayConfig) Kind() SectionKind { return SectionGateway }
func (x *GatewayConfig) Title() string     { return "Gateway Config" }
func (x *GatewayConfig) place(c *Config)   { c.GatewayConfig = x }

func (x *GatewayConfig) Fields() map[string]any {
	return map[string]any{
		"host":       strOr(x.Host, "localhost"),
		"port":       intOr(x.Port, 8080),
		"tlsEnabled": boolOr(x.TLSEnabled, false),
		"certPath":   strOr(x.CertPath, ""),
		"keyPath":    strOr(x.KeyPath, ""),
	}
}

type TalkConfig struct {
	Provider *string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Voice    *string `json:"voice,omitempty" yaml:"voice,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (x *TalkConfig) Kind() SectionKind { return SectionTalk }
func (x *TalkConfig) Title() string     { return "Talk Config" }
func (x *TalkConfig) place(c *Config)   { c.TalkConfig = x }

func (x *TalkConfig) Fields() map[string]any {
	return map[string]any{
		"provider": strOr(x.Provider, ""),
		"voice":    strOr(x.Voice, ""),
		"enabled":  boolOr(x.Enabled, false),
	}
}

type BrowserConfig struct {
	Enabled  *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Headless *bool `json:"headless,omitempty" yaml:"headless,omitempty"`
	Timeout  *int  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (x *BrowserConfig) Kind() SectionKind { return SectionBrowser }
func (x *BrowserConfig) Title() string     { return "Browser Config" }
func (x *BrowserConfig) place(c *Config)   { c.BrowserConfig = x }

func (x *BrowserConfig) Fields() map[string]any {
	return map[string]any{
		"enabled":  boolOr(x.Enabled, false),
		"headless": boolOr(x.Headless, true),
		"timeout":  intOr(x.Timeout, 30000),
	}
}

type HookConfig struct {
	URL     string   `json:"url" yaml:"url"`
	Events  []string `json:"events,omitzero" yaml:"events"`
	Secret  *string  `json:"secret,omitempty" yaml:"secret,omitempty"`
	Enabled *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (x *HookConfig) Kind() SectionKind { return SectionHook }
func (x *HookConfig) Title() string     { return x.URL }
func (x *HookConfig) place(c *Config)   { c.Hooks = append(c.Hooks, x) }

func (x *HookConfig) Fields() map[string]any {
	return map[string]any{
		"url":     x.URL,
		"events":  jsonText(x.Events, "[]"),
		"secret":  strOr(x.Secret, ""),
		"enabled": boolOr(x.Enabled, true),
	}
}

type CronJobConfig struct {
	Name     string `json:"name" yaml:"name"`
	Schedule string `json:"schedule" yaml:"schedule"`
	Action   string `json:"action" yaml:"action"`
	Enabled  *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func (x *CronJobConfig) Kind() SectionKind { return SectionCronJob }
func (x *CronJobConfig) Title() string     { return x.Name }
func (x *CronJobConfig) place(c *Config)   { c.CronJobs = append(c.CronJobs, x) }

func (x *CronJobConfig) Fields() map[string]any {
	return map[string]any{
		"name":     x.Name,
		"schedule": x.Schedule,
		"action":   x.Action,
		"enabled":  boolOr(x.Enabled, true),
	}
}

type DiscoveryConfig struct {
	Enabled    *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Port       *int     `json:"port,omitempty" yaml:"port,omitempty"`
	Interfaces []string `json:"interfaces,omitzero" yaml:"interfaces"`
}

func (x *DiscoveryConfig) Kind() SectionKind { return SectionDiscovery }
func (x *DiscoveryConfig) Title() string     { return "Discovery Config" }
func (x *DiscoveryConfig) place(c *Config)   { c.DiscoveryConfig = x }

func (x *DiscoveryConfig) Fields() map[string]any {
	return map[string]any{
		"enabled":    boolOr(x.Enabled, false),
		"port":       intOr(x.Port, 5353),
		"interfaces": jsonText(x.Interfaces, "[]"),
	}
}

type IdentityConfig struct {
	Name      *string `json:"name,omitempty" yaml:"name,omitempty"`
	DeviceID  *string `json:"deviceId,omitempty" yaml:"deviceId,omitempty"`
	PublicKey *string `json:"publicKey,omitempty" yaml:"publicKey,omitempty"`
}

func (x *IdentityConfig) Kind() SectionKind { return SectionIdentity }
func (x *IdentityConfig) Title() string     { return strOr(x.Name, "Identity") }
func (x *IdentityConfig) place(c *Config)   { c.IdentityConfig = x }

func (x *IdentityConfig) Fields() map[string]any {
	return map[string]any{
		"name":      strOr(x.Name, ""),
		"deviceId":  strOr(x.DeviceID, ""),
		"publicKey": strOr(x.PublicKey, ""),
	}
}

type CanvasConfig struct {
	Enabled     *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Port        *int  `json:"port,omitempty" yaml:"port,omitempty"`
	AuthEnabled *bool `json:"authEnabled,omitempty" yaml:"authEnabled,omitempty"`
}

func (x *CanvasConfig) Kind() SectionKind { return SectionCanvas }
func (x *CanvasConfig) Title() string     { return "Canvas Config" }
func (x *CanvasConfig) place(c *Config)   { c.CanvasConfig = x }

func (x *CanvasConfig) Fields() map[string]any {
	return map[string]any{
		"enabled":     boolOr(x.Enabled, false),
		"port":        intOr(x.Port, 3000),
		"authEnabled": boolOr(x.AuthEnabled, true),
	}
}

type LoggingConfig struct {
	Level   *string  `json:"level,omitempty" yaml:"level,omitempty"`
	Format  *string  `json:"format,omitempty" yaml:"format,omitempty"`
	Outputs []string `json:"outputs,omitzero" yaml:"outputs"`
}

func (x *LoggingConfig) Kind() SectionKind { return SectionLogging }
func (x *LoggingConfig) Title() string     { return "Logging Config" }
func (x *LoggingConfig) place(c *Config)   { c.LoggingConfig = x }

func (x *LoggingConfig) Fields() map[string]any {
	return map[string]any{
		"level":   strOr(x.Level, "info"),
		"format":  strOr(x.Format, "json"),
		"outputs": jsonText(x.Outputs, `["stdout"]`),
	}
}

type UIConfig struct {
	Enabled *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Port    *int    `json:"port,omitempty" yaml:"port,omitempty"`
	Theme   *string `json:"theme,omitempty" yaml:"theme,omitempty"`
}

func (x *UIConfig) Kind() SectionKind { return SectionUI }
func (x *UIConfig) Title() string     { return "UI Config" }
func (x *UIConfig) place(c *Config)   { c.UIConfig = x }

func (x *UIConfig) Fields() map[string]any {
	return map[string]any{
		"enabled": boolOr(x.Enabled, false),
		"port":    intOr(x.Port, 3001),
		"theme":   strOr(x.Theme, "default"),
	}
}
