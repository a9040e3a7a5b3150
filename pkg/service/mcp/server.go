package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/configdoc"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/instance"
	"github.com/mxn2020/minions-openclaw/pkg/usecase/snapshot"
	"github.com/mxn2020/minions-openclaw/pkg/utils/logging"
)

// secretFields are never returned by tools
var secretFields = []string{"token", "devicePrivateKey"}

// Server exposes registry, snapshot and config operations as MCP tools
type Server struct {
	instances *instance.UseCase
	snapshots *snapshot.UseCase
	configs   *configdoc.UseCase
	server    *mcp.Server
}

type instanceParams struct {
	InstanceID string `json:"instance_id" jsonschema:"ID of a registered instance"`
}

type diffParams struct {
	SnapshotA string `json:"snapshot_a" jsonschema:"ID of the older snapshot"`
	SnapshotB string `json:"snapshot_b" jsonschema:"ID of the newer snapshot"`
}

// NewServer creates the MCP server and registers its tools
func NewServer(instances *instance.UseCase, snapshots *snapshot.UseCase, configs *configdoc.UseCase, version string) *Server {
	s := &Server{
		instances: instances,
		snapshots: snapshots,
		configs:   configs,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "openclaw-manager",
			Version: version,
		}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_instances",
		Description: "List registered OpenClaw gateway instances",
	}, s.listInstances)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_instance",
		Description: "Show one registered instance",
	}, s.getInstance)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ping_instance",
		Description: "Connect to an instance, measure handshake latency and record its status",
	}, s.pingInstance)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "capture_snapshot",
		Description: "Fetch agents, channels, models and config from an instance and store a snapshot",
	}, s.captureSnapshot)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_snapshots",
		Description: "List snapshots of an instance, newest first",
	}, s.listSnapshots)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "snapshot_history",
		Description: "Return the snapshot chain of an instance, newest first",
	}, s.snapshotHistory)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "diff_snapshots",
		Description: "Show the fields that differ between two snapshots",
	}, s.diffSnapshots)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export_config",
		Description: "Compose the configuration document stored under an instance",
	}, s.exportConfig)

	return s
}

// Run serves over stdio until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// Handler returns a streamable HTTP handler serving the tools
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to encode tool result")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, nil, nil
}

// errorResult reports err to the model as a tool error instead of a protocol failure
func errorResult(ctx context.Context, tool string, err error) (*mcp.CallToolResult, any, error) {
	logging.From(ctx).Warn("tool failed", "tool", tool, "error", err)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, nil, nil
}

func redact(rec *model.Record) *model.Record {
	out := rec.Clone()
	for _, k := range secretFields {
		delete(out.Fields, k)
	}
	return out
}

func redactAll(records []*model.Record) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	for _, r := range records {
		out = append(out, redact(r))
	}
	return out
}

func (s *Server) listInstances(ctx context.Context, req *mcp.CallToolRequest, _ *struct{}) (*mcp.CallToolResult, any, error) {
	list, err := s.instances.List(ctx)
	if err != nil {
		return errorResult(ctx, "list_instances", err)
	}
	return textResult(redactAll(list))
}

func (s *Server) getInstance(ctx context.Context, req *mcp.CallToolRequest, params *instanceParams) (*mcp.CallToolResult, any, error) {
	rec, err := s.instances.Get(ctx, model.RecordID(params.InstanceID))
	if err != nil {
		return errorResult(ctx, "get_instance", err)
	}
	return textResult(redact(rec))
}

func (s *Server) pingInstance(ctx context.Context, req *mcp.CallToolRequest, params *instanceParams) (*mcp.CallToolResult, any, error) {
	latency, err := s.instances.Ping(ctx, model.RecordID(params.InstanceID))
	if err != nil {
		return errorResult(ctx, "ping_instance", err)
	}
	return textResult(map[string]any{
		"instance_id": params.InstanceID,
		"latency_ms":  latency.Milliseconds(),
	})
}

func (s *Server) captureSnapshot(ctx context.Context, req *mcp.CallToolRequest, params *instanceParams) (*mcp.CallToolResult, any, error) {
	rec, err := s.snapshots.CaptureLive(ctx, model.RecordID(params.InstanceID))
	if err != nil {
		return errorResult(ctx, "capture_snapshot", err)
	}
	return textResult(rec)
}

func (s *Server) listSnapshots(ctx context.Context, req *mcp.CallToolRequest, params *instanceParams) (*mcp.CallToolResult, any, error) {
	list, err := s.snapshots.List(ctx, model.RecordID(params.InstanceID))
	if err != nil {
		return errorResult(ctx, "list_snapshots", err)
	}
	return textResult(list)
}

func (s *Server) snapshotHistory(ctx context.Context, req *mcp.CallToolRequest, params *instanceParams) (*mcp.CallToolResult, any, error) {
	list, err := s.snapshots.History(ctx, model.RecordID(params.InstanceID))
	if err != nil {
		return errorResult(ctx, "snapshot_history", err)
	}
	return textResult(list)
}

func (s *Server) diffSnapshots(ctx context.Context, req *mcp.CallToolRequest, params *diffParams) (*mcp.CallToolResult, any, error) {
	diff, err := s.snapshots.Compare(ctx, model.RecordID(params.SnapshotA), model.RecordID(params.SnapshotB))
	if err != nil {
		return errorResult(ctx, "diff_snapshots", err)
	}
	return textResult(diff)
}

func (s *Server) exportConfig(ctx context.Context, req *mcp.CallToolRequest, params *instanceParams) (*mcp.CallToolResult, any, error) {
	cfg, err := s.configs.Export(ctx, model.RecordID(params.InstanceID))
	if err != nil {
		return errorResult(ctx, "export_config", err)
	}
	return textResult(cfg)
}
