// Package inspector exposes the runtime registry and event journal over the
// Model Context Protocol, so a client can list live components, look at
// their models and views, and read recent runtime events.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"mvukit/internal/component"
	"mvukit/internal/journal"
	"mvukit/internal/report"
	"mvukit/internal/view"
)

// maxNameDistance is how far a name may be from a query and still match.
const maxNameDistance = 3

// EventSource is where recent events are read from.
type EventSource interface {
	Recent(ctx context.Context, q journal.Query) ([]journal.Entry, error)
}

// Config holds configuration for the inspector server.
type Config struct {
	ServerName    string
	ServerVersion string
}

// Server wraps the MCP server with runtime inspection tools.
type Server struct {
	mcpServer *mcp.Server
	registry  *component.Registry
	events    EventSource
	dump      func(view.Node) string
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithEvents enables the recent_events tool.
func WithEvents(src EventSource) Option {
	return func(s *Server) { s.events = src }
}

// WithViewDump sets how views are rendered to text for inspect_component.
func WithViewDump(fn func(view.Node) string) Option {
	return func(s *Server) {
		if fn != nil {
			s.dump = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates an inspector for registry.
func NewServer(cfg Config, registry *component.Registry, opts ...Option) (*Server, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "mvukit-inspector"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "1.0.0"
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.ServerName,
			Version: cfg.ServerVersion,
		}, nil),
		registry: registry,
		dump:     summarize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s, nil
}

// ComponentSummary describes one live component.
type ComponentSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ParentID        string `json:"parent_id,omitempty"`
	Status          string `json:"status"`
	Started         string `json:"started" jsonschema:"start time, RFC 3339"`
	Updates         uint64 `json:"updates"`
	PendingCommands int    `json:"pending_commands"`
	QueueLen        int    `json:"queue_len"`
	Dropped         uint64 `json:"dropped"`
	Error           string `json:"error,omitempty"`
}

// ListComponentsArgs defines the input for list_components.
type ListComponentsArgs struct {
	Filter string `json:"filter,omitempty" jsonschema:"component name or part of it; close misspellings match too"`
}

// ListComponentsResult defines the output for list_components.
type ListComponentsResult struct {
	Components []ComponentSummary `json:"components" jsonschema:"live components"`
}

// InspectComponentArgs defines the input for inspect_component.
type InspectComponentArgs struct {
	ID   string `json:"id,omitempty" jsonschema:"component id"`
	Name string `json:"name,omitempty" jsonschema:"component name, used when id is empty"`
}

// InspectComponentResult defines the output for inspect_component.
type InspectComponentResult struct {
	Component ComponentSummary `json:"component"`
	Model     string           `json:"model" jsonschema:"current model state"`
	View      string           `json:"view" jsonschema:"current view as text"`
}

// RecentEventsArgs defines the input for recent_events.
type RecentEventsArgs struct {
	ComponentID string `json:"component_id,omitempty" jsonschema:"only events of this component"`
	Kind        string `json:"kind,omitempty" jsonschema:"only events of this kind, e.g. command_failed"`
	Limit       int    `json:"limit,omitempty" jsonschema:"number of events to return"`
}

// Event is one journal entry.
type Event struct {
	ID          int64  `json:"id"`
	Time        string `json:"time" jsonschema:"RFC 3339"`
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	ComponentID string `json:"component_id,omitempty"`
	Component   string `json:"component,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RecentEventsResult defines the output for recent_events.
type RecentEventsResult struct {
	Events []Event `json:"events" jsonschema:"newest first"`
}

// CloseComponentArgs defines the input for close_component.
type CloseComponentArgs struct {
	ID string `json:"id" jsonschema:"component id"`
}

// CloseComponentResult defines the output for close_component.
type CloseComponentResult struct {
	Closed bool `json:"closed"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_components",
		Description: "List live components with their status, update count, queued messages and outstanding commands. Optionally filter by name.",
	}, s.handleListComponents)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "inspect_component",
		Description: "Show the current model and rendered view of one component, looked up by id or by (approximate) name.",
	}, s.handleInspectComponent)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recent_events",
		Description: "Read recent runtime events from the journal: component starts and terminations, failed or panicking commands, dropped messages and transform failures.",
	}, s.handleRecentEvents)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "close_component",
		Description: "Close a component. Its outstanding commands are canceled and its children terminate with it.",
	}, s.handleCloseComponent)
}

func (s *Server) handleListComponents(_ context.Context, _ *mcp.CallToolRequest, args ListComponentsArgs) (*mcp.CallToolResult, ListComponentsResult, error) {
	infos := s.registry.List()
	if args.Filter != "" {
		infos = rankByName(infos, args.Filter)
	}
	out := ListComponentsResult{Components: make([]ComponentSummary, 0, len(infos))}
	for _, info := range infos {
		out.Components = append(out.Components, summaryOf(info))
	}
	return nil, out, nil
}

func (s *Server) handleInspectComponent(_ context.Context, _ *mcp.CallToolRequest, args InspectComponentArgs) (*mcp.CallToolResult, InspectComponentResult, error) {
	info, err := s.lookup(args.ID, args.Name)
	if err != nil {
		return nil, InspectComponentResult{}, err
	}

	var model string
	s.registry.Inspect(info.ID, func(m any) {
		model = fmt.Sprintf("%+v", m)
	})

	var rendered string
	if root, ok := s.registry.Widget(info.ID); ok {
		rendered = s.dump(root.Load())
	}

	return nil, InspectComponentResult{
		Component: summaryOf(info),
		Model:     model,
		View:      rendered,
	}, nil
}

func (s *Server) handleRecentEvents(ctx context.Context, _ *mcp.CallToolRequest, args RecentEventsArgs) (*mcp.CallToolResult, RecentEventsResult, error) {
	if s.events == nil {
		return nil, RecentEventsResult{}, errors.New("event journal is disabled")
	}
	limit := args.Limit
	if limit == 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	entries, err := s.events.Recent(ctx, journal.Query{
		ComponentID: args.ComponentID,
		Kind:        report.Kind(args.Kind),
		Limit:       limit,
	})
	if err != nil {
		return nil, RecentEventsResult{}, fmt.Errorf("failed to query events: %w", err)
	}
	out := RecentEventsResult{Events: make([]Event, len(entries))}
	for i, e := range entries {
		out.Events[i] = Event{
			ID:          e.EventID,
			Time:        e.RecordedAt.Format(time.RFC3339Nano),
			Kind:        e.Kind,
			Severity:    e.Severity,
			ComponentID: e.ComponentID,
			Component:   e.Component,
			Subject:     e.Subject,
			Error:       e.Error,
		}
	}
	return nil, out, nil
}

func (s *Server) handleCloseComponent(_ context.Context, _ *mcp.CallToolRequest, args CloseComponentArgs) (*mcp.CallToolResult, CloseComponentResult, error) {
	if args.ID == "" {
		return nil, CloseComponentResult{}, errors.New("id is required")
	}
	if !s.registry.Close(args.ID) {
		return nil, CloseComponentResult{}, fmt.Errorf("no component with id %q", args.ID)
	}
	s.logger.Info("component closed by inspector", "component_id", args.ID)
	return nil, CloseComponentResult{Closed: true}, nil
}

func (s *Server) lookup(id, name string) (component.Info, error) {
	if id != "" {
		info, ok := s.registry.Get(id)
		if !ok {
			return component.Info{}, fmt.Errorf("no component with id %q", id)
		}
		return info, nil
	}
	if name == "" {
		return component.Info{}, errors.New("id or name is required")
	}
	ranked := rankByName(s.registry.List(), name)
	if len(ranked) == 0 {
		return component.Info{}, fmt.Errorf("no component named like %q", name)
	}
	return ranked[0], nil
}

// Start serves MCP on stdio until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting inspector on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP on the given transport until ctx ends.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcpServer.Run(ctx, t)
}

// rankByName keeps components whose name contains query or is within
// maxNameDistance edits of it, closest first.
func rankByName(infos []component.Info, query string) []component.Info {
	q := strings.ToLower(query)
	type scored struct {
		info component.Info
		dist int
	}
	var hits []scored
	for _, info := range infos {
		name := strings.ToLower(info.Name)
		d := levenshtein.ComputeDistance(q, name)
		switch {
		case name == q:
			d = -2
		case strings.Contains(name, q):
			d = -1
		case d > maxNameDistance:
			continue
		}
		hits = append(hits, scored{info: info, dist: d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]component.Info, len(hits))
	for i, h := range hits {
		out[i] = h.info
	}
	return out
}

func summaryOf(info component.Info) ComponentSummary {
	s := ComponentSummary{
		ID:              info.ID,
		Name:            info.Name,
		ParentID:        info.ParentID,
		Status:          info.Status.String(),
		Started:         info.Started.Format(time.RFC3339Nano),
		Updates:         info.Updates,
		PendingCommands: info.PendingCommands,
		QueueLen:        info.QueueLen,
		Dropped:         info.Dropped,
	}
	if info.Err != nil {
		s.Error = info.Err.Error()
	}
	return s
}

// summarize is the fallback view dump: node counts by kind.
func summarize(n view.Node) string {
	if n == nil {
		return "(no view)"
	}
	counts := view.Count(n)
	kinds := make([]view.Kind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}
