// Package mcp exposes flow authoring over the Model Context Protocol, so an assistant can
// install, inspect and validate the active flow.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FlowURI is the resource holding the active flow.
const FlowURI = "chatflow://flow"

// ValidationReport is the structured result of validate_flow.
type ValidationReport struct {
	FlowID   string           `json:"flow_id" jsonschema_description:"Identifier of the checked flow"`
	Valid    bool             `json:"valid" jsonschema_description:"False when the flow would be rejected or has error findings"`
	Findings []domain.Finding `json:"findings" jsonschema_description:"Structural problems found in the flow"`
}

// SessionLister lists the sessions currently suspended in a flow.
type SessionLister interface {
	Sessions(ctx context.Context) ([]string, error)
}

// Server exposes a flow store as an MCP server.
type Server struct {
	flows       ports.FlowStore
	sessions    SessionLister
	transcripts ports.TranscriptReader
	version     string
	logger      *slog.Logger
	mcpServer   *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the list_sessions tool.
func WithSessions(l SessionLister) Option {
	return func(s *Server) {
		s.sessions = l
	}
}

// WithTranscripts enables the get_transcript tool.
func WithTranscripts(r ports.TranscriptReader) Option {
	return func(s *Server) {
		s.transcripts = r
	}
}

// WithVersion sets the version announced to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(flows ports.FlowStore, opts ...Option) *Server {
	s := &Server{
		flows:   flows,
		version: "dev",
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("chatflow-mcp", s.version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Handle("/sse", sseServer.SSEHandler())
	r.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: r}
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("install_flow",
		mcp.WithDescription("Install a flow, replacing the active one. Sessions continue against the new flow on their next event."),
		mcp.WithString("flow", mcp.Required(), mcp.Description("Flow document (JSON or YAML) with flowId, startBlockId and blocks")),
	), s.handleInstallFlow)

	s.mcpServer.AddTool(mcp.NewTool("current_flow",
		mcp.WithDescription("Return the active flow as JSON."),
	), s.handleCurrentFlow)

	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Check a flow for dangling references, unreachable blocks and message cycles without installing it. Checks the active flow when no document is given."),
		mcp.WithString("flow", mcp.Description("Flow document (JSON or YAML); optional")),
		mcp.WithOutputSchema[ValidationReport](),
	), mcp.NewStructuredToolHandler(s.handleValidateFlow))

	s.mcpServer.AddTool(mcp.NewTool("flow_diagram",
		mcp.WithDescription("Render the active flow as a Mermaid flowchart."),
	), s.handleFlowDiagram)

	if s.sessions != nil {
		s.mcpServer.AddTool(mcp.NewTool("list_sessions",
			mcp.WithDescription("List the sessions currently waiting for user input."),
		), s.handleListSessions)
	}

	if s.transcripts != nil {
		s.mcpServer.AddTool(mcp.NewTool("get_transcript",
			mcp.WithDescription("Return the recorded messages of one session."),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		), s.handleGetTranscript)
	}
}

func (s *Server) handleInstallFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := request.RequireString("flow")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := file.Parse([]byte(doc))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid flow: %v", err)), nil
	}
	if err := s.flows.Install(ctx, g); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("install rejected: %v", err)), nil
	}
	s.logger.Info("Flow installed via MCP", "flow_id", g.FlowID)

	msg := fmt.Sprintf("Installed flow %q with %d blocks.", g.FlowID, len(g.Blocks))
	if findings := g.Lint(); len(findings) > 0 {
		msg += fmt.Sprintf(" %d lint findings; run validate_flow for details.", len(findings))
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) handleCurrentFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, ok := s.flows.Current()
	if !ok {
		return mcp.NewToolResultError(domain.ErrUnconfigured.Error()), nil
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleValidateFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (ValidationReport, error) {
	var g *domain.Graph
	if doc, _ := args["flow"].(string); doc != "" {
		parsed, err := file.Parse([]byte(doc))
		if err != nil {
			return ValidationReport{
				Findings: []domain.Finding{{Severity: domain.SeverityError, Message: err.Error()}},
			}, nil
		}
		g = parsed
	} else {
		current, ok := s.flows.Current()
		if !ok {
			return ValidationReport{}, domain.ErrUnconfigured
		}
		g = current
	}

	findings := g.Lint()
	if findings == nil {
		findings = []domain.Finding{}
	}
	return ValidationReport{
		FlowID:   g.FlowID,
		Valid:    !domain.HasErrors(findings),
		Findings: findings,
	}, nil
}

func (s *Server) handleFlowDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, ok := s.flows.Current()
	if !ok {
		return mcp.NewToolResultError(domain.ErrUnconfigured.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, nil)), nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.Sessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sessions failed: %v", err)), nil
	}
	if ids == nil {
		ids = []string{}
	}
	data, _ := json.Marshal(ids)
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	records, err := s.transcripts.List(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read transcript failed: %v", err)), nil
	}
	if records == nil {
		records = []domain.TranscriptRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowURI, "Active Flow",
		mcp.WithResourceDescription("The flow currently installed, in its authoring JSON form."),
		mcp.WithMIMEType("application/json"),
	), s.readFlowResource)
}

func (s *Server) readFlowResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	g, ok := s.flows.Current()
	if !ok {
		return nil, domain.ErrUnconfigured
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to encode flow: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FlowURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
