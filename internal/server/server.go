package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
	"github.com/ironsheep/ihc-metrics-mcp/internal/imaging"
)

// Name is the MCP implementation name announced to clients.
const Name = "ihc-metrics-mcp"

// Server exposes the IHC metrics engine as MCP tools.
type Server struct {
	cache  *imaging.ImageCache
	cal    ihc.Calibration
	logger *slog.Logger
	mcp    *mcp.Server
}

// New creates a server using cal as the base calibration for every tool call.
// A nil logger discards log output.
func New(cal ihc.Calibration, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cache:  imaging.NewImageCache(),
		cal:    cal,
		logger: logger,
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, &mcp.ServerOptions{
		Logger: logger,
		Instructions: "Quantitative IHC metrics for DAB-stained slides. Cells come from an upstream " +
			"detector as bounding boxes and masks; ihc_analyze grades them and returns H-Score, IRS and densities.",
	})
	for _, tool := range ToolDefinitions() {
		s.mcp.AddTool(tool, s.toolHandler(tool.Name))
	}
	return s
}

// Run serves a single MCP session on t until the client disconnects or ctx is
// canceled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("mcp server starting", "tools", len(ToolDefinitions()), "pixels_per_mm", s.cal.PixelsPerMM)
	return s.mcp.Run(ctx, t)
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// toolHandler adapts executeTool to the SDK's handler signature.
//
// Results are returned as pretty-printed JSON text. Text reports are returned
// verbatim and cell crops additionally carry the PNG as image content. Tool
// failures are reported in the result with IsError set, not as protocol errors.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		args := req.Params.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}

		result, err := s.safeExecuteTool(ctx, name, args)
		if err != nil {
			s.logger.Warn("tool failed", "tool", name, "error", err, "duration", time.Since(start))
			res := &mcp.CallToolResult{}
			res.SetError(err)
			return res, nil
		}
		s.logger.Debug("tool completed", "tool", name, "duration", time.Since(start))

		switch r := result.(type) {
		case string:
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: r}}}, nil
		case *imaging.CropResult:
			return &mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("cell crop %dx%d", r.Width, r.Height)},
				&mcp.ImageContent{Data: r.PNG, MIMEType: r.MimeType},
			}}, nil
		default:
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: mustMarshalJSON(result)}}}, nil
		}
	}
}

// safeExecuteTool runs executeTool and turns a handler panic into a tool error
// so that one bad call cannot take the server down.
func (s *Server) safeExecuteTool(ctx context.Context, name string, args json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "tool panic recovered",
				"tool", name,
				"panic", r,
				"stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("internal error in %s: %v", name, r)
		}
	}()
	return s.executeTool(ctx, name, args)
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
