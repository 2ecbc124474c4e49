// Package mcpserver exposes basket building as MCP tools over HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/planner"
	"github.com/foxxcyber/meal-basket/internal/scenario"
)

var ErrUnknownTool = errors.New("unknown tool")

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

// Server answers MCP tools/call requests
type Server struct {
	planner  *planner.Planner
	library  *scenario.Library
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
	tools    map[string]toolHandler
}

// New creates the tool server. timeout bounds each tool call.
func New(p *planner.Planner, library *scenario.Library, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		planner:  p,
		library:  library,
		validate: validator.New(),
		timeout:  timeout,
		logger:   logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// Tools lists the registered tool names.
func (s *Server) Tools() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches one tool call.
func (s *Server) Call(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	handler, ok := s.tools[req.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, req.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return handler(ctx, req)
}

// ServeHTTP implements http.Handler for POSTed CallToolRequest bodies.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.Call(r.Context(), &request)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrUnknownTool), errors.Is(err, scenario.ErrScenarioNotFound):
			status = http.StatusNotFound
		case errors.Is(err, ErrInvalidParams):
			status = http.StatusBadRequest
		}
		s.logger.Warn("tool call failed", zap.String("tool", request.Name), zap.Error(err))
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
