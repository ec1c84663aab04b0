// ABOUTME: JSON-RPC 2.0 router exposing the tool catalog on POST /rpc.
// ABOUTME: Never throws to the transport; every outcome is a JSON-RPC envelope.

package mcp

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/macrolog/macro-gateway/internal/auth"
	"github.com/macrolog/macro-gateway/internal/tools"
)

// protocolVersion is the MCP protocol revision this server speaks.
const protocolVersion = "2024-11-05"

// maxBodyBytes caps the request body at 1 MiB.
const maxBodyBytes = 1 << 20

// JSON-RPC error codes.
const (
	codeInvalidRequest = -32600
	codeNotFound       = -32601
	codeParse          = -32700
	codeApplication    = -32000
	codeAuthRequired   = -32001
)

// rpcError is the error member of a JSON-RPC response envelope.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// response is a JSON-RPC 2.0 response envelope. ID is always present, even
// when null.
type response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

// errorData is the data payload attached to every error envelope.
type errorData struct {
	Kind               string `json:"kind"`
	CorrelationID      string `json:"correlationId"`
	Fields             any    `json:"fields,omitempty"`
	MissingFields      any    `json:"missingFields,omitempty"`
	MissingIngredients any    `json:"missingIngredients,omitempty"`
	HTTPStatus         int    `json:"httpStatus,omitempty"`
}

// callResult is the tools/call success payload: a free-text rendering plus
// the structured payload itself.
type callResult struct {
	Content           []contentBlock  `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
	CorrelationID     string          `json:"correlationId"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// catalogEntry is the tools/list wire shape for one tool.
type catalogEntry struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Tags         []string        `json:"tags"`
	Auth         string          `json:"auth"`
	Public       bool            `json:"public"`
	InputSchema  any             `json:"inputSchema"`
	OutputSchema any             `json:"outputSchema,omitempty"`
	Examples     []tools.Example `json:"examples,omitempty"`
}

// Server routes JSON-RPC envelopes to the tool executor.
type Server struct {
	executor *tools.Executor
	registry *tools.Registry
	resolver *auth.Resolver
	logger   *slog.Logger
	name     string
	version  string
}

// NewServer creates a router over a populated registry.
func NewServer(executor *tools.Executor, registry *tools.Registry, resolver *auth.Resolver, logger *slog.Logger, name, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		executor: executor,
		registry: registry,
		resolver: resolver,
		logger:   logger.With("component", "mcp"),
		name:     name,
		version:  version,
	}
}

// Routes registers the RPC endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/rpc", s.handleRPC)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	correlationID := uuid.New().String()
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var envelope json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		s.writeResponse(w, s.errorResponse(nil, codeParse, "Parse error", errorData{
			Kind: tools.KindValidation, CorrelationID: correlationID,
		}))
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(envelope, &raw); err != nil {
		// Valid JSON that is not an object cannot be a request envelope.
		s.writeResponse(w, s.invalidRequest(nil, correlationID))
		return
	}

	// Best-effort id extraction happens before envelope validation so even
	// invalid requests echo the caller's id.
	id := extractID(raw["id"])

	var version, method string
	if err := json.Unmarshal(raw["jsonrpc"], &version); err != nil || version != "2.0" {
		s.writeResponse(w, s.invalidRequest(id, correlationID))
		return
	}
	if err := json.Unmarshal(raw["method"], &method); err != nil || method == "" {
		s.writeResponse(w, s.invalidRequest(id, correlationID))
		return
	}

	switch method {
	case "initialize":
		s.writeResponse(w, response{JSONRPC: "2.0", ID: id, Result: map[string]any{
			"protocolVersion": protocolVersion,
			"serverInfo":      map[string]string{"name": s.name, "version": s.version},
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"correlationId":   correlationID,
		}})
	case "tools/list":
		s.writeResponse(w, response{JSONRPC: "2.0", ID: id, Result: map[string]any{
			"tools":         s.catalog(),
			"correlationId": correlationID,
		}})
	case "resources/list":
		s.writeResponse(w, response{JSONRPC: "2.0", ID: id, Result: map[string]any{
			"resources":     []any{},
			"correlationId": correlationID,
		}})
	case "prompts/list":
		s.writeResponse(w, response{JSONRPC: "2.0", ID: id, Result: map[string]any{
			"prompts":       []any{},
			"correlationId": correlationID,
		}})
	case "tools/call":
		s.writeResponse(w, s.handleCall(r, id, correlationID, raw["params"]))
	default:
		s.writeResponse(w, s.errorResponse(id, codeNotFound, "Method not found", errorData{
			Kind: tools.KindNotFound, CorrelationID: correlationID,
		}))
	}
}

func (s *Server) handleCall(r *http.Request, id any, correlationID string, rawParams json.RawMessage) response {
	var params struct {
		Name      json.RawMessage `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if rawParams == nil || json.Unmarshal(rawParams, &params) != nil {
		return s.invalidRequest(id, correlationID)
	}
	var name string
	if json.Unmarshal(params.Name, &name) != nil || name == "" {
		return s.invalidRequest(id, correlationID)
	}
	args := map[string]any{}
	if params.Arguments != nil {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return s.invalidRequest(id, correlationID)
		}
	}

	userID, err := s.resolver.ResolveHeaders(r.Context(), r.Header)
	if err != nil && !errors.Is(err, auth.ErrNoCredentials) {
		// Credentials were presented but did not verify.
		return s.errorResponse(id, codeAuthRequired, "authentication required", errorData{
			Kind:          tools.KindAuthRequired,
			CorrelationID: correlationID,
			HTTPStatus:    http.StatusUnauthorized,
		})
	}

	ctx := r.Context()
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	ec := tools.ExecContext{
		UserID:        userID,
		Headers:       flattenHeaders(r.Header),
		CorrelationID: correlationID,
	}
	result, err := s.executor.Execute(ctx, name, args, ec)
	if err != nil {
		return s.callError(id, correlationID, name, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("encoding tool result", "tool", name, "correlation_id", correlationID, "error", err)
		return s.errorResponse(id, codeApplication, "internal error", errorData{
			Kind: tools.KindInternal, CorrelationID: correlationID,
		})
	}
	return response{JSONRPC: "2.0", ID: id, Result: callResult{
		Content:           []contentBlock{{Type: "text", Text: string(payload)}},
		StructuredContent: payload,
		CorrelationID:     correlationID,
	}}
}

func (s *Server) callError(id any, correlationID, name string, err error) response {
	if errors.Is(err, tools.ErrUnknownTool) {
		return s.errorResponse(id, codeNotFound, "Tool not found: "+name, errorData{
			Kind: tools.KindNotFound, CorrelationID: correlationID,
		})
	}

	var domainErr *tools.Error
	if !errors.As(err, &domainErr) {
		s.logger.Error("unmapped tool error", "tool", name, "correlation_id", correlationID, "error", err)
		return s.errorResponse(id, codeApplication, "internal error", errorData{
			Kind: tools.KindInternal, CorrelationID: correlationID,
		})
	}

	data := errorData{Kind: domainErr.Kind, CorrelationID: correlationID}
	if len(domainErr.Fields) > 0 {
		data.Fields = domainErr.Fields
	}
	if len(domainErr.MissingFields) > 0 {
		data.MissingFields = domainErr.MissingFields
	}
	if len(domainErr.MissingIngredients) > 0 {
		data.MissingIngredients = domainErr.MissingIngredients
	}

	code := codeApplication
	if domainErr.Kind == tools.KindAuthRequired {
		code = codeAuthRequired
		data.HTTPStatus = http.StatusUnauthorized
	}
	return s.errorResponse(id, code, domainErr.Message, data)
}

func (s *Server) catalog() []catalogEntry {
	defs := s.registry.List()
	out := make([]catalogEntry, 0, len(defs))
	for _, def := range defs {
		entry := catalogEntry{
			Name:        def.Name,
			Description: def.Description,
			Tags:        def.Tags,
			Auth:        def.Auth,
			Public:      def.Public,
			InputSchema: def.InputSchema,
			Examples:    def.Examples,
		}
		if def.OutputSchema != nil {
			entry.OutputSchema = def.OutputSchema
		}
		out = append(out, entry)
	}
	return out
}

func (s *Server) invalidRequest(id any, correlationID string) response {
	return s.errorResponse(id, codeInvalidRequest, "Invalid Request", errorData{
		Kind: tools.KindValidation, CorrelationID: correlationID,
	})
}

func (s *Server) errorResponse(id any, code int, message string, data errorData) response {
	return response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message, Data: data}}
}

func (s *Server) writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("writing rpc response", "error", err)
	}
}

// extractID returns the request id when it is a string, number, or literal
// null; anything else (objects, arrays, booleans, absent) becomes null.
func extractID(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch v.(type) {
	case string, float64, nil:
		return v
	default:
		return nil
	}
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name := range h {
		out[name] = h.Get(name)
	}
	return out
}
