// ABOUTME: HTTP-level tests for the JSON-RPC router: envelope validation,
// ABOUTME: id echoing, method dispatch, auth gating, and error envelopes.

package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolog/macro-gateway/internal/auth"
	"github.com/macrolog/macro-gateway/internal/dedupe"
	"github.com/macrolog/macro-gateway/internal/drafts"
	"github.com/macrolog/macro-gateway/internal/products"
	"github.com/macrolog/macro-gateway/internal/recipes"
	"github.com/macrolog/macro-gateway/internal/store"
	"github.com/macrolog/macro-gateway/internal/tools"
	"github.com/macrolog/macro-gateway/internal/users"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *auth.JWTVerifier) {
	t.Helper()
	st := store.NewMemoryStore()
	cache := dedupe.New(30*time.Second, 64)
	t.Cleanup(cache.Close)

	registry := tools.NewCatalog(tools.Services{
		Drafts:   drafts.NewService(st, nil),
		Products: products.NewService(st, cache, nil),
		Users:    users.NewService(st, nil),
		Recipes:  recipes.NewService(st, nil),
	})
	verifier := auth.NewJWTVerifier([]byte(testSecret))
	resolver := auth.NewResolver(st, verifier, nil)
	server := NewServer(tools.NewExecutor(registry, nil), registry, resolver, nil, "macro-gateway", "test")

	mux := http.NewServeMux()
	server.Routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, verifier
}

func rpc(t *testing.T, ts *httptest.Server, token, body string) map[string]any {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "2.0", out["jsonrpc"])
	return out
}

func rpcErrorOf(t *testing.T, envelope map[string]any) (code float64, data map[string]any) {
	t.Helper()
	errObj, ok := envelope["error"].(map[string]any)
	require.True(t, ok, "expected an error envelope, got %v", envelope)
	data, _ = errObj["data"].(map[string]any)
	return errObj["code"].(float64), data
}

func token(t *testing.T, v *auth.JWTVerifier, subject string) string {
	t.Helper()
	tok, err := v.Generate(subject, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestInvalidEnvelopeEchoesID(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"id": 7, "method": "tools/list"}`)
	code, _ := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32600), code)
	assert.Equal(t, float64(7), out["id"])
}

func TestNonScalarIDBecomesNull(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": {"nested": true}, "method": "nope"}`)
	assert.Nil(t, out["id"])
}

func TestParseErrorOnGarbage(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{not json`)
	code, _ := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32700), code)
}

func TestInitialize(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": "init-1", "method": "initialize"}`)

	result := out["result"].(map[string]any)
	assert.Equal(t, "init-1", out["id"])
	assert.NotEmpty(t, result["protocolVersion"])
	assert.NotEmpty(t, result["correlationId"])
	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, "macro-gateway", serverInfo["name"])
}

func TestToolsListIsAliasFreeMetadata(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`)

	result := out["result"].(map[string]any)
	list := result["tools"].([]any)
	names := make(map[string]bool, len(list))
	for _, raw := range list {
		entry := raw.(map[string]any)
		names[entry["name"].(string)] = true
		assert.NotNil(t, entry["inputSchema"])
	}
	assert.True(t, names["recipeDraft.create"])
	assert.True(t, names["products.search"])
	assert.False(t, names["create_recipe_draft"], "aliases must not appear in the catalog")
}

func TestEmptyCollectionsMethods(t *testing.T) {
	ts, _ := newTestServer(t)
	for method, key := range map[string]string{"resources/list": "resources", "prompts/list": "prompts"} {
		out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": 1, "method": "`+method+`"}`)
		result := out["result"].(map[string]any)
		assert.Empty(t, result[key])
	}
}

func TestUnknownMethod(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": 1, "method": "tools/destroy"}`)
	code, _ := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32601), code)
}

func TestUnknownToolName(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": {"name": "recipes.obliterate", "arguments": {}}}`)
	code, _ := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32601), code)
}

func TestCallWithoutParamsIsInvalidRequest(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": 1, "method": "tools/call"}`)
	code, _ := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32600), code)
}

func TestAuthRequiredToolWithoutToken(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "", `{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": {"name": "recipeDraft.create", "arguments": {"title": "Borscht"}}}`)

	code, data := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32001), code)
	assert.Equal(t, "AUTH_REQUIRED", data["kind"])
	assert.Equal(t, float64(401), data["httpStatus"])
	assert.NotEmpty(t, data["correlationId"])
}

func TestInvalidTokenRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	out := rpc(t, ts, "garbage-token", `{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": {"name": "products.search", "arguments": {"query": "oat"}}}`)
	code, data := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32001), code)
	assert.Equal(t, float64(401), data["httpStatus"])
}

func TestCallHappyPath(t *testing.T) {
	ts, verifier := newTestServer(t)
	tok := token(t, verifier, "ext-user-1")

	out := rpc(t, ts, tok, `{"jsonrpc": "2.0", "id": 42, "method": "tools/call",
		"params": {"name": "recipeDraft.create", "arguments": {"title": "Borscht", "servings": "6"}}}`)

	require.Nil(t, out["error"], "unexpected error: %v", out["error"])
	result := out["result"].(map[string]any)
	assert.NotEmpty(t, result["correlationId"])

	structured := result["structuredContent"].(map[string]any)
	assert.Equal(t, "Borscht", structured["title"])
	assert.Equal(t, float64(6), structured["servings"])
	assert.Equal(t, "DRAFT", structured["status"])

	content := result["content"].([]any)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])
	assert.Contains(t, block["text"], "Borscht")
}

func TestValidationErrorEnvelope(t *testing.T) {
	ts, verifier := newTestServer(t)
	tok := token(t, verifier, "ext-user-1")

	out := rpc(t, ts, tok, `{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": {"name": "profile.update", "arguments": {"heightCm": "tall"}}}`)

	code, data := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32000), code)
	assert.Equal(t, "VALIDATION_ERROR", data["kind"])
	fields := data["fields"].([]any)
	require.Len(t, fields, 1)
	field := fields[0].(map[string]any)
	assert.Equal(t, "heightCm", field["path"])
}

func TestDraftIncompleteEnvelope(t *testing.T) {
	ts, verifier := newTestServer(t)
	tok := token(t, verifier, "ext-user-1")

	created := rpc(t, ts, tok, `{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": {"name": "recipeDraft.create", "arguments": {"title": "Empty"}}}`)
	draftID := created["result"].(map[string]any)["structuredContent"].(map[string]any)["id"].(string)

	out := rpc(t, ts, tok, `{"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		"params": {"name": "recipeDraft.publish", "arguments": {"draftId": "`+draftID+`"}}}`)

	code, data := rpcErrorOf(t, out)
	assert.Equal(t, float64(-32000), code)
	assert.Equal(t, "DRAFT_INCOMPLETE", data["kind"])
	assert.Contains(t, data["missingFields"], "ingredients")
}

func TestSameExternalIdentityResolvesToOneUser(t *testing.T) {
	ts, verifier := newTestServer(t)
	tok := token(t, verifier, "ext-user-1")

	created := rpc(t, ts, tok, `{"jsonrpc": "2.0", "id": 1, "method": "tools/call",
		"params": {"name": "recipeDraft.create", "arguments": {"title": "Kasha"}}}`)
	draftID := created["result"].(map[string]any)["structuredContent"].(map[string]any)["id"].(string)

	// A second token for the same subject reaches the same user's drafts.
	tok2 := token(t, verifier, "ext-user-1")
	out := rpc(t, ts, tok2, `{"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		"params": {"name": "recipeDraft.get", "arguments": {"draftId": "`+draftID+`"}}}`)
	require.Nil(t, out["error"])
}

func TestGetOnlyPostAccepted(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/rpc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
