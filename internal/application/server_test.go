package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"azure-devops-mcp-server/internal/domain"
)

// fakeTransport is an in-memory Transport for server tests.
type fakeTransport struct {
	mu        sync.Mutex
	reqChan   chan *domain.Request
	responses []*domain.Response
	started   bool
	closed    bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		reqChan: make(chan *domain.Request, 10),
	}
}

func (t *fakeTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	return nil
}

func (t *fakeTransport) Send(response *domain.Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses = append(t.responses, response)
	return nil
}

func (t *fakeTransport) Receive() <-chan *domain.Request {
	return t.reqChan
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// waitForResponses polls until the transport has collected n responses.
func (t *fakeTransport) waitForResponses(tb testing.TB, n int) []*domain.Response {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		t.mu.Lock()
		count := len(t.responses)
		t.mu.Unlock()
		if count >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.responses) < n {
		tb.Fatalf("got %d responses, want %d", len(t.responses), n)
	}
	return append([]*domain.Response(nil), t.responses...)
}

func newTestServer(transport *fakeTransport) *Server {
	router := NewRequestRouter(&stubHandler{name: "story"})
	config := &domain.Config{Organization: "contoso", Project: "Proj", PAT: "token"}
	return NewServer(transport, router, config)
}

func TestServerInitialize(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	transport.reqChan <- &domain.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"}

	responses := transport.waitForResponses(t, 1)
	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result type: %T", resp.Result)
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion = %v", result["protocolVersion"])
	}
	serverInfo, _ := result["serverInfo"].(map[string]interface{})
	if serverInfo["name"] != "azure-devops-mcp-server" {
		t.Errorf("serverInfo = %v", serverInfo)
	}
}

func TestServerToolsList(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	transport.reqChan <- &domain.Request{JSONRPC: "2.0", ID: 2, Method: "tools/list"}

	responses := transport.waitForResponses(t, 1)
	if responses[0].Error != nil {
		t.Fatalf("unexpected error: %+v", responses[0].Error)
	}
}

func TestServerToolsCall(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	transport.reqChan <- &domain.Request{
		JSONRPC: "2.0",
		ID:      3,
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      "story_list",
			"arguments": map[string]interface{}{},
		},
	}

	responses := transport.waitForResponses(t, 1)
	resp := responses[0]
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	toolResp, ok := resp.Result.(*domain.ToolResponse)
	if !ok {
		t.Fatalf("unexpected result type: %T", resp.Result)
	}
	if toolResp.Content[0].Text != "handled by story" {
		t.Errorf("unexpected content: %+v", toolResp.Content)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	transport.reqChan <- &domain.Request{JSONRPC: "2.0", ID: 4, Method: "resources/list"}

	responses := transport.waitForResponses(t, 1)
	if responses[0].Error == nil || responses[0].Error.Code != domain.MethodNotFound {
		t.Errorf("expected MethodNotFound, got %+v", responses[0].Error)
	}
}

func TestServerUnknownToolMapsToMethodNotFound(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	transport.reqChan <- &domain.Request{
		JSONRPC: "2.0",
		ID:      5,
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name": "bug_list",
		},
	}

	responses := transport.waitForResponses(t, 1)
	if responses[0].Error == nil || responses[0].Error.Code != domain.MethodNotFound {
		t.Errorf("expected MethodNotFound, got %+v", responses[0].Error)
	}
}

func TestServerInvalidRequestVersion(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	transport.reqChan <- &domain.Request{JSONRPC: "1.0", ID: 6, Method: "initialize"}

	responses := transport.waitForResponses(t, 1)
	if responses[0].Error == nil || responses[0].Error.Code != domain.InvalidRequest {
		t.Errorf("expected InvalidRequest, got %+v", responses[0].Error)
	}
}

func TestServerMissingParams(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	transport.reqChan <- &domain.Request{JSONRPC: "2.0", ID: 7, Method: "tools/call"}

	responses := transport.waitForResponses(t, 1)
	if responses[0].Error == nil || responses[0].Error.Code != domain.InvalidParams {
		t.Errorf("expected InvalidParams, got %+v", responses[0].Error)
	}
}

func TestServerClose(t *testing.T) {
	transport := newFakeTransport()
	server := newTestServer(transport)

	if err := server.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !transport.closed {
		t.Error("transport was not closed")
	}
}
