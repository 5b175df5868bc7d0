package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/odoo-mcp-go/internal/jsonrpc"
	"github.com/ggoodman/odoo-mcp-go/internal/testlog"
	"github.com/ggoodman/odoo-mcp-go/mcp"
	"github.com/ggoodman/odoo-mcp-go/mcpservice"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type echoArgs struct {
	Message string `json:"message"`
}

func testTools() *mcpservice.ToolsContainer {
	echo := mcpservice.NewTool[echoArgs]("echo", func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[echoArgs]) error {
		return w.AppendText("you said: " + r.Args().Message)
	}, mcpservice.WithToolDescription("Echo a message"))

	block := mcpservice.NewTool[struct{}]("block", func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return w.AppendText("finished")
		}
	})

	explode := mcpservice.NewTool[struct{}]("explode", func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[struct{}]) error {
		panic("kaboom")
	})
	return mcpservice.NewToolsContainer(echo, block, explode)
}

const initLine = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"0.0.1"}}}`

// serve runs a handler over the given input lines until EOF and returns the
// responses keyed by request id.
func serve(t *testing.T, lines ...string) map[string]*jsonrpc.Response {
	t.Helper()
	return serveWith(t, nil, lines...)
}

func serveWith(t *testing.T, opts []Option, lines ...string) map[string]*jsonrpc.Response {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{
		WithIO(strings.NewReader(strings.Join(lines, "\n")+"\n"), &out),
		WithLogger(testlog.Logger(t)),
		WithServerInfo(mcp.ImplementationInfo{Name: "odoo-mcp", Version: "test"}),
	}, opts...)
	h := NewHandler(testTools(), opts...)
	if err := h.Serve(context.Background()); err != nil {
		t.Fatalf("Serve() failed: %v", err)
	}

	resps := make(map[string]*jsonrpc.Response)
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var msg jsonrpc.AnyMessage
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			t.Fatalf("server wrote invalid message %q: %v", sc.Text(), err)
		}
		if msg.Type() != "response" {
			t.Fatalf("expected response, got %s", msg.Type())
		}
		resps[msg.ID.String()] = msg.AsResponse()
	}
	return resps
}

func TestInitializeAndListTools(t *testing.T) {
	resps := serve(t,
		initLine,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":"p","method":"ping"}`,
	)
	if len(resps) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(resps))
	}

	var init mcp.InitializeResult
	if err := json.Unmarshal(resps["1"].Result, &init); err != nil {
		t.Fatalf("decode initialize result: %v", err)
	}
	if init.ProtocolVersion != mcp.LatestProtocolVersion || init.ServerInfo.Name != "odoo-mcp" || init.Capabilities.Tools == nil {
		t.Fatalf("unexpected initialize result %+v", init)
	}

	var list mcp.ListToolsResult
	if err := json.Unmarshal(resps["2"].Result, &list); err != nil {
		t.Fatalf("decode tools/list result: %v", err)
	}
	if len(list.Tools) != 3 || list.Tools[0].Name != "echo" {
		t.Fatalf("unexpected tools %+v", list.Tools)
	}

	if resps["p"].Error != nil || string(resps["p"].Result) != "{}" {
		t.Fatalf("unexpected ping response %+v", resps["p"])
	}
}

func TestUnsupportedProtocolVersionNegotiatesLatest(t *testing.T) {
	resps := serve(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"1999-01-01","capabilities":{},"clientInfo":{"name":"old","version":"1"}}}`)
	var init mcp.InitializeResult
	if err := json.Unmarshal(resps["1"].Result, &init); err != nil {
		t.Fatalf("decode initialize result: %v", err)
	}
	if init.ProtocolVersion != mcp.LatestProtocolVersion {
		t.Fatalf("ProtocolVersion = %q", init.ProtocolVersion)
	}
}

func TestToolsCall(t *testing.T) {
	resps := serve(t,
		initLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"missing"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{"bogus":1}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{}}`,
	)

	var res mcp.CallToolResult
	if err := json.Unmarshal(resps["2"].Result, &res); err != nil {
		t.Fatalf("decode tools/call result: %v", err)
	}
	if res.IsError || len(res.Content) != 1 || res.Content[0].Text != "you said: hi" {
		t.Fatalf("unexpected echo result %+v", res)
	}

	if e := resps["3"].Error; e == nil || e.Code != jsonrpc.ErrorCodeInvalidParams {
		t.Fatalf("unknown tool: expected invalid params, got %+v", resps["3"])
	}

	var bad mcp.CallToolResult
	if err := json.Unmarshal(resps["4"].Result, &bad); err != nil {
		t.Fatalf("decode invalid-arguments result: %v", err)
	}
	if !bad.IsError {
		t.Fatalf("unknown argument should produce an error result, got %+v", bad)
	}

	if e := resps["5"].Error; e == nil || e.Code != jsonrpc.ErrorCodeInvalidParams {
		t.Fatalf("missing name: expected invalid params, got %+v", resps["5"])
	}
}

func TestToolsRequireInitialize(t *testing.T) {
	resps := serve(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo"}}`,
	)
	for _, id := range []string{"1", "2"} {
		if e := resps[id].Error; e == nil || e.Code != jsonrpc.ErrorCodeInvalidRequest {
			t.Fatalf("request %s: expected invalid request, got %+v", id, resps[id])
		}
	}
}

func TestMalformedInput(t *testing.T) {
	var out bytes.Buffer
	h := NewHandler(testTools(), WithIO(strings.NewReader("{not json\n\n{\"jsonrpc\":\"1.0\",\"id\":1,\"method\":\"ping\"}\n"), &out), WithLogger(testlog.Logger(t)))
	if err := h.Serve(context.Background()); err != nil {
		t.Fatalf("Serve() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 error responses, got %q", out.String())
	}
	var first, second jsonrpc.Response
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Error == nil || first.Error.Code != jsonrpc.ErrorCodeParseError {
		t.Fatalf("expected parse error, got %s", lines[0])
	}
	if second.Error == nil || second.Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid request, got %s", lines[1])
	}
	if !strings.Contains(lines[0], `"id":null`) {
		t.Fatalf("error response must carry a null id: %s", lines[0])
	}
}

func TestOversizedLineIsSkipped(t *testing.T) {
	long := `{"jsonrpc":"2.0","id":5,"method":"ping","params":{"pad":"` + strings.Repeat("x", 1000) + `"}}`
	resps := serveWith(t, []Option{WithMaxLineSize(300)},
		initLine,
		long,
		`{"jsonrpc":"2.0","id":6,"method":"ping"}`,
	)

	if e := resps[""].Error; e == nil || e.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid request for the long line, got %+v", resps[""])
	}
	if _, ok := resps["5"]; ok {
		t.Fatal("oversized request must not be dispatched")
	}
	if r, ok := resps["6"]; !ok || r.Error != nil {
		t.Fatalf("message after the long line was not served: %+v", r)
	}
}

func TestReadLine(t *testing.T) {
	in := strings.Repeat("a", 40) + "\n" + "short\n" + strings.Repeat("b", 15) + "\n" + "tail"
	br := bufio.NewReaderSize(strings.NewReader(in), 16)

	want := []struct {
		line    string
		tooLong bool
	}{
		{"", true},
		{"short", false},
		{strings.Repeat("b", 15), false},
		{"tail", false},
	}
	for i, w := range want {
		line, err := readLine(br, 20)
		if w.tooLong {
			if err != errLineTooLong {
				t.Fatalf("line %d: err = %v, want errLineTooLong", i, err)
			}
			continue
		}
		if err != nil || string(line) != w.line {
			t.Fatalf("line %d = %q, %v; want %q", i, line, err, w.line)
		}
	}
	if _, err := readLine(br, 20); err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestDuplicateInflightID(t *testing.T) {
	start := time.Now()
	resps := serve(t,
		initLine,
		`{"jsonrpc":"2.0","id":"dup","method":"tools/call","params":{"name":"block"}}`,
		`{"jsonrpc":"2.0","id":"dup","method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":"dup"}}`,
	)
	if time.Since(start) > 4*time.Second {
		t.Fatal("cancellation did not reach the first call")
	}
	if e := resps["dup"].Error; e == nil || e.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid request for the reused id, got %+v", resps["dup"])
	}
}

func TestUnknownMethod(t *testing.T) {
	resps := serve(t, `{"jsonrpc":"2.0","id":9,"method":"resources/list"}`)
	if e := resps["9"].Error; e == nil || e.Code != jsonrpc.ErrorCodeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resps["9"])
	}
}

func TestCancelledToolCall(t *testing.T) {
	start := time.Now()
	resps := serve(t,
		initLine,
		`{"jsonrpc":"2.0","id":"slow","method":"tools/call","params":{"name":"block"}}`,
		`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":"slow","reason":"user abort"}}`,
	)
	if time.Since(start) > 4*time.Second {
		t.Fatalf("cancellation did not reach the tool")
	}
	if resp, ok := resps["slow"]; ok {
		t.Fatalf("cancelled request must not be answered, got %+v", resp)
	}
	if _, ok := resps["1"]; !ok {
		t.Fatalf("initialize response missing")
	}
}

func TestToolPanicBecomesInternalError(t *testing.T) {
	resps := serve(t,
		initLine,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"explode"}}`,
	)
	if e := resps["2"].Error; e == nil || e.Code != jsonrpc.ErrorCodeInternalError {
		t.Fatalf("expected internal error, got %+v", resps["2"])
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	h := NewHandler(testTools(), WithIO(r, io.Discard), WithLogger(testlog.Logger(t)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Serve() did not return after cancel")
	}
	if err := h.Serve(context.Background()); err == nil {
		t.Fatalf("second Serve() should fail")
	}
}

func TestSDKClientSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientIn, serverOut := io.Pipe()
	serverIn, clientOut := io.Pipe()
	h := NewHandler(testTools(),
		WithIO(serverIn, serverOut),
		WithLogger(testlog.Logger(t)),
		WithServerInfo(mcp.ImplementationInfo{Name: "odoo-mcp", Version: "test"}),
	)
	done := make(chan error, 1)
	go func() {
		done <- h.Serve(ctx)
		serverOut.Close()
	}()

	client := sdk.NewClient(&sdk.Implementation{Name: "sdk-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, &sdk.IOTransport{Reader: clientIn, Writer: clientOut}, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	lt, err := cs.ListTools(ctx, &sdk.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(lt.Tools) != 3 || lt.Tools[0].Name != "echo" {
		t.Fatalf("unexpected tools %+v", lt.Tools)
	}

	res, err := cs.CallTool(ctx, &sdk.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"message": "hello"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError || len(res.Content) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok || text.Text != "you said: hello" {
		t.Fatalf("unexpected content %#v", res.Content[0])
	}

	if err := cs.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Serve() did not return after the client closed")
	}
}
