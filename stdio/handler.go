package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ggoodman/odoo-mcp-go/internal/jsonrpc"
	"github.com/ggoodman/odoo-mcp-go/internal/logctx"
	"github.com/ggoodman/odoo-mcp-go/mcp"
	"github.com/ggoodman/odoo-mcp-go/mcpservice"
)

// DefaultMaxLineSize bounds one inbound JSON-RPC message.
const DefaultMaxLineSize = 4 << 20

// Tools is the capability served by the handler. *mcpservice.ToolsContainer
// satisfies it.
type Tools interface {
	ListTools(cursor string) mcp.ListToolsResult
	Call(ctx context.Context, req *mcp.CallToolRequestReceived) (*mcp.CallToolResult, error)
}

// Handler is a single-connection stdio transport that reads JSON-RPC messages
// from an io.Reader and writes responses to an io.Writer. By default, it uses
// os.Stdin and os.Stdout.
type Handler struct {
	tools        Tools
	info         mcp.ImplementationInfo
	instructions string

	r       io.Reader
	w       io.Writer
	l       *slog.Logger
	maxLine int

	wmu sync.Mutex

	initialized atomic.Bool
	served      atomic.Bool

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(tools Tools, opts ...Option) *Handler {
	h := &Handler{
		tools:    tools,
		info:     mcp.ImplementationInfo{Name: "odoo-mcp", Version: "dev"},
		r:        os.Stdin,
		w:        os.Stdout,
		l:        slog.Default(),
		maxLine:  DefaultMaxLineSize,
		inflight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve runs the stdio event loop until EOF on the reader or the context is
// canceled. It waits for in-flight tool calls to write their responses
// before returning. It is safe to call at most once per Handler.
func (h *Handler) Serve(ctx context.Context) error {
	if !h.served.CompareAndSwap(false, true) {
		return errors.New("stdio: Serve called twice")
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	lines := make(chan inbound)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		br := bufio.NewReaderSize(h.r, 64*1024)
		for {
			line, err := readLine(br, h.maxLine)
			in := inbound{line: line}
			switch {
			case errors.Is(err, errLineTooLong):
				in.tooLong = true
			case errors.Is(err, io.EOF):
				readErr <- nil
				return
			case err != nil:
				readErr <- err
				return
			}
			select {
			case lines <- in:
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
	}()

	h.l.InfoContext(ctx, "stdio.serve.start", slog.String("server", h.info.Name), slog.String("version", h.info.Version))

	for {
		select {
		case <-ctx.Done():
			h.l.InfoContext(ctx, "stdio.serve.stop", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case in, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					h.l.ErrorContext(ctx, "stdio.read.failed", slog.String("err", err.Error()))
					return fmt.Errorf("stdio: read: %w", err)
				}
				h.l.InfoContext(ctx, "stdio.serve.eof")
				return nil
			}
			if in.tooLong {
				h.l.WarnContext(ctx, "stdio.message.too_long", slog.Int("max", h.maxLine))
				h.write(ctx, jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest,
					fmt.Sprintf("message exceeds %d bytes", h.maxLine), nil))
				continue
			}
			h.handleLine(ctx, &wg, in.line)
		}
	}
}

type inbound struct {
	line    []byte
	tooLong bool
}

var errLineTooLong = errors.New("stdio: line too long")

// readLine returns the next line without its newline. A line longer than limit
// is consumed up to its newline and reported as errLineTooLong, leaving the
// reader positioned at the following message. A final unterminated line is
// returned as is; io.EOF is only reported once no bytes remain.
func readLine(br *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		n := len(chunk)
		if err == nil {
			n--
		}
		if !tooLong {
			if len(line)+n > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk[:n]...)
			}
		}

		switch {
		case err == nil:
			if tooLong {
				return nil, errLineTooLong
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return nil, errLineTooLong
			}
			if len(line) > 0 {
				return line, nil
			}
			return nil, io.EOF
		default:
			return nil, err
		}
	}
}

func (h *Handler) handleLine(ctx context.Context, wg *sync.WaitGroup, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var msg jsonrpc.AnyMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		code := jsonrpc.ErrorCodeInvalidRequest
		if !json.Valid(line) {
			code = jsonrpc.ErrorCodeParseError
		}
		h.l.WarnContext(ctx, "stdio.message.invalid", slog.String("err", err.Error()))
		h.write(ctx, jsonrpc.NewErrorResponse(nil, code, err.Error(), nil))
		return
	}

	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: msg.Method,
		ID:     msg.ID.String(),
		Type:   msg.Type(),
	})

	switch msg.Type() {
	case "notification":
		h.handleNotification(ctx, msg.AsRequest())
	case "request":
		req := msg.AsRequest()
		if mcp.Method(req.Method) == mcp.ToolsCallMethod {
			h.startToolCall(ctx, wg, req)
			return
		}
		h.write(ctx, h.handleRequest(ctx, req))
	default:
		// This server never issues requests, so responses are unsolicited.
		h.l.DebugContext(ctx, "stdio.response.ignored")
	}
}

func (h *Handler) handleNotification(ctx context.Context, req *jsonrpc.Request) {
	switch mcp.Method(req.Method) {
	case mcp.InitializedNotificationMethod:
		h.l.DebugContext(ctx, "stdio.session.initialized")
	case mcp.CancelledNotificationMethod:
		var n mcp.CancelledNotification
		if err := json.Unmarshal(req.Params, &n); err != nil {
			h.l.WarnContext(ctx, "stdio.cancel.invalid", slog.String("err", err.Error()))
			return
		}
		var id jsonrpc.RequestID
		if err := id.UnmarshalJSON(n.RequestID); err != nil {
			h.l.WarnContext(ctx, "stdio.cancel.invalid", slog.String("err", err.Error()))
			return
		}
		h.mu.Lock()
		cancel := h.inflight[id.String()]
		h.mu.Unlock()
		if cancel != nil {
			h.l.InfoContext(ctx, "stdio.cancel", slog.String("request_id", id.String()), slog.String("reason", n.Reason))
			cancel()
		}
	default:
		h.l.DebugContext(ctx, "stdio.notification.ignored")
	}
}

func (h *Handler) handleRequest(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		var params mcp.InitializeRequest
		if err := decodeParams(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, err.Error(), nil)
		}
		version := mcp.LatestProtocolVersion
		if mcp.IsSupportedProtocolVersion(params.ProtocolVersion) {
			version = params.ProtocolVersion
		}
		h.initialized.Store(true)
		h.l.InfoContext(ctx, "stdio.initialize",
			slog.String("client", params.ClientInfo.Name),
			slog.String("client_version", params.ClientInfo.Version),
			slog.String("protocol", version),
		)
		return h.result(ctx, req.ID, mcp.InitializeResult{
			ProtocolVersion: version,
			Capabilities:    mcp.ServerCapabilities{Tools: &mcp.ToolsCapability{}},
			ServerInfo:      h.info,
			Instructions:    h.instructions,
		})

	case mcp.PingMethod:
		return h.result(ctx, req.ID, mcp.EmptyResult{})

	case mcp.ToolsListMethod:
		if !h.initialized.Load() {
			return notInitialized(req.ID)
		}
		var params mcp.ListToolsRequest
		if err := decodeParams(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, err.Error(), nil)
		}
		return h.result(ctx, req.ID, h.tools.ListTools(params.Cursor))

	default:
		h.l.WarnContext(ctx, "stdio.method.unknown")
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "method not found: "+req.Method, nil)
	}
}

func (h *Handler) startToolCall(ctx context.Context, wg *sync.WaitGroup, req *jsonrpc.Request) {
	if !h.initialized.Load() {
		h.write(ctx, notInitialized(req.ID))
		return
	}
	var params mcp.CallToolRequestReceived
	if err := decodeParams(req.Params, &params); err != nil || params.Name == "" {
		msg := "missing tool name"
		if err != nil {
			msg = err.Error()
		}
		h.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, msg, nil))
		return
	}

	key := req.ID.String()
	callCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	if _, busy := h.inflight[key]; busy {
		h.mu.Unlock()
		cancel()
		h.l.WarnContext(ctx, "stdio.tool.duplicate_id", slog.String("tool", params.Name))
		h.write(ctx, jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest,
			"request id "+key+" is already in flight", nil))
		return
	}
	h.inflight[key] = cancel
	h.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			h.mu.Lock()
			delete(h.inflight, key)
			h.mu.Unlock()
			cancel()
		}()
		resp := h.callTool(callCtx, req.ID, &params)
		if callCtx.Err() != nil && ctx.Err() == nil {
			// Cancelled by the client, which expects no response.
			h.l.InfoContext(callCtx, "stdio.tool.cancelled", slog.String("tool", params.Name))
			return
		}
		h.write(callCtx, resp)
	}()
}

func (h *Handler) callTool(ctx context.Context, id *jsonrpc.RequestID, params *mcp.CallToolRequestReceived) (resp *jsonrpc.Response) {
	defer func() {
		if p := recover(); p != nil {
			h.l.ErrorContext(ctx, "stdio.tool.panic", slog.Any("panic", p))
			resp = jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, "internal error", nil)
		}
	}()

	res, err := h.tools.Call(ctx, params)
	switch {
	case errors.Is(err, mcpservice.ErrToolNotFound):
		h.l.WarnContext(ctx, "stdio.tool.unknown", slog.String("tool", params.Name))
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInvalidParams, err.Error(), nil)
	case err != nil:
		h.l.ErrorContext(ctx, "stdio.tool.failed", slog.String("tool", params.Name), slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, err.Error(), nil)
	}
	h.l.DebugContext(ctx, "stdio.tool.done", slog.String("tool", params.Name), slog.Bool("is_error", res.IsError))
	return h.result(ctx, id, res)
}

func (h *Handler) result(ctx context.Context, id *jsonrpc.RequestID, v any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(id, v)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.result.encode_failed", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, err.Error(), nil)
	}
	return resp
}

func (h *Handler) write(ctx context.Context, resp *jsonrpc.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		h.l.ErrorContext(ctx, "stdio.write.encode_failed", slog.String("err", err.Error()))
		return
	}
	b = append(b, '\n')

	h.wmu.Lock()
	defer h.wmu.Unlock()
	if _, err := h.w.Write(b); err != nil {
		h.l.ErrorContext(ctx, "stdio.write.failed", slog.String("err", err.Error()))
	}
}

func decodeParams(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func notInitialized(id *jsonrpc.RequestID) *jsonrpc.Response {
	return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInvalidRequest, "server not initialized", nil)
}
