package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates records with the request-scoped groups stored on the
// context: the inbound stdio message (rpc), the tool being executed (tool)
// and the outbound gateway call (gw).
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if msg, ok := ctx.Value(rpcMsg{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
			slog.String("type", msg.Type),
		))
	}

	if td, ok := ctx.Value(toolCallDataKey{}).(*ToolCallData); ok {
		r.AddAttrs(slog.Group("tool",
			slog.String("name", td.ToolName),
		))
	}

	if gd, ok := ctx.Value(gatewayCallKey{}).(*GatewayCall); ok {
		r.AddAttrs(slog.Group("gw",
			slog.String("call_id", gd.CallID),
			slog.String("model", gd.Model),
			slog.String("method", gd.Method),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type rpcMsg struct{}

type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsg{}, msg)
}

type toolCallDataKey struct{}

type ToolCallData struct {
	ToolName string
}

func WithToolCallData(ctx context.Context, data *ToolCallData) context.Context {
	return context.WithValue(ctx, toolCallDataKey{}, data)
}

type gatewayCallKey struct{}

// GatewayCall identifies one logical gateway call across its retries.
type GatewayCall struct {
	CallID string
	Model  string
	Method string
}

func WithGatewayCall(ctx context.Context, data *GatewayCall) context.Context {
	return context.WithValue(ctx, gatewayCallKey{}, data)
}
