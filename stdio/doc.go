// Package stdio implements a single-connection MCP transport over
// stdin/stdout: newline-delimited JSON-RPC 2.0, one message per line.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Methods          : initialize, ping, tools/list, tools/call
//	Notifications    : notifications/initialized, notifications/cancelled
//	Concurrency      : each tools/call runs on its own goroutine
//
// Responses are written whole, one per line, under a mutex, so concurrent
// tool calls never interleave their output. Logs must go elsewhere (stderr)
// because stdout carries the protocol stream.
//
// Example:
//
//	tools := mcpservice.NewToolsContainer(myTools...)
//	h := stdio.NewHandler(tools,
//	    stdio.WithServerInfo(mcp.ImplementationInfo{Name: "odoo-mcp", Version: "0.1.0"}),
//	    stdio.WithLogger(logger),
//	)
//	if err := h.Serve(ctx); err != nil { log.Fatal(err) }
package stdio
