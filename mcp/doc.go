// Package mcp contains the Model Context Protocol wire types this server
// speaks: the initialize handshake, ping, and the tools capability.
//
// The package is free of transport logic. The stdio package frames these
// types as JSON-RPC messages and mcpservice builds tool descriptors and
// results from them.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//	    Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: "hello"}},
//	}
//
// LatestProtocolVersion reflects the most recent protocol date the server
// targets. During initialize the client's requested version is echoed back
// when it is one of SupportedProtocolVersions.
package mcp
