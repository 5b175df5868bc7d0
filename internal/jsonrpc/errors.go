package jsonrpc

// ErrorCode is the numeric code of an Error.
type ErrorCode int

// Codes reserved by JSON-RPC 2.0.
const (
	ErrorCodeParseError     ErrorCode = -32700
	ErrorCodeInvalidRequest ErrorCode = -32600
	ErrorCodeMethodNotFound ErrorCode = -32601
	ErrorCodeInvalidParams  ErrorCode = -32602
	ErrorCodeInternalError  ErrorCode = -32603
)

// ErrorCodeServerError is what Odoo's /jsonrpc endpoint reports for any
// application exception, such as an access or validation error.
const ErrorCodeServerError ErrorCode = 200
