package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/odoo-mcp-go/internal/jsonrpc"
	"github.com/google/uuid"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// jsonrpcTransport speaks Odoo's /jsonrpc dispatcher, which wraps the same
// services as XML-RPC in a {"service", "method", "args"} envelope.
type jsonrpcTransport struct {
	endpoint string
	client   *http.Client
}

type serviceCall struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

func (t *jsonrpcTransport) Authenticate(ctx context.Context, db, login, password string) (int64, error) {
	res, err := t.call(ctx, "common", "authenticate", db, login, password, map[string]any{})
	if err != nil {
		return 0, err
	}
	return decodeUID(res)
}

func (t *jsonrpcTransport) Version(ctx context.Context) (map[string]any, error) {
	res, err := t.call(ctx, "common", "version")
	if err != nil {
		return nil, err
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("odoo: version returned %T, want object", res)
	}
	return m, nil
}

func (t *jsonrpcTransport) ExecuteKW(ctx context.Context, call Call) (any, error) {
	return t.call(ctx, "object", "execute_kw", call.params()...)
}

func (t *jsonrpcTransport) call(ctx context.Context, service, method string, args ...any) (any, error) {
	if args == nil {
		args = []any{}
	}
	id := jsonrpc.NewRequestID(uuid.NewString())
	msg, err := jsonrpc.NewRequest(id, "call", serviceCall{Service: service, Method: method, Args: args})
	if err != nil {
		return nil, fmt.Errorf("odoo: encode %s.%s: %w", service, method, err)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("odoo: encode %s.%s: %w", service, method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("odoo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("odoo: %s.%s: %w", service, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{URL: t.endpoint, StatusCode: resp.StatusCode}
	}
	if ctype := contenttype.NewMediaType(resp.Header.Get("Content-Type")); !ctype.Matches(jsonMediaType) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("odoo: %s.%s: unexpected content type %q", service, method, resp.Header.Get("Content-Type"))
	}

	var reply jsonrpc.AnyMessage
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("odoo: decode %s.%s response: %w", service, method, err)
	}
	res := reply.AsResponse()
	if res == nil {
		return nil, fmt.Errorf("odoo: %s.%s: server sent a request instead of a response", service, method)
	}
	if res.Error != nil {
		return nil, faultFromJSONRPC(res.Error)
	}

	dec := json.NewDecoder(bytes.NewReader(res.Result))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("odoo: decode %s.%s result: %w", service, method, err)
	}
	return normalizeNumbers(out), nil
}

// faultFromJSONRPC lifts Odoo's error data ({name, message, debug}) into a
// Fault. The top-level message is usually the generic "Odoo Server Error".
func faultFromJSONRPC(e *jsonrpc.Error) *Fault {
	f := &Fault{Code: int(e.Code), Message: e.Message}
	data, ok := e.Data.(map[string]any)
	if !ok {
		return f
	}
	if name, ok := data["name"].(string); ok {
		f.Name = name
	}
	if msg, ok := data["message"].(string); ok && msg != "" {
		f.Message = msg
	}
	if debug, ok := data["debug"].(string); ok {
		f.Debug = debug
	}
	return f
}

// normalizeNumbers converts json.Number to int64 when integral and float64
// otherwise, so both transports hand back the same Go types.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizeNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizeNumbers(x[k])
		}
		return x
	default:
		return v
	}
}
