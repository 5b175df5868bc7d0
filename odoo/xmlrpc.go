package odoo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/kolo/xmlrpc"
)

// xmlrpcTransport speaks XML-RPC over a plain http.Client. Only the codec of
// kolo/xmlrpc is used so that every request honours the caller's context and
// the configured timeout.
type xmlrpcTransport struct {
	baseURL string
	client  *http.Client
}

func (t *xmlrpcTransport) Authenticate(ctx context.Context, db, login, password string) (int64, error) {
	res, err := t.call(ctx, "/xmlrpc/2/common", "authenticate", db, login, password, map[string]any{})
	if err != nil {
		return 0, err
	}
	return decodeUID(res)
}

func (t *xmlrpcTransport) Version(ctx context.Context) (map[string]any, error) {
	res, err := t.call(ctx, "/xmlrpc/2/common", "version")
	if err != nil {
		return nil, err
	}
	m, ok := res.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("odoo: version returned %T, want struct", res)
	}
	return m, nil
}

func (t *xmlrpcTransport) ExecuteKW(ctx context.Context, call Call) (any, error) {
	params := call.params()
	for i := range params {
		params[i] = integralFloats(params[i])
	}
	return t.call(ctx, "/xmlrpc/2/object", "execute_kw", params...)
}

func (t *xmlrpcTransport) call(ctx context.Context, path, method string, args ...any) (any, error) {
	body, err := xmlrpc.EncodeMethodCall(method, args...)
	if err != nil {
		return nil, fmt.Errorf("odoo: encode %s: %w", method, err)
	}

	url := t.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("odoo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("odoo: %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("odoo: read %s response: %w", method, err)
	}

	r := xmlrpc.Response(data)
	if err := r.Err(); err != nil {
		var fe xmlrpc.FaultError
		if errors.As(err, &fe) {
			return nil, &Fault{Code: fe.Code, Message: fe.String}
		}
		return nil, fmt.Errorf("odoo: decode %s fault: %w", method, err)
	}

	var out any
	if err := r.Unmarshal(&out); err != nil {
		return nil, fmt.Errorf("odoo: decode %s response: %w", method, err)
	}
	return out, nil
}

// integralFloats rewrites whole-number float64 values as int64. Arguments
// that passed through encoding/json arrive as floats, and Odoo rejects
// <double> record ids.
func integralFloats(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x)
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = integralFloats(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = integralFloats(e)
		}
		return out
	default:
		return v
	}
}
