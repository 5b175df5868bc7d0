package odoo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	ProtocolXMLRPC  = "xmlrpc"
	ProtocolJSONRPC = "jsonrpc"
)

// Transport carries the three RPCs a Session needs. Implementations report
// remote application errors as *Fault and everything else as transport
// failures.
type Transport interface {
	// Authenticate calls common.authenticate and returns the uid, or 0 when
	// the server answered false.
	Authenticate(ctx context.Context, db, login, password string) (int64, error)
	// Version calls common.version.
	Version(ctx context.Context) (map[string]any, error)
	// ExecuteKW calls object.execute_kw.
	ExecuteKW(ctx context.Context, call Call) (any, error)
}

// Call is one execute_kw invocation.
type Call struct {
	Database string
	UID      int64
	Password string
	Model    string
	Method   string
	Args     []any
	Kwargs   map[string]any
}

func (c Call) params() []any {
	args := c.Args
	if args == nil {
		args = []any{}
	}
	kwargs := c.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return []any{c.Database, c.UID, c.Password, c.Model, c.Method, args, kwargs}
}

// HTTPError is returned when the server answers with a non-200 status.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("odoo: %s answered HTTP %d", e.URL, e.StatusCode)
}

// NewTransport builds the transport for protocol against baseURL. Every
// request is bounded by timeout.
func NewTransport(protocol, baseURL string, timeout time.Duration) (Transport, error) {
	client := &http.Client{Timeout: timeout}
	baseURL = strings.TrimRight(baseURL, "/")

	switch protocol {
	case "", ProtocolXMLRPC:
		return &xmlrpcTransport{baseURL: baseURL, client: client}, nil
	case ProtocolJSONRPC:
		return &jsonrpcTransport{endpoint: baseURL + "/jsonrpc", client: client}, nil
	default:
		return nil, fmt.Errorf("odoo: unsupported protocol %q", protocol)
	}
}

// decodeUID accepts the shapes authenticate returns across protocols: an
// integer, a float from a JSON decoder, or false.
func decodeUID(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if n {
			return 0, fmt.Errorf("odoo: unexpected uid value true")
		}
		return 0, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("odoo: non-integral uid %v", n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("odoo: unexpected uid type %T", v)
	}
}
