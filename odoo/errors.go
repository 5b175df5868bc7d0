package odoo

import (
	"errors"
	"fmt"
)

// ErrAuthentication is matched (errors.Is) by every *AuthenticationError.
var ErrAuthentication = errors.New("odoo: authentication failed")

// AuthenticationError reports that the server rejected the configured
// credentials or answered with a falsy uid. It is fatal to session
// establishment.
type AuthenticationError struct {
	URL      string
	Database string
	Username string
	Cause    error // nil when the server answered but returned no uid
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("odoo: authentication failed for %s@%s (%s): %v", e.Username, e.Database, e.URL, e.Cause)
	}
	return fmt.Sprintf("odoo: authentication failed for %s@%s (%s): credentials rejected", e.Username, e.Database, e.URL)
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

func (e *AuthenticationError) Is(target error) bool { return target == ErrAuthentication }

// RemoteCallError is returned by Session.Invoke for any failure of a single
// execute_kw round trip.
type RemoteCallError struct {
	Model  string
	Method string
	Cause  error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("odoo: %s.%s: %v", e.Model, e.Method, e.Cause)
}

func (e *RemoteCallError) Unwrap() error { return e.Cause }

// Fault is an application-level error reported by the Odoo server, such as an
// access error or an unknown field. It is distinct from transport failures:
// a Fault proves the channel works.
type Fault struct {
	Code    int
	Name    string // exception class, e.g. odoo.exceptions.AccessError (JSON-RPC only)
	Message string
	Debug   string // server traceback when provided
}

func (f *Fault) Error() string {
	if f.Name != "" {
		return fmt.Sprintf("fault %d (%s): %s", f.Code, f.Name, f.Message)
	}
	return fmt.Sprintf("fault %d: %s", f.Code, f.Message)
}

// IsFault reports whether err carries a server Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
