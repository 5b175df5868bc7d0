// Package odoo owns the authenticated channel to an Odoo server.
//
// A Session authenticates once per process, detects the server's major
// version, resolves the locale used for every subsequent call and exposes a
// single low-level primitive, Invoke, that maps onto Odoo's positional
// execute_kw RPC:
//
//	execute_kw(db, uid, password, model, method, args, kwargs)
//
// Two wire protocols are supported through the Transport interface: XML-RPC
// (/xmlrpc/2/common and /xmlrpc/2/object) and JSON-RPC (/jsonrpc). Both report
// remote application errors as *Fault; any other error is treated as a
// transport failure and causes the session to reconnect on the next call.
//
// Invoke never retries. Retrying is layered on top by the gateway package.
//
// Example:
//
//	sess, err := odoo.New(odoo.Config{
//	    URL:      "http://localhost:8069",
//	    Database: "prod",
//	    Username: "admin",
//	    Password: "secret",
//	})
//	if err != nil { return err }
//	if err := sess.Start(ctx); err != nil { return err }
//	ids, err := sess.Invoke(ctx, "res.partner", "search", []any{[]any{}}, map[string]any{"limit": 5})
package odoo
