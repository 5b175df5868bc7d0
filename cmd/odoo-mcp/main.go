// Command odoo-mcp serves Odoo business data to MCP clients over stdio.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ggoodman/odoo-mcp-go/fields"
	"github.com/ggoodman/odoo-mcp-go/mcp"
	"github.com/ggoodman/odoo-mcp-go/stdio"
	"github.com/ggoodman/odoo-mcp-go/tools"
)

const instructions = "Tools for searching Odoo quotations, purchase orders, delivery orders, products and partners. " +
	"Results include direct Odoo URLs; amounts carry the document currency code."

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "odoo-mcp [json-config]",
		Short: "MCP server for Odoo over stdio",
		Long: `odoo-mcp exposes Odoo sales, purchase, inventory and contact data as MCP tools.

Settings come from ODOO_* environment variables. A JSON object passed as the
only argument (odoo_url, odoo_database, odoo_username, odoo_password,
cache_ttl, timeout, max_retries, default_language) takes precedence.`,
		Version:       tools.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args)
		},
	}
	root.AddCommand(serveCmd(), healthCmd(), callCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [json-config]",
		Short: "Serve MCP over stdin/stdout (default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args)
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health [json-config]",
		Short: "Run the health check once and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), args)
			if err != nil {
				return report(err)
			}
			rep := a.server.Health(cmd.Context())
			if err := printJSON(cmd, rep); err != nil {
				return err
			}
			if rep["status"] != "healthy" {
				return errors.New("odoo-mcp: unhealthy")
			}
			return nil
		},
	}
}

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call MODEL METHOD [ARGS_JSON] [KWARGS_JSON]",
		Short: "Perform one uncached Odoo call and print the result",
		Example: `  odoo-mcp call res.partner search_read '[[["is_company","=",true]]]' '{"fields":["name"],"limit":5}'
  odoo-mcp call sale.order search_count '[[]]'`,
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var callArgs []any
			var kwargs map[string]any
			if len(args) > 2 {
				if err := json.Unmarshal([]byte(args[2]), &callArgs); err != nil {
					return report(fmt.Errorf("ARGS must be a JSON array: %w", err))
				}
			}
			if len(args) > 3 {
				if err := json.Unmarshal([]byte(args[3]), &kwargs); err != nil {
					return report(fmt.Errorf("KWARGS must be a JSON object: %w", err))
				}
			}

			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return report(err)
			}
			res, err := a.server.RawCall(cmd.Context(), args[0], args[1], callArgs, kwargs)
			if err != nil {
				return report(err)
			}
			return printJSON(cmd, res)
		},
	}
}

func runServe(ctx context.Context, args []string) error {
	a, err := newApp(ctx, args)
	if err != nil {
		return report(err)
	}
	a.log.InfoContext(ctx, "odoo.session.ready", slog.String("summary", describeStartup(a)))

	a.fields.Warm(ctx, fields.CriticalModels...)
	if a.settings.MetricsAddr != "" {
		a.serveMetrics(ctx, a.settings.MetricsAddr)
	}

	h := stdio.NewHandler(a.server.Container(),
		stdio.WithLogger(a.log),
		stdio.WithServerInfo(mcp.ImplementationInfo{Name: "odoo-mcp", Title: "Odoo MCP Server", Version: tools.Version}),
		stdio.WithInstructions(instructions),
	)
	if err := h.Serve(ctx); err != nil && ctx.Err() == nil {
		a.log.ErrorContext(ctx, "stdio.serve.failed", slog.String("err", err.Error()))
		return err
	}
	return nil
}

// report prints err to stderr, since the logger may not exist yet.
func report(err error) error {
	fmt.Fprintln(os.Stderr, "odoo-mcp:", err)
	return err
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
