// Package mcpservice turns typed Go handlers into MCP tools.
//
// NewTool reflects the JSON schema of an argument struct with
// invopop/jsonschema, decodes incoming arguments strictly (unknown fields are
// rejected unless WithToolAllowAdditionalProperties is set) and hands the
// handler a ToolResponseWriter to compose the result. ToolsContainer holds the
// registered tools and dispatches calls by name.
//
//	type EchoArgs struct {
//	    Message string `json:"message" jsonschema:"description=Text to echo"`
//	}
//	echo := mcpservice.NewTool[EchoArgs]("echo",
//	    func(ctx context.Context, w mcpservice.ToolResponseWriter, r *mcpservice.ToolRequest[EchoArgs]) error {
//	        return w.AppendText("you said: " + r.Args().Message)
//	    },
//	    mcpservice.WithToolDescription("Echo a message back to the caller"),
//	)
//	tools := mcpservice.NewToolsContainer(echo)
package mcpservice
