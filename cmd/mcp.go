package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"retailcopilot/internal/agent"
	"retailcopilot/internal/rag"
	"retailcopilot/internal/sqlexec"
	"retailcopilot/internal/tui"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the question answering tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return mcpserver.ServeStdio(newMCPServer(a.engine, a.engine.Retriever(), a.schema))
}

func newMCPServer(engine tui.Engine, retriever rag.Retriever, schema sqlexec.Schema) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("retailcopilot", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(answerQuestionTool(), makeAnswerHandler(engine))
	s.AddTool(searchDocumentsTool(), makeSearchHandler(retriever))
	s.AddTool(describeSchemaTool(), makeSchemaHandler(schema))
	return s
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func answerQuestionTool() mcp.Tool {
	return mcp.NewTool("answer_question",
		mcp.WithDescription("Answer a retail analytics question from the product documents and the sales database. Returns the answer record as JSON: final_answer, sql, confidence, explanation and citations."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question in natural language"),
		),
		mcp.WithString("id",
			mcp.Description("Question id; known ids select a dedicated answer resolver"),
		),
		mcp.WithString("format_hint",
			mcp.Description("Expected answer shape: int, float, list[...], {...} (default other)"),
		),
		mcp.WithBoolean("trace",
			mcp.Description("Include the stage trace in the response"),
		),
	)
}

func searchDocumentsTool() mcp.Tool {
	return mcp.NewTool("search_documents",
		mcp.WithDescription("Search the policy, marketing calendar, KPI and catalog documents. Returns the best matching chunks with their ids and scores."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Keywords or a natural language query"),
		),
		mcp.WithNumber("k",
			mcp.Description("Maximum number of chunks to return (default 5)"),
		),
	)
}

func describeSchemaTool() mcp.Tool {
	return mcp.NewTool("describe_schema",
		mcp.WithDescription("List the sales database tables and their columns."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

// --- Handler factories ---

type answerPayload struct {
	agent.Answer
	Route string   `json:"route"`
	Trace []string `json:"trace,omitempty"`
}

func makeAnswerHandler(engine tui.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := req.GetString("question", "")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}
		q := agent.Question{
			ID:         req.GetString("id", "mcp"),
			Question:   question,
			FormatHint: agent.FormatHint(req.GetString("format_hint", "other")),
		}

		st, err := engine.Run(ctx, q)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}

		payload := answerPayload{Answer: st.Answer(), Route: string(st.Route)}
		if req.GetBool("trace", false) {
			payload.Trace = st.Trace
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode answer: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func makeSearchHandler(retriever rag.Retriever) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		k := req.GetInt("k", rag.DefaultTopK)
		if k <= 0 {
			k = rag.DefaultTopK
		}

		chunks, err := retriever.Retrieve(ctx, query, k)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, chunks)), nil
	}
}

func makeSchemaHandler(schema sqlexec.Schema) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if len(schema) == 0 {
			return mcp.NewToolResultText("The database has no tables."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("## Tables (%d)\n\n```sql\n%s```\n", len(schema), schema.String())), nil
	}
}

// --- Formatting helpers ---

func formatSearchResults(query string, chunks []rag.Chunk) string {
	if len(chunks) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(chunks))

	for i, c := range chunks {
		fmt.Fprintf(&sb, "### Result %d: `%s`\n\n", i+1, c.ID)
		fmt.Fprintf(&sb, "**Source:** %s  \n**Score:** %.4f\n\n", c.Source, c.Score)
		fmt.Fprintf(&sb, "```\n%s\n```\n\n", c.Text)
	}

	return sb.String()
}
