// Package mcp implements the Model Context Protocol server for AIPJC.
//
// It exposes the journal over MCP stdio transport so an AI assistant can
// read entries, write new ones and run an analysis cycle on the user's
// behalf.
//
// Tool profiles allow clients to load only the tools they need:
//
//	aipjc mcp                      → all tools (default)
//	aipjc mcp --tools=reader       → read-only tools
//	aipjc mcp --tools=writer       → tools that change the journal
//	aipjc mcp --tools=reader,writer → combine profiles
//	aipjc mcp --tools=journal_search,loops_list → individual tool names
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/uhhbyss/PA-AIPJC/internal/classifier"
	"github.com/uhhbyss/PA-AIPJC/internal/insight"
	"github.com/uhhbyss/PA-AIPJC/internal/store"
)

// Version is reported in the MCP initialize response.
var Version = "dev"

// Analyzer runs one analysis cycle. *insight.Orchestrator implements it.
type Analyzer interface {
	Run(ctx context.Context, req insight.Request) (*insight.Event, error)
}

// ─── Tool Profiles ───────────────────────────────────────────────────────────

// ProfileReader contains the tools that never change the journal.
var ProfileReader = map[string]bool{
	"journal_recent": true,
	"journal_search": true,
	"journal_get":    true,
	"loops_list":     true,
	"journal_stats":  true,
}

// ProfileWriter contains the tools that write entries or loops.
var ProfileWriter = map[string]bool{
	"journal_write":   true,
	"insight_analyze": true,
}

// Profiles maps profile names to their tool sets.
var Profiles = map[string]map[string]bool{
	"reader": ProfileReader,
	"writer": ProfileWriter,
}

// ResolveTools takes a comma-separated string of profile names and/or
// individual tool names and returns the set of tool names to register.
// An empty input means "all".
func ResolveTools(input string) map[string]bool {
	input = strings.TrimSpace(input)
	if input == "" || input == "all" {
		return nil
	}

	result := make(map[string]bool)
	for _, token := range strings.Split(input, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if token == "all" {
			return nil
		}
		if profile, ok := Profiles[token]; ok {
			for tool := range profile {
				result[tool] = true
			}
		} else {
			result[token] = true
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

const serverInstructions = `AIPJC is a private, local journal. Use these tools to read or add ` +
	`journal entries and to look for recurring thought loops in what the user ` +
	`has written. Entries are personal: quote them back only when the user asks.`

// Deps are the collaborators the tools need. Analyzer may be nil, in which
// case insight_analyze is not registered.
type Deps struct {
	Store    *store.Store
	Analyzer Analyzer
	Defaults classifier.Options
	Now      func() time.Time
}

// NewServer creates an MCP server with all tools registered.
func NewServer(d Deps) *server.MCPServer {
	return NewServerWithTools(d, nil)
}

// NewServerWithTools registers only the tools in allowlist; nil means all.
func NewServerWithTools(d Deps, allowlist map[string]bool) *server.MCPServer {
	if d.Now == nil {
		d.Now = time.Now
	}
	srv := server.NewMCPServer(
		"aipjc",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
	)

	registerTools(srv, d, allowlist)
	return srv
}

func shouldRegister(name string, allowlist map[string]bool) bool {
	if allowlist == nil {
		return true
	}
	return allowlist[name]
}

func registerTools(srv *server.MCPServer, d Deps, allowlist map[string]bool) {
	s := d.Store

	if shouldRegister("journal_write", allowlist) {
		srv.AddTool(
			mcp.NewTool("journal_write",
				mcp.WithDescription("Add a new journal entry for the user, written in their own words. Only call this when the user explicitly asks you to record something."),
				mcp.WithTitleAnnotation("Write Entry"),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(false),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithString("content",
					mcp.Required(),
					mcp.Description("Entry text"),
				),
			),
			handleWrite(s, d.Now),
		)
	}

	if shouldRegister("journal_recent", allowlist) {
		srv.AddTool(
			mcp.NewTool("journal_recent",
				mcp.WithDescription("List the most recent journal entries, newest first."),
				mcp.WithTitleAnnotation("Recent Entries"),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithNumber("limit",
					mcp.Description("Max entries (default: 10, max: 50)"),
				),
			),
			handleRecent(s),
		)
	}

	if shouldRegister("journal_search", allowlist) {
		srv.AddTool(
			mcp.NewTool("journal_search",
				mcp.WithDescription("Full-text search over journal entries."),
				mcp.WithTitleAnnotation("Search Journal"),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("Keywords to look for"),
				),
				mcp.WithNumber("limit",
					mcp.Description("Max results (default: 10, max: 50)"),
				),
			),
			handleSearch(s),
		)
	}

	if shouldRegister("journal_get", allowlist) {
		srv.AddTool(
			mcp.NewTool("journal_get",
				mcp.WithDescription("Get the full text of one journal entry by ID."),
				mcp.WithTitleAnnotation("Get Entry"),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithNumber("id",
					mcp.Required(),
					mcp.Description("Entry ID"),
				),
			),
			handleGet(s),
		)
	}

	if shouldRegister("loops_list", allowlist) {
		srv.AddTool(
			mcp.NewTool("loops_list",
				mcp.WithDescription("List tracked thought loops: recurring topics detected in the journal, with when they started and were last seen."),
				mcp.WithTitleAnnotation("Thought Loops"),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
				mcp.WithString("status",
					mcp.Description("Filter: active or resolved (default: all)"),
				),
			),
			handleLoops(s),
		)
	}

	if shouldRegister("journal_stats", allowlist) {
		srv.AddTool(
			mcp.NewTool("journal_stats",
				mcp.WithDescription("Show journal statistics: entry count, date range and loop counts."),
				mcp.WithTitleAnnotation("Journal Stats"),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithOpenWorldHintAnnotation(false),
			),
			handleStats(s),
		)
	}

	if d.Analyzer != nil && shouldRegister("insight_analyze", allowlist) {
		srv.AddTool(
			mcp.NewTool("insight_analyze",
				mcp.WithDescription("Run one analysis cycle over the recent entries. It may celebrate a loop that has gone quiet, suggest guidance for a recurring topic, or report that nothing stands out."),
				mcp.WithTitleAnnotation("Analyze Journal"),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithDestructiveHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(false),
				mcp.WithOpenWorldHintAnnotation(true),
				mcp.WithString("draft",
					mcp.Description("Unsaved text to include as the newest entry"),
				),
				mcp.WithString("mode",
					mcp.Description("Guidance style: auto, reframing, emotional_exploration, action_oriented"),
				),
				mcp.WithBoolean("use_remote",
					mcp.Description("Use the remote (heavier) model"),
				),
			),
			handleAnalyze(d.Analyzer, d.Defaults),
		)
	}
}

// ─── Handlers ────────────────────────────────────────────────────────────────

func handleWrite(s *store.Store, now func() time.Time) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, _ := req.GetArguments()["content"].(string)

		id, err := s.InsertEntry(ctx, content, now())
		if errors.Is(err, store.ErrEmptyContent) {
			return mcp.NewToolResultError("content is required"), nil
		}
		if err != nil {
			return mcp.NewToolResultError("Failed to save entry: " + err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Entry saved: #%d", id)), nil
	}
}

func handleRecent(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := clamp(intArg(req, "limit", 10), 1, 50)

		entries, err := s.RecentEntries(ctx, limit)
		if err != nil {
			return mcp.NewToolResultError("Failed to list entries: " + err.Error()), nil
		}
		if len(entries) == 0 {
			return mcp.NewToolResultText("The journal is empty."), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d most recent entries:\n\n", len(entries))
		for _, e := range entries {
			writeEntryLine(&b, e)
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func handleSearch(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, _ := req.GetArguments()["query"].(string)
		limit := clamp(intArg(req, "limit", 10), 1, 50)

		results, err := s.SearchEntries(ctx, query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Search error: %s. Try simpler keywords.", err)), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No entries found for: %q", query)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d entries:\n\n", len(results))
		for _, r := range results {
			writeEntryLine(&b, r.Entry)
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func handleGet(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(intArg(req, "id", 0))
		if id <= 0 {
			return mcp.NewToolResultError("id is required"), nil
		}

		e, err := s.GetEntry(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Entry #%d not found", id)), nil
		}
		if err != nil {
			return mcp.NewToolResultError("Failed to get entry: " + err.Error()), nil
		}

		edited := ""
		if e.UpdatedAt.After(e.Timestamp) {
			edited = fmt.Sprintf("\nEdited: %s", e.UpdatedAt.Format(time.RFC3339))
		}
		return mcp.NewToolResultText(fmt.Sprintf("#%d\nWritten: %s%s\n\n%s",
			e.ID, e.Timestamp.Format(time.RFC3339), edited, e.Content)), nil
	}
}

func handleLoops(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, _ := req.GetArguments()["status"].(string)

		loops, err := s.ListLoops(ctx, store.LoopStatus(status))
		if errors.Is(err, store.ErrInvalidStatus) {
			return mcp.NewToolResultError("status must be active or resolved"), nil
		}
		if err != nil {
			return mcp.NewToolResultError("Failed to list loops: " + err.Error()), nil
		}
		if len(loops) == 0 {
			return mcp.NewToolResultText("No thought loops tracked yet."), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d thought loops:\n\n", len(loops))
		for _, l := range loops {
			fmt.Fprintf(&b, "- %s [%s] since %s, last seen %s\n",
				l.Topic, l.Status,
				l.StartDate.Format("2006-01-02"),
				l.LastSeenDate.Format("2006-01-02"))
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func handleStats(s *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := s.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError("Failed to get stats: " + err.Error()), nil
		}

		span := "no entries yet"
		if stats.FirstEntry != nil && stats.LastEntry != nil {
			span = fmt.Sprintf("%s to %s", stats.FirstEntry.Format("2006-01-02"), stats.LastEntry.Format("2006-01-02"))
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"Journal Stats:\n- Entries: %d\n- Written: %s\n- Active loops: %d\n- Resolved loops: %d",
			stats.TotalEntries, span, stats.ActiveLoops, stats.ResolvedLoops)), nil
	}
}

func handleAnalyze(a Analyzer, defaults classifier.Options) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		draft, _ := req.GetArguments()["draft"].(string)

		opts := defaults
		if m, _ := req.GetArguments()["mode"].(string); m != "" {
			mode, err := classifier.ParseMode(m)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts.Mode = mode
		}
		opts.UseRemote = boolArg(req, "use_remote", opts.UseRemote)

		ev, err := a.Run(ctx, insight.Request{Draft: draft, Options: opts})
		if errors.Is(err, insight.ErrCycleInFlight) {
			return mcp.NewToolResultError("An analysis is already running. Try again in a moment."), nil
		}
		if err != nil {
			return mcp.NewToolResultError("Analysis abandoned: " + err.Error()), nil
		}

		text := fmt.Sprintf("[%s] %s", ev.Kind, ev.Message)
		if ev.Topic != "" {
			text += fmt.Sprintf("\nTopic: %s", ev.Topic)
		}
		if ev.Kind == insight.EventError {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func writeEntryLine(b *strings.Builder, e store.Entry) {
	fmt.Fprintf(b, "#%d (%s)\n    %s\n\n", e.ID, e.Timestamp.Format("2006-01-02 15:04"), truncate(e.Content, 300))
}

func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
