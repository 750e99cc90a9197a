// Package setup registers the AIPJC MCP server with AI clients, so an
// assistant can read and write the journal through `aipjc mcp`.
//
// - Claude Desktop: injects mcpServers.aipjc in claude_desktop_config.json
// - Gemini CLI: injects mcpServers.aipjc in ~/.gemini/settings.json
// - Codex: upserts an [mcp_servers.aipjc] block in ~/.codex/config.toml
// - OpenCode: injects mcp.aipjc in opencode.json
//
// Every installer preserves the rest of the client's config and is safe to
// run again.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	runtimeGOOS         = runtime.GOOS
	userHomeDir         = os.UserHomeDir
	readFileFn          = os.ReadFile
	writeFileFn         = os.WriteFile
	jsonMarshalIndentFn = json.MarshalIndent
)

// ServerName is the key the journal is registered under in client configs.
const ServerName = "aipjc"

// Agent represents a supported MCP client.
type Agent struct {
	Name        string
	Description string
	ConfigPath  string
}

// Options control what gets registered.
type Options struct {
	// Command is the aipjc executable; defaults to "aipjc" on PATH.
	Command string
	// Tools is passed as --tools when non-empty (see mcp.ResolveTools).
	Tools string
}

// Result holds the outcome of an installation.
type Result struct {
	Agent       string
	Destination string
	Replaced    bool
}

// SupportedAgents returns the clients Install knows how to configure.
func SupportedAgents() []Agent {
	return []Agent{
		{
			Name:        "claude-desktop",
			Description: "Claude Desktop — MCP server entry in claude_desktop_config.json",
			ConfigPath:  claudeDesktopConfigPath(),
		},
		{
			Name:        "gemini-cli",
			Description: "Gemini CLI — MCP server entry in settings.json",
			ConfigPath:  geminiConfigPath(),
		},
		{
			Name:        "codex",
			Description: "Codex — [mcp_servers.aipjc] block in config.toml",
			ConfigPath:  codexConfigPath(),
		},
		{
			Name:        "opencode",
			Description: "OpenCode — local MCP entry in opencode.json",
			ConfigPath:  openCodeConfigPath(),
		},
	}
}

// Install registers the MCP server with the named agent.
func Install(agentName string, opts Options) (*Result, error) {
	if opts.Command == "" {
		opts.Command = "aipjc"
	}

	var (
		path     string
		replaced bool
		err      error
	)
	switch agentName {
	case "claude-desktop":
		path = claudeDesktopConfigPath()
		replaced, err = upsertJSONServer(path, "mcpServers", stdioEntry(opts))
	case "gemini-cli":
		path = geminiConfigPath()
		replaced, err = upsertJSONServer(path, "mcpServers", stdioEntry(opts))
	case "codex":
		path = codexConfigPath()
		replaced, err = injectCodexMCP(path, opts)
	case "opencode":
		path = openCodeConfigPath()
		replaced, err = upsertJSONServer(path, "mcp", openCodeEntry(opts))
	default:
		return nil, fmt.Errorf("unknown agent: %q (supported: claude-desktop, gemini-cli, codex, opencode)", agentName)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", agentName, err)
	}

	return &Result{
		Agent:       agentName,
		Destination: path,
		Replaced:    replaced,
	}, nil
}

func commandArgs(opts Options) []string {
	args := []string{"mcp"}
	if opts.Tools != "" {
		args = append(args, "--tools="+opts.Tools)
	}
	return args
}

func stdioEntry(opts Options) map[string]any {
	return map[string]any{
		"command": opts.Command,
		"args":    commandArgs(opts),
	}
}

func openCodeEntry(opts Options) map[string]any {
	return map[string]any{
		"type":    "local",
		"command": append([]string{opts.Command}, commandArgs(opts)...),
		"enabled": true,
	}
}

// ─── JSON configs ────────────────────────────────────────────────────────────

// upsertJSONServer sets config[block][ServerName] = entry, keeping every
// other key. It reports whether an existing entry was replaced.
func upsertJSONServer(configPath, block string, entry any) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}

	config := make(map[string]json.RawMessage)
	data, err := readFileFn(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return false, fmt.Errorf("read config: %w", err)
	case len(strings.TrimSpace(string(data))) > 0:
		if err := json.Unmarshal(data, &config); err != nil {
			return false, fmt.Errorf("parse config: %w", err)
		}
	}

	servers := make(map[string]json.RawMessage)
	if raw, ok := config[block]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return false, fmt.Errorf("parse %s block: %w", block, err)
		}
	}
	_, replaced := servers[ServerName]

	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return false, fmt.Errorf("marshal %s entry: %w", ServerName, err)
	}
	servers[ServerName] = entryJSON

	blockJSON, err := json.Marshal(servers)
	if err != nil {
		return false, fmt.Errorf("marshal %s block: %w", block, err)
	}
	config[block] = blockJSON

	output, err := jsonMarshalIndentFn(config, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := writeFileFn(configPath, append(output, '\n'), 0644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return replaced, nil
}

// ─── Codex ───────────────────────────────────────────────────────────────────

func injectCodexMCP(configPath string, opts Options) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}

	data, err := readFileFn(configPath)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read config: %w", err)
	}

	updated, replaced := upsertCodexBlock(string(data), codexBlock(opts))
	if err := writeFileFn(configPath, []byte(updated), 0644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return replaced, nil
}

func codexBlock(opts Options) string {
	quoted := make([]string, 0, 2)
	for _, a := range commandArgs(opts) {
		quoted = append(quoted, fmt.Sprintf("%q", a))
	}
	return fmt.Sprintf("[mcp_servers.%s]\ncommand = %q\nargs = [%s]",
		ServerName, opts.Command, strings.Join(quoted, ", "))
}

// upsertCodexBlock drops any existing [mcp_servers.aipjc] table and appends
// block at the end.
func upsertCodexBlock(content, block string) (string, bool) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	header := "[mcp_servers." + ServerName + "]"

	var kept []string
	replaced := false
	for i := 0; i < len(lines); {
		if strings.TrimSpace(lines[i]) == header {
			replaced = true
			i++
			for i < len(lines) {
				next := strings.TrimSpace(lines[i])
				if strings.HasPrefix(next, "[") && strings.HasSuffix(next, "]") {
					break
				}
				i++
			}
			continue
		}
		kept = append(kept, lines[i])
		i++
	}

	base := strings.TrimSpace(strings.Join(kept, "\n"))
	if base == "" {
		return block + "\n", replaced
	}
	return base + "\n\n" + block + "\n", replaced
}

// ─── Platform paths ──────────────────────────────────────────────────────────

func claudeDesktopConfigPath() string {
	home, _ := userHomeDir()

	switch runtimeGOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Claude", "claude_desktop_config.json")
		}
		return filepath.Join(home, "AppData", "Roaming", "Claude", "claude_desktop_config.json")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "Claude", "claude_desktop_config.json")
		}
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

func openCodeConfigPath() string {
	home, _ := userHomeDir()

	switch runtimeGOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "opencode", "opencode.json")
		}
		return filepath.Join(home, "AppData", "Roaming", "opencode", "opencode.json")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "opencode", "opencode.json")
		}
		return filepath.Join(home, ".config", "opencode", "opencode.json")
	}
}

func geminiConfigPath() string {
	home, _ := userHomeDir()

	switch runtimeGOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "gemini", "settings.json")
		}
		return filepath.Join(home, "AppData", "Roaming", "gemini", "settings.json")
	default:
		return filepath.Join(home, ".gemini", "settings.json")
	}
}

func codexConfigPath() string {
	home, _ := userHomeDir()

	switch runtimeGOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "codex", "config.toml")
		}
		return filepath.Join(home, "AppData", "Roaming", "codex", "config.toml")
	default:
		return filepath.Join(home, ".codex", "config.toml")
	}
}
