package setup

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetSetupSeams(t *testing.T) {
	t.Helper()
	oldRuntimeGOOS := runtimeGOOS
	oldUserHomeDir := userHomeDir
	oldReadFileFn := readFileFn
	oldWriteFileFn := writeFileFn
	oldJSONMarshalIndentFn := jsonMarshalIndentFn

	t.Cleanup(func() {
		runtimeGOOS = oldRuntimeGOOS
		userHomeDir = oldUserHomeDir
		readFileFn = oldReadFileFn
		writeFileFn = oldWriteFileFn
		jsonMarshalIndentFn = oldJSONMarshalIndentFn
	})
}

func useTestHome(t *testing.T) string {
	t.Helper()
	resetSetupSeams(t)
	home := t.TempDir()
	userHomeDir = func() (string, error) { return home, nil }
	runtimeGOOS = "linux"
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("APPDATA", "")
	return home
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return out
}

func TestSupportedAgents(t *testing.T) {
	useTestHome(t)

	names := map[string]bool{}
	for _, a := range SupportedAgents() {
		names[a.Name] = true
		if a.ConfigPath == "" {
			t.Fatalf("agent %s has no config path", a.Name)
		}
	}
	for _, want := range []string{"claude-desktop", "gemini-cli", "codex", "opencode"} {
		if !names[want] {
			t.Fatalf("expected %s in supported agents", want)
		}
	}
}

func TestInstallUnknownAgent(t *testing.T) {
	useTestHome(t)

	if _, err := Install("vim", Options{}); err == nil || !strings.Contains(err.Error(), "unknown agent") {
		t.Fatalf("expected unknown agent error, got %v", err)
	}
}

func TestInstallGeminiPreservesConfigAndIsIdempotent(t *testing.T) {
	home := useTestHome(t)
	path := filepath.Join(home, ".gemini", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	existing := `{"theme":"dark","mcpServers":{"other":{"command":"other-server"}}}`
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := Install("gemini-cli", Options{Tools: "reader"})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if res.Destination != path || res.Replaced {
		t.Fatalf("unexpected result: %+v", res)
	}

	cfg := readJSON(t, path)
	if cfg["theme"] != "dark" {
		t.Fatalf("expected theme preserved, got %v", cfg["theme"])
	}
	servers := cfg["mcpServers"].(map[string]any)
	if _, ok := servers["other"]; !ok {
		t.Fatalf("expected other server preserved")
	}
	entry := servers[ServerName].(map[string]any)
	if entry["command"] != "aipjc" {
		t.Fatalf("unexpected command: %v", entry["command"])
	}
	args := entry["args"].([]any)
	if len(args) != 2 || args[0] != "mcp" || args[1] != "--tools=reader" {
		t.Fatalf("unexpected args: %v", args)
	}

	res, err = Install("gemini-cli", Options{Command: "/usr/local/bin/aipjc"})
	if err != nil {
		t.Fatalf("second install: %v", err)
	}
	if !res.Replaced {
		t.Fatalf("expected second install to replace the entry")
	}
	entry = readJSON(t, path)["mcpServers"].(map[string]any)[ServerName].(map[string]any)
	if entry["command"] != "/usr/local/bin/aipjc" || len(entry["args"].([]any)) != 1 {
		t.Fatalf("expected updated entry, got %v", entry)
	}
}

func TestInstallClaudeDesktopCreatesConfig(t *testing.T) {
	home := useTestHome(t)

	res, err := Install("claude-desktop", Options{})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	want := filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	if res.Destination != want {
		t.Fatalf("expected %s, got %s", want, res.Destination)
	}
	servers := readJSON(t, want)["mcpServers"].(map[string]any)
	if _, ok := servers[ServerName]; !ok {
		t.Fatalf("expected %s registered", ServerName)
	}
}

func TestInstallOpenCodeUsesLocalEntry(t *testing.T) {
	home := useTestHome(t)

	if _, err := Install("opencode", Options{}); err != nil {
		t.Fatalf("install: %v", err)
	}
	path := filepath.Join(home, ".config", "opencode", "opencode.json")
	entry := readJSON(t, path)["mcp"].(map[string]any)[ServerName].(map[string]any)
	if entry["type"] != "local" || entry["enabled"] != true {
		t.Fatalf("unexpected entry: %v", entry)
	}
	cmd := entry["command"].([]any)
	if len(cmd) != 2 || cmd[0] != "aipjc" || cmd[1] != "mcp" {
		t.Fatalf("unexpected command: %v", cmd)
	}
}

func TestInstallCodexUpsertsBlock(t *testing.T) {
	home := useTestHome(t)
	path := filepath.Join(home, ".codex", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	existing := "model = \"o4-mini\"\r\n\r\n[mcp_servers.aipjc]\r\ncommand = \"old\"\r\n\r\n[mcp_servers.other]\r\ncommand = \"other\"\r\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := Install("codex", Options{Tools: "reader,writer"})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !res.Replaced {
		t.Fatalf("expected old block replaced")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(data)
	if strings.Contains(got, `"old"`) || strings.Contains(got, "\r\n") {
		t.Fatalf("expected old block and CRLF removed:\n%s", got)
	}
	if !strings.Contains(got, "model = \"o4-mini\"") || !strings.Contains(got, "[mcp_servers.other]") {
		t.Fatalf("expected other settings preserved:\n%s", got)
	}
	want := "[mcp_servers.aipjc]\ncommand = \"aipjc\"\nargs = [\"mcp\", \"--tools=reader,writer\"]\n"
	if !strings.HasSuffix(got, want) {
		t.Fatalf("expected block at end:\n%s", got)
	}
	if strings.Count(got, "[mcp_servers.aipjc]") != 1 {
		t.Fatalf("expected exactly one block:\n%s", got)
	}
}

func TestUpsertCodexBlockOnEmptyConfig(t *testing.T) {
	got, replaced := upsertCodexBlock("", "[mcp_servers.aipjc]")
	if got != "[mcp_servers.aipjc]\n" || replaced {
		t.Fatalf("unexpected: %q %v", got, replaced)
	}
}

func TestInstallErrorPaths(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		home := useTestHome(t)
		path := filepath.Join(home, ".gemini", "settings.json")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Install("gemini-cli", Options{}); err == nil || !strings.Contains(err.Error(), "parse config") {
			t.Fatalf("expected parse error, got %v", err)
		}
	})

	t.Run("bad server block", func(t *testing.T) {
		home := useTestHome(t)
		path := filepath.Join(home, ".gemini", "settings.json")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(`{"mcpServers":[]}`), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Install("gemini-cli", Options{}); err == nil || !strings.Contains(err.Error(), "parse mcpServers block") {
			t.Fatalf("expected block parse error, got %v", err)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		useTestHome(t)
		readFileFn = func(string) ([]byte, error) { return nil, errors.New("disk on fire") }
		if _, err := Install("codex", Options{}); err == nil || !strings.Contains(err.Error(), "read config") {
			t.Fatalf("expected read error, got %v", err)
		}
	})

	t.Run("write failure", func(t *testing.T) {
		useTestHome(t)
		writeFileFn = func(string, []byte, os.FileMode) error { return errors.New("read-only") }
		if _, err := Install("claude-desktop", Options{}); err == nil || !strings.Contains(err.Error(), "write config") {
			t.Fatalf("expected write error, got %v", err)
		}
	})

	t.Run("marshal failure", func(t *testing.T) {
		useTestHome(t)
		jsonMarshalIndentFn = func(any, string, string) ([]byte, error) { return nil, errors.New("boom") }
		if _, err := Install("opencode", Options{}); err == nil || !strings.Contains(err.Error(), "marshal config") {
			t.Fatalf("expected marshal error, got %v", err)
		}
	})
}

func TestPathHelpersAcrossOSVariants(t *testing.T) {
	home := useTestHome(t)

	runtimeGOOS = "darwin"
	if got := claudeDesktopConfigPath(); got != filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json") {
		t.Fatalf("unexpected darwin claude path: %s", got)
	}

	runtimeGOOS = "linux"
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := openCodeConfigPath(); got != filepath.Join("/xdg", "opencode", "opencode.json") {
		t.Fatalf("unexpected xdg opencode path: %s", got)
	}
	if got := geminiConfigPath(); got != filepath.Join(home, ".gemini", "settings.json") {
		t.Fatalf("gemini path must ignore XDG: %s", got)
	}

	runtimeGOOS = "windows"
	t.Setenv("APPDATA", "/appdata")
	if got := codexConfigPath(); got != filepath.Join("/appdata", "codex", "config.toml") {
		t.Fatalf("unexpected windows codex path: %s", got)
	}
	t.Setenv("APPDATA", "")
	if got := claudeDesktopConfigPath(); got != filepath.Join(home, "AppData", "Roaming", "Claude", "claude_desktop_config.json") {
		t.Fatalf("unexpected windows claude fallback: %s", got)
	}
}
