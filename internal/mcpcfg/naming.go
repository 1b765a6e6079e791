// Package mcpcfg builds the entry AI clients use to launch the ideaflow MCP
// server, and merges it into their JSON config files.
package mcpcfg

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CanonicalServerName is the key ideaflow registers under in client configs.
const CanonicalServerName = "ideaflow-mcp"

// IsCanonicalServerName reports whether name is the current server key.
func IsCanonicalServerName(name string) bool {
	return strings.TrimSpace(strings.ToLower(name)) == CanonicalServerName
}

// IsStaleServerName reports whether name is an older ideaflow key that
// Merge should replace, like "ideaflow" or "ideaflow-mcp-my-ideas".
func IsStaleServerName(name string) bool {
	normalized := strings.TrimSpace(strings.ToLower(name))
	if normalized == "" || normalized == CanonicalServerName {
		return false
	}
	return normalized == "ideaflow" || strings.HasPrefix(normalized, "ideaflow-")
}

// ServerEntry is one mcpServers entry, in the format shared by Claude
// Desktop, Cursor and most other clients.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
}

// Entry returns the launch entry for binary. configFile, when set, is passed
// with --config.
func Entry(binary, configFile string) ServerEntry {
	args := []string{"mcp"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	return ServerEntry{Command: binary, Args: args}
}

// Snippet renders a standalone client config holding only entry.
func Snippet(entry ServerEntry) ([]byte, error) {
	return json.MarshalIndent(map[string]any{
		"mcpServers": map[string]ServerEntry{CanonicalServerName: entry},
	}, "", "  ")
}

// Merge adds entry to an existing client config under CanonicalServerName.
// Stale ideaflow keys are removed; other servers and top-level keys are
// kept. An empty existing config starts a new one.
func Merge(existing []byte, entry ServerEntry) ([]byte, error) {
	root := map[string]json.RawMessage{}
	if len(strings.TrimSpace(string(existing))) > 0 {
		if err := json.Unmarshal(existing, &root); err != nil {
			return nil, fmt.Errorf("parse client config: %w", err)
		}
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := root["mcpServers"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return nil, fmt.Errorf("parse mcpServers: %w", err)
		}
	}
	for name := range servers {
		if IsStaleServerName(name) || IsCanonicalServerName(name) {
			delete(servers, name)
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	servers[CanonicalServerName] = data

	if root["mcpServers"], err = json.Marshal(servers); err != nil {
		return nil, err
	}
	return json.MarshalIndent(root, "", "  ")
}
