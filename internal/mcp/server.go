package mcp

import (
	"maps"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dailyaf/vaultcap/internal/config"
	"github.com/dailyaf/vaultcap/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"capsule", "module", "activity"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capsule_catalog": {
		def:     catalogToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCatalog },
	},
	"capsule_install": {
		def:     installToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInstall },
	},
	"capsule_update": {
		def:     updateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"capsule_remove": {
		def:     removeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemove },
	},
	"capsule_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"capsule_history": {
		def:     historyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistory },
	},
	"module_list": {
		def:     moduleListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleModuleList },
	},
	"module_move": {
		def:     moduleMoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleModuleMove },
	},
	"activity_list": {
		def:     activityListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleActivityList },
	},
}

// AllToolNames returns every registered tool name, sorted.
func AllToolNames() []string {
	return slices.Sorted(maps.Keys(toolRegistry))
}

// ValidateDisabledTools returns the names that match no registered tool.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the names that are not in KnownTypes.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "module_move" → "module").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns the sorted names of tools belonging to types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	tools := make([]string, 0)
	for _, name := range AllToolNames() {
		if slices.Contains(types, GetTypeForTool(name)) {
			tools = append(tools, name)
		}
	}
	return tools
}

// disabledTools merges cfg's disabled tools with the tools of its disabled types.
func disabledTools(cfg *config.Config) map[string]bool {
	disabled := make(map[string]bool)
	if cfg == nil {
		return disabled
	}
	for _, name := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[name] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	return disabled
}

// NewServer creates a new MCP server with the capsule tools registered.
// Tools listed in env.Config.DisabledTools or belonging to
// env.Config.DisabledTypes are excluded from registration.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"vaultcap",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)
	disabled := disabledTools(env.Config)

	for _, name := range AllToolNames() {
		if disabled[name] {
			continue
		}
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	if env.Config != nil && env.Logger != nil {
		for _, name := range ValidateDisabledTools(env.Config.DisabledTools) {
			env.Logger.Printf("WARNING: unknown tool in disabled_tools: %s", name)
		}
		for _, name := range ValidateDisabledTypes(env.Config.DisabledTypes) {
			env.Logger.Printf("WARNING: unknown type in disabled_types: %s", name)
		}
	}

	s := NewServer(env, version)
	return server.ServeStdio(s)
}
