package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/emlfs/internal/vfs"
)

// Registry manages MCP tools
type Registry struct {
	logger   *logrus.Logger
	provider *vfs.Provider
	mounts   *vfs.ProjectionRegistry
	tools    map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a new tool registry
func NewRegistry(provider *vfs.Provider, mounts *vfs.ProjectionRegistry, logger *logrus.Logger) (*Registry, error) {
	if provider == nil || mounts == nil {
		return nil, fmt.Errorf("provider and projection registry are required")
	}
	reg := &Registry{
		logger:   logger,
		provider: provider,
		mounts:   mounts,
		tools:    make(map[string]Tool),
	}

	// Register all tools
	reg.registerTools()

	return reg, nil
}

// registerTools registers all available tools
func (r *Registry) registerTools() {
	toolList := []Tool{
		NewMountEmailTool(r.mounts, r.logger),
		NewListMountsTool(r.mounts),
		NewStatPathTool(r.provider),
		NewListDirectoryTool(r.provider),
		NewReadFileTool(r.provider, r.logger),
	}

	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools sorted by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	list := r.ListTools()
	definitions := make([]map[string]interface{}, 0, len(list))
	for _, tool := range list {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}

// stringParam extracts a required, non-empty string argument
func stringParam(params map[string]interface{}, key string) (string, error) {
	value, ok := params[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

func uriSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"uri": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"uri"},
	}
}
