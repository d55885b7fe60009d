package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/emlfs/internal/vfs"
	"github.com/brandon/emlfs/pkg/types"
)

// StatPathTool reports metadata for a projection path
type StatPathTool struct {
	provider *vfs.Provider
}

// NewStatPathTool creates a new stat path tool
func NewStatPathTool(provider *vfs.Provider) *StatPathTool {
	return &StatPathTool{provider: provider}
}

// Name returns the tool name
func (t *StatPathTool) Name() string {
	return "stat_path"
}

// Description returns the tool description
func (t *StatPathTool) Description() string {
	return "Report kind, size and timestamps of a path inside a mounted email"
}

// InputSchema returns the JSON schema for tool inputs
func (t *StatPathTool) InputSchema() map[string]interface{} {
	return uriSchema("Synthetic URI or host path below an email file")
}

// Execute executes the tool
func (t *StatPathTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	uri, err := stringParam(params, "uri")
	if err != nil {
		return nil, err
	}

	st, err := t.provider.Stat(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	result := map[string]interface{}{
		"uri":    uri,
		"kind":   st.Kind.String(),
		"exists": st.Kind != types.KindUnknown,
		"size":   st.Size,
	}
	if !st.ModifiedAt.IsZero() {
		result["created_at"] = st.CreatedAt.Format(time.RFC3339)
		result["modified_at"] = st.ModifiedAt.Format(time.RFC3339)
	}
	return result, nil
}

// ListDirectoryTool lists the root of a projection
type ListDirectoryTool struct {
	provider *vfs.Provider
}

// NewListDirectoryTool creates a new list directory tool
func NewListDirectoryTool(provider *vfs.Provider) *ListDirectoryTool {
	return &ListDirectoryTool{provider: provider}
}

// Name returns the tool name
func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

// Description returns the tool description
func (t *ListDirectoryTool) Description() string {
	return "List the index page and attachments of a mounted email"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListDirectoryTool) InputSchema() map[string]interface{} {
	return uriSchema("Root URI of a mounted email, or the email file path itself")
}

// Execute executes the tool
func (t *ListDirectoryTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	uri, err := stringParam(params, "uri")
	if err != nil {
		return nil, err
	}

	entries, err := t.provider.ReadDirectory(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	res := t.provider.Resolver()
	target, err := res.Locate(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	results := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		results = append(results, map[string]interface{}{
			"name": e.Name,
			"kind": e.Kind.String(),
			"uri":  res.URI(target.Source, e.Name),
		})
	}
	return map[string]interface{}{
		"uri":     uri,
		"entries": results,
		"count":   len(results),
	}, nil
}

// ReadFileTool returns the content of a projection file
type ReadFileTool struct {
	provider *vfs.Provider
	logger   *logrus.Logger
}

// NewReadFileTool creates a new read file tool
func NewReadFileTool(provider *vfs.Provider, logger *logrus.Logger) *ReadFileTool {
	return &ReadFileTool{provider: provider, logger: logger}
}

// Name returns the tool name
func (t *ReadFileTool) Name() string {
	return "read_file"
}

// Description returns the tool description
func (t *ReadFileTool) Description() string {
	return "Read the HTML index page as text or an attachment as base64"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ReadFileTool) InputSchema() map[string]interface{} {
	return uriSchema("URI of the index page or of an attachment")
}

// Execute executes the tool
func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	uri, err := stringParam(params, "uri")
	if err != nil {
		return nil, err
	}

	content, err := t.provider.ReadFile(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	result := map[string]interface{}{
		"uri":  uri,
		"size": len(content),
	}
	if t.isIndex(uri) {
		result["text"] = string(content)
	} else {
		result["content_base64"] = base64.StdEncoding.EncodeToString(content)
	}
	t.logger.WithFields(logrus.Fields{
		"uri":  uri,
		"size": len(content),
	}).Debug("Read projection file")
	return result, nil
}

func (t *ReadFileTool) isIndex(uri string) bool {
	target, err := t.provider.Resolver().Locate(uri)
	if err != nil {
		return false
	}
	return strings.TrimPrefix(target.Path, "/") == types.IndexName(target.Source)
}
