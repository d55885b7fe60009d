package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/emlfs/internal/vfs"
)

// MountEmailTool registers a local .eml or .msg file as a projection
type MountEmailTool struct {
	mounts *vfs.ProjectionRegistry
	logger *logrus.Logger
}

// NewMountEmailTool creates a new mount email tool
func NewMountEmailTool(mounts *vfs.ProjectionRegistry, logger *logrus.Logger) *MountEmailTool {
	return &MountEmailTool{mounts: mounts, logger: logger}
}

// Name returns the tool name
func (t *MountEmailTool) Name() string {
	return "mount_email"
}

// Description returns the tool description
func (t *MountEmailTool) Description() string {
	return "Mount a local .eml or .msg file as a read-only folder holding an index page and its attachments"
}

// InputSchema returns the JSON schema for tool inputs
func (t *MountEmailTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path of the email file on the host",
			},
		},
		"required": []string{"path"},
	}
}

// Execute executes the tool
func (t *MountEmailTool) Execute(_ context.Context, params map[string]interface{}) (interface{}, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	m, err := t.mounts.EnsureRegistered(path)
	if err != nil {
		return nil, fmt.Errorf("failed to mount email: %w", err)
	}
	return mountResult(m), nil
}

// ListMountsTool lists the mounted projections
type ListMountsTool struct {
	mounts *vfs.ProjectionRegistry
}

// NewListMountsTool creates a new list mounts tool
func NewListMountsTool(mounts *vfs.ProjectionRegistry) *ListMountsTool {
	return &ListMountsTool{mounts: mounts}
}

// Name returns the tool name
func (t *ListMountsTool) Name() string {
	return "list_mounts"
}

// Description returns the tool description
func (t *ListMountsTool) Description() string {
	return "List mounted email files in the order they were mounted"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListMountsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *ListMountsTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	mounts := t.mounts.Mounts()
	results := make([]map[string]interface{}, 0, len(mounts))
	for _, m := range mounts {
		results = append(results, mountResult(m))
	}
	return map[string]interface{}{
		"mounts": results,
		"count":  len(results),
	}, nil
}

func mountResult(m vfs.Mount) map[string]interface{} {
	return map[string]interface{}{
		"source":        m.Source,
		"root_uri":      m.RootURI,
		"index_uri":     m.IndexURI,
		"registered_at": m.RegisteredAt.Format(time.RFC3339),
	}
}
