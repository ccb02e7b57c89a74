package tools

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/gertlabs/gert/tools/base"
)

// ListDirectoryParams defines the parameters for list_directory
type ListDirectoryParams struct {
	Dirpath string `json:"dirpath" schema:"required,min:1" description:"Path to the directory"`
}

// DirectoryItem is one entry of a listing
type DirectoryItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size *int64 `json:"size"`
}

// ListDirectoryTool lists a directory inside an allowed location
type ListDirectoryTool struct {
	base.BaseTool
	sandbox *Sandbox
}

// NewListDirectoryTool creates the list_directory tool
func NewListDirectoryTool(sandbox *Sandbox) *ListDirectoryTool {
	return &ListDirectoryTool{
		BaseTool: base.BaseTool{
			ToolName: "list_directory",
			ToolDesc: "List contents of a directory in an allowed location.",
		},
		sandbox: sandbox,
	}
}

// Parameters returns the parameters struct
func (t *ListDirectoryTool) Parameters() interface{} {
	return &ListDirectoryParams{}
}

// Execute lists the directory, one level deep, sorted by name
func (t *ListDirectoryTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args ListDirectoryParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}

	path, err := t.sandbox.Resolve(args.Dirpath)
	if err != nil {
		return fileFailure("listing directory", args.Dirpath, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fileFailure("listing directory", args.Dirpath, err)
	}
	if !info.IsDir() {
		return Fail(CodeValidationFailed, "Not a directory: "+args.Dirpath)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fileFailure("listing directory", args.Dirpath, err)
	}

	items := make([]DirectoryItem, 0, len(entries))
	for _, entry := range entries {
		item := DirectoryItem{Name: entry.Name(), Type: "file"}
		if entry.IsDir() {
			item.Type = "directory"
		} else if fi, err := entry.Info(); err == nil {
			size := fi.Size()
			item.Size = &size
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	return Ok(map[string]interface{}{
		"directory": args.Dirpath,
		"items":     items,
	})
}
