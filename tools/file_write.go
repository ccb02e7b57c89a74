package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gertlabs/gert/tools/base"
)

// WriteFileParams defines the parameters for write_file
type WriteFileParams struct {
	Filepath string `json:"filepath" schema:"required,min:1" description:"Path to the file to write"`
	Content  string `json:"content" description:"Content to write to the file"`
}

// WriteFileTool writes a file inside an allowed directory
type WriteFileTool struct {
	base.BaseTool
	sandbox *Sandbox
}

// NewWriteFileTool creates the write_file tool
func NewWriteFileTool(sandbox *Sandbox) *WriteFileTool {
	return &WriteFileTool{
		BaseTool: base.BaseTool{
			ToolName: "write_file",
			ToolDesc: "Write content to a file in an allowed directory, creating parent directories as needed.",
		},
		sandbox: sandbox,
	}
}

// Parameters returns the parameters struct
func (t *WriteFileTool) Parameters() interface{} {
	return &WriteFileParams{}
}

// Execute writes the file
func (t *WriteFileTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args WriteFileParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}

	path, err := t.sandbox.Resolve(args.Filepath)
	if err != nil {
		return fileFailure("writing file", args.Filepath, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fileFailure("creating directory", args.Filepath, err)
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return fileFailure("writing file", args.Filepath, err)
	}

	return Ok(map[string]interface{}{
		"success":       true,
		"filepath":      args.Filepath,
		"bytes_written": len(args.Content),
	})
}
