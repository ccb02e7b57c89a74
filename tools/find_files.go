package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gertlabs/gert/tools/base"
)

const maxFindResults = 100

// FindFilesParams defines the parameters for find_files
type FindFilesParams struct {
	NamePattern string `json:"name_pattern,omitempty" description:"Name glob such as *.go"`
	Directory   string `json:"directory,omitempty" description:"Directory to search (default: first allowed directory)"`
	FileType    string `json:"file_type,omitempty" schema:"enum:file|directory" description:"Restrict to files or directories"`
}

// FindFilesTool locates files by name inside an allowed directory
type FindFilesTool struct {
	base.BaseTool
	sandbox *Sandbox
}

// NewFindFilesTool creates the find_files tool
func NewFindFilesTool(sandbox *Sandbox) *FindFilesTool {
	return &FindFilesTool{
		BaseTool: base.BaseTool{
			ToolName:    "find_files",
			ToolDesc:    "Find files by name pattern within an allowed directory.",
			ToolTimeout: base.CommandTimeout,
		},
		sandbox: sandbox,
	}
}

// Parameters returns the parameters struct
func (t *FindFilesTool) Parameters() interface{} {
	return &FindFilesParams{}
}

// Execute runs find and keeps the first maxFindResults paths
func (t *FindFilesTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args FindFilesParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}

	var typeFlag string
	switch args.FileType {
	case "":
	case "file", "f":
		typeFlag = "f"
	case "directory", "d":
		typeFlag = "d"
	default:
		return Fail(CodeValidationFailed, "file_type must be file or directory")
	}

	dir, res, ok := commandDir(t.sandbox, args.Directory)
	if !ok {
		return res
	}

	argv := []string{dir}
	if args.NamePattern != "" {
		argv = append(argv, "-name", args.NamePattern)
	}
	if typeFlag != "" {
		argv = append(argv, "-type", typeFlag)
	}

	out, err := runCommand(ctx, dir, nil, "find", argv...)
	if err != nil {
		return Failf(CodeExecutionFailed, "Error running find", err)
	}

	lines := strings.Split(strings.TrimRight(out.Stdout, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	truncated := len(lines) > maxFindResults
	if truncated {
		lines = lines[:maxFindResults]
	}
	out.Stdout = strings.Join(lines, "\n")

	return Ok(map[string]interface{}{
		"stdout":     out.Stdout,
		"stderr":     out.Stderr,
		"returncode": out.ReturnCode,
		"command":    out.Command,
		"count":      len(lines),
		"truncated":  truncated,
	})
}
