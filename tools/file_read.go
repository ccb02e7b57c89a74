package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"unicode/utf8"

	"github.com/gertlabs/gert/tools/base"
)

const defaultReadMaxBytes = 50 * 1024

// FilePathParams is shared by tools that take a single file path
type FilePathParams struct {
	Filepath string `json:"filepath" schema:"required,min:1" description:"Path to the file"`
}

// ReadFileTool reads a file from an allowed directory
type ReadFileTool struct {
	base.BaseTool
	sandbox *Sandbox
}

// NewReadFileTool creates the read_file tool
func NewReadFileTool(sandbox *Sandbox) *ReadFileTool {
	return &ReadFileTool{
		BaseTool: base.BaseTool{
			ToolName: "read_file",
			ToolDesc: "Read contents of a file from an allowed directory.",
		},
		sandbox: sandbox,
	}
}

// Parameters returns the parameters struct
func (t *ReadFileTool) Parameters() interface{} {
	return &FilePathParams{}
}

// Execute reads the file, truncated to 50KB
func (t *ReadFileTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args FilePathParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}

	path, err := t.sandbox.Resolve(args.Filepath)
	if err != nil {
		return fileFailure("reading file", args.Filepath, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fileFailure("reading file", args.Filepath, err)
	}
	if info.IsDir() {
		return Fail(CodeValidationFailed, "Path points to a directory, not a file: "+args.Filepath)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fileFailure("reading file", args.Filepath, err)
	}

	text, truncated := truncateUTF8Head(string(content), defaultReadMaxBytes)
	out := map[string]interface{}{
		"content":  text,
		"filepath": args.Filepath,
	}
	if truncated {
		out["truncated"] = true
	}
	return Ok(out)
}

// truncateUTF8Head cuts s to at most maxBytes without splitting a rune
func truncateUTF8Head(s string, maxBytes int) (string, bool) {
	if maxBytes <= 0 {
		return "", true
	}
	if len(s) <= maxBytes {
		return s, false
	}

	var b bytes.Buffer
	b.Grow(maxBytes)
	truncated := false

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			// Drop invalid bytes rather than emit invalid UTF-8.
			i++
			truncated = true
			continue
		}
		if b.Len()+size > maxBytes {
			truncated = true
			break
		}
		b.WriteRune(r)
		i += size
	}

	return b.String(), truncated
}
