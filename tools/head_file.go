package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/gertlabs/gert/tools/base"
)

const defaultHeadLines = 10

// HeadFileParams defines the parameters for head_file
type HeadFileParams struct {
	Filepath string `json:"filepath" schema:"required,min:1" description:"Path to the file"`
	Lines    int    `json:"lines,omitempty" schema:"min:1,max:1000" description:"Number of lines to show (default 10)"`
}

// HeadFileTool shows the first lines of a file
type HeadFileTool struct {
	base.BaseTool
	sandbox *Sandbox
}

// NewHeadFileTool creates the head_file tool
func NewHeadFileTool(sandbox *Sandbox) *HeadFileTool {
	return &HeadFileTool{
		BaseTool: base.BaseTool{
			ToolName: "head_file",
			ToolDesc: "Show first N lines of a file.",
		},
		sandbox: sandbox,
	}
}

// Parameters returns the parameters struct
func (t *HeadFileTool) Parameters() interface{} {
	return &HeadFileParams{}
}

// Execute reads up to Lines lines
func (t *HeadFileTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args HeadFileParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}
	n := args.Lines
	if n <= 0 {
		n = defaultHeadLines
	}

	path, err := t.sandbox.Resolve(args.Filepath)
	if err != nil {
		return fileFailure("reading file", args.Filepath, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fileFailure("reading file", args.Filepath, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for len(lines) < n && scanner.Scan() {
		if ctx.Err() != nil {
			return Failf(CodeExecutionFailed, "Error reading file", ctx.Err())
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fileFailure("reading file", args.Filepath, err)
	}

	return Ok(map[string]interface{}{
		"filepath": args.Filepath,
		"lines":    len(lines),
		"content":  strings.Join(lines, "\n"),
	})
}
