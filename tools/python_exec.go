package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gertlabs/gert/tools/base"
)

const (
	defaultPythonTimeout = 30
	maxPythonTimeout     = 55
	// files created by the script larger than this are not returned
	maxCreatedFileSize = 10000
	pythonScriptName   = "script.py"
)

// PythonExecParams defines the parameters for execute_python_code
type PythonExecParams struct {
	Code    string `json:"code" schema:"required,min:1" description:"Python source to run"`
	Timeout int    `json:"timeout,omitempty" schema:"min:1,max:55" description:"Seconds before the run is stopped (default 30)"`
}

// PythonExecTool runs Python code in a scratch directory with a stripped
// environment.
type PythonExecTool struct {
	base.BaseTool
	interpreter string
}

// NewPythonExecTool creates the execute_python_code tool. An empty
// interpreter means python3 from PATH.
func NewPythonExecTool(interpreter string) *PythonExecTool {
	if interpreter == "" {
		interpreter = "python3"
	}
	return &PythonExecTool{
		BaseTool: base.BaseTool{
			ToolName:    "execute_python_code",
			ToolDesc:    "Execute Python code in a scratch directory and return its output and any small files it created.",
			ToolTimeout: base.CommandTimeout,
		},
		interpreter: interpreter,
	}
}

// Parameters returns the parameters struct
func (t *PythonExecTool) Parameters() interface{} {
	return &PythonExecParams{}
}

// Execute writes the code to a scratch directory and runs it there
func (t *PythonExecTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args PythonExecParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}
	if args.Code == "" {
		return Fail(CodeValidationFailed, "Code cannot be empty")
	}
	timeout := args.Timeout
	if timeout <= 0 {
		timeout = defaultPythonTimeout
	}
	if timeout > maxPythonTimeout {
		timeout = maxPythonTimeout
	}

	interpreter, err := exec.LookPath(t.interpreter)
	if err != nil {
		return Failf(CodeNotConfigured, "Python interpreter not found", err)
	}

	dir, err := os.MkdirTemp("", "gert-python-")
	if err != nil {
		return Failf(CodeExecutionFailed, "Error creating scratch directory", err)
	}
	defer os.RemoveAll(dir)

	script := filepath.Join(dir, pythonScriptName)
	if err := os.WriteFile(script, []byte(args.Code), 0o600); err != nil {
		return Failf(CodeExecutionFailed, "Error writing script", err)
	}

	env := []string{
		"PYTHONPATH=",
		"PATH=" + os.Getenv("PATH"),
		"TMPDIR=" + dir,
		"HOME=" + dir,
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	out, err := runCommand(runCtx, dir, env, interpreter, script)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return Fail(CodeTimeout, fmt.Sprintf("Code execution timed out after %d seconds", timeout))
		}
		return Failf(CodeExecutionFailed, "Error running Python", err)
	}

	return Ok(map[string]interface{}{
		"stdout":        out.Stdout,
		"stderr":        out.Stderr,
		"returncode":    out.ReturnCode,
		"created_files": createdFiles(dir),
	})
}

// createdFiles returns the small regular files the script left in dir
func createdFiles(dir string) map[string]string {
	files := map[string]string{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}
	for _, e := range entries {
		if e.Name() == pythonScriptName || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() >= maxCreatedFileSize {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		files[e.Name()] = string(data)
	}
	return files
}
