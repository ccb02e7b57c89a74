package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/gertlabs/gert/tools/base"
)

// maxGrepFiles bounds a non-recursive search to this many files
const maxGrepFiles = 50

// GrepFilesParams defines the parameters for grep_files
type GrepFilesParams struct {
	Pattern         string `json:"pattern" schema:"required,min:1" description:"Pattern to search for"`
	Directory       string `json:"directory,omitempty" description:"Directory to search (default: first allowed directory)"`
	Recursive       bool   `json:"recursive,omitempty" description:"Search subdirectories"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" description:"Ignore case"`
}

// GrepFilesTool searches file contents with grep inside an allowed directory
type GrepFilesTool struct {
	base.BaseTool
	sandbox *Sandbox
}

// NewGrepFilesTool creates the grep_files tool
func NewGrepFilesTool(sandbox *Sandbox) *GrepFilesTool {
	return &GrepFilesTool{
		BaseTool: base.BaseTool{
			ToolName:    "grep_files",
			ToolDesc:    "Search for a pattern in files within an allowed directory.",
			ToolTimeout: base.CommandTimeout,
		},
		sandbox: sandbox,
	}
}

// Parameters returns the parameters struct
func (t *GrepFilesTool) Parameters() interface{} {
	return &GrepFilesParams{}
}

// Execute runs grep and returns its captured output. No match is not an error.
func (t *GrepFilesTool) Execute(ctx context.Context, params json.RawMessage) Result {
	var args GrepFilesParams
	if err := json.Unmarshal(params, &args); err != nil {
		return Failf(CodeInvalidParams, "Failed to parse parameters", err)
	}
	if args.Pattern == "" {
		return Fail(CodeValidationFailed, "Pattern cannot be empty")
	}

	dir, res, ok := commandDir(t.sandbox, args.Directory)
	if !ok {
		return res
	}

	argv := []string{"-n"}
	if args.CaseInsensitive {
		argv = append(argv, "-i")
	}
	if args.Recursive {
		argv = append(argv, "-r", "-e", args.Pattern, "--", dir)
	} else {
		files, err := topFiles(dir, maxGrepFiles)
		if err != nil {
			return fileFailure("listing directory", args.Directory, err)
		}
		if len(files) == 0 {
			return Ok(CommandOutput{ReturnCode: 1, Command: "grep"})
		}
		// -H keeps file names in the output when only one file is searched
		argv = append(argv, "-H", "-e", args.Pattern, "--")
		argv = append(argv, files...)
	}

	out, err := runCommand(ctx, dir, nil, "grep", argv...)
	if err != nil {
		return Failf(CodeExecutionFailed, "Error running grep", err)
	}
	return Ok(out)
}

// commandDir resolves the working directory of a command tool. An empty
// directory means the first allowed root.
func commandDir(sandbox *Sandbox, dir string) (string, Result, bool) {
	if dir == "" {
		roots := sandbox.Roots()
		if len(roots) == 0 {
			return "", Fail(CodeNotConfigured, "No allowed directories configured"), false
		}
		return roots[0], Result{}, true
	}
	resolved, err := sandbox.Resolve(dir)
	if err != nil {
		return "", fileFailure("resolving directory", dir, err), false
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fileFailure("resolving directory", dir, err), false
	}
	if !info.IsDir() {
		return "", Fail(CodeValidationFailed, "Not a directory: "+dir), false
	}
	return resolved, Result{}, true
}

// topFiles lists up to limit regular files directly inside dir, by name
func topFiles(dir string, limit int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
		if len(files) == limit {
			break
		}
	}
	return files, nil
}
