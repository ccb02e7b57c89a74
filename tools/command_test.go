package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func grepTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha\nbeta\n"), 0o644)
	os.WriteFile(filepath.Join(root, "b.txt"), []byte("Beta\n"), 0o644)
	os.Mkdir(filepath.Join(root, "sub"), 0o755)
	os.WriteFile(filepath.Join(root, "sub", "c.txt"), []byte("beta\n"), 0o644)
	return root
}

func TestGrepFiles(t *testing.T) {
	requireCommand(t, "grep")
	root := grepTree(t)
	tool := NewGrepFilesTool(NewSandbox(root))

	out := decodePayload(t, tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{"pattern": "beta"})))
	stdout := out["stdout"].(string)
	if out["returncode"] != float64(0) || !strings.Contains(stdout, "a.txt:2:beta") {
		t.Fatalf("unexpected output %v", out)
	}
	if strings.Contains(stdout, "b.txt") || strings.Contains(stdout, "c.txt") {
		t.Fatalf("case-sensitive top-level search matched too much: %s", stdout)
	}

	out = decodePayload(t, tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{
		"pattern": "beta", "directory": root, "case_insensitive": true,
	})))
	if !strings.Contains(out["stdout"].(string), "b.txt:1:Beta") {
		t.Fatalf("case-insensitive search missed b.txt: %v", out)
	}

	out = decodePayload(t, tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{
		"pattern": "beta", "recursive": true,
	})))
	if !strings.Contains(out["stdout"].(string), filepath.Join("sub", "c.txt")+":1:beta") {
		t.Fatalf("recursive search missed sub/c.txt: %v", out)
	}
}

func TestGrepFilesNoMatchIsNotAnError(t *testing.T) {
	requireCommand(t, "grep")
	root := grepTree(t)

	out := decodePayload(t, NewGrepFilesTool(NewSandbox(root)).Execute(context.Background(), mustArgs(t, map[string]interface{}{"pattern": "gamma"})))
	if out["returncode"] != float64(1) || out["stdout"] != "" {
		t.Fatalf("expected returncode 1 with no output, got %v", out)
	}
}

func TestGrepFilesPatternIsNotAnOption(t *testing.T) {
	requireCommand(t, "grep")
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "flags.txt"), []byte("use --version here\n"), 0o644)

	out := decodePayload(t, NewGrepFilesTool(NewSandbox(root)).Execute(context.Background(), mustArgs(t, map[string]interface{}{"pattern": "--version"})))
	if !strings.Contains(out["stdout"].(string), "flags.txt:1:use --version here") {
		t.Fatalf("pattern was not searched literally: %v", out)
	}
}

func TestCommandToolsDenyOutsideRoots(t *testing.T) {
	s := NewSandbox(t.TempDir())
	outside := t.TempDir()

	r := NewGrepFilesTool(s).Execute(context.Background(), mustArgs(t, map[string]interface{}{"pattern": "x", "directory": outside}))
	if !r.IsErr() || r.Err.Code != CodeAccessDenied {
		t.Fatalf("grep outside roots: expected ACCESS_DENIED, got %+v", r)
	}
	r = NewFindFilesTool(s).Execute(context.Background(), mustArgs(t, map[string]interface{}{"directory": outside}))
	if !r.IsErr() || r.Err.Code != CodeAccessDenied {
		t.Fatalf("find outside roots: expected ACCESS_DENIED, got %+v", r)
	}

	r = NewFindFilesTool(NewSandbox()).Execute(context.Background(), mustArgs(t, map[string]interface{}{}))
	if !r.IsErr() || r.Err.Code != CodeNotConfigured {
		t.Fatalf("no roots: expected NOT_CONFIGURED, got %+v", r)
	}
}

func TestFindFiles(t *testing.T) {
	requireCommand(t, "find")
	root := grepTree(t)
	tool := NewFindFilesTool(NewSandbox(root))

	out := decodePayload(t, tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{"name_pattern": "*.txt", "file_type": "file"})))
	if out["count"] != float64(3) || out["truncated"] != false {
		t.Fatalf("expected 3 text files, got %v", out)
	}

	out = decodePayload(t, tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{"file_type": "directory"})))
	if out["count"] != float64(2) || !strings.Contains(out["stdout"].(string), "sub") {
		t.Fatalf("expected root and sub, got %v", out)
	}

	r := tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{"file_type": "socket"}))
	if !r.IsErr() || r.Err.Code != CodeValidationFailed {
		t.Fatalf("expected VALIDATION_FAILED, got %+v", r)
	}
}

func TestFindFilesCapsResults(t *testing.T) {
	requireCommand(t, "find")
	root := t.TempDir()
	for i := 0; i < maxFindResults+20; i++ {
		os.WriteFile(filepath.Join(root, fmt.Sprintf("f%03d.log", i)), nil, 0o644)
	}

	out := decodePayload(t, NewFindFilesTool(NewSandbox(root)).Execute(context.Background(), mustArgs(t, map[string]interface{}{"name_pattern": "*.log"})))
	if out["count"] != float64(maxFindResults) || out["truncated"] != true {
		t.Fatalf("expected %d results and truncated, got count=%v truncated=%v", maxFindResults, out["count"], out["truncated"])
	}
}

func TestRunCommandStopsWithContext(t *testing.T) {
	requireCommand(t, "sleep")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runCommand(ctx, "", nil, "sleep", "5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("subprocess outlived its context: %v", elapsed)
	}
}

func TestPythonExec(t *testing.T) {
	requireCommand(t, "python3")
	tool := NewPythonExecTool("")

	code := "print('hello')\nopen('out.txt', 'w').write('data')\n"
	out := decodePayload(t, tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{"code": code})))
	if out["stdout"] != "hello\n" || out["returncode"] != float64(0) {
		t.Fatalf("unexpected output %v", out)
	}
	files := out["created_files"].(map[string]interface{})
	if files["out.txt"] != "data" {
		t.Fatalf("expected out.txt in created files, got %v", files)
	}
	if _, ok := files[pythonScriptName]; ok {
		t.Fatalf("script itself must not be reported")
	}

	out = decodePayload(t, tool.Execute(context.Background(), mustArgs(t, map[string]interface{}{"code": "import sys\nsys.exit(3)\n"})))
	if out["returncode"] != float64(3) {
		t.Fatalf("expected returncode 3, got %v", out)
	}
}

func TestPythonExecTimeout(t *testing.T) {
	requireCommand(t, "python3")

	r := NewPythonExecTool("").Execute(context.Background(), mustArgs(t, map[string]interface{}{
		"code": "import time\ntime.sleep(10)\n", "timeout": 1,
	}))
	if !r.IsErr() || r.Err.Code != CodeTimeout {
		t.Fatalf("expected TIMEOUT, got %+v", r)
	}
	if !strings.Contains(r.Text(), "timed out after 1 seconds") {
		t.Fatalf("unexpected message %s", r.Text())
	}
}

func TestPythonExecMissingInterpreter(t *testing.T) {
	r := NewPythonExecTool("gert-no-such-python").Execute(context.Background(), mustArgs(t, map[string]interface{}{"code": "print(1)"}))
	if !r.IsErr() || r.Err.Code != CodeNotConfigured {
		t.Fatalf("expected NOT_CONFIGURED, got %+v", r)
	}
}
