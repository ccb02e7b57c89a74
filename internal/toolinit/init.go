// Package toolinit registers the built-in tools with their dependencies.
package toolinit

import (
	"net/http"

	"github.com/gertlabs/gert/consensus"
	"github.com/gertlabs/gert/history"
	"github.com/gertlabs/gert/tools"
	"github.com/gertlabs/gert/tools/registry"
)

// Deps carries what the tools need. A nil Panel, nil Store or empty
// AllowedDirs leaves the corresponding tools out. The command tools and
// execute_python_code come with the file tools.
type Deps struct {
	HTTPClient        *http.Client
	WikipediaEndpoint string
	WebSearch         tools.WebSearchConfig

	Panel    tools.Panel
	Backends []consensus.Backend

	Store history.Store

	AllowedDirs []string
	// PythonInterpreter defaults to python3 on PATH
	PythonInterpreter string
}

// RegisterAll registers every built-in tool whose dependencies are present
func RegisterAll(reg *registry.Registry, deps Deps) error {
	var regs []struct {
		name    string
		factory registry.ToolFactory
	}
	add := func(t tools.Tool) {
		regs = append(regs, struct {
			name    string
			factory registry.ToolFactory
		}{t.Name(), func() tools.Tool { return t }})
	}

	// Lookups
	add(tools.NewWikipediaTool(deps.HTTPClient, deps.WikipediaEndpoint))
	webCfg := deps.WebSearch
	if webCfg.Client == nil {
		webCfg.Client = deps.HTTPClient
	}
	add(tools.NewWebSearchTool(webCfg))

	// Consulted models
	if deps.Panel != nil {
		for _, b := range deps.Backends {
			add(tools.NewBackendTool(deps.Panel, b.ID, b.Label))
		}
		add(tools.NewConsensusTool(deps.Panel))
		add(tools.NewSuperconsensusTool(deps.Panel))
	}

	// Conversation history
	if deps.Store != nil {
		add(tools.NewLookupConversationsTool(deps.Store))
		add(tools.NewListConversationsTool(deps.Store))
		add(tools.NewDeleteConversationTool(deps.Store))
		add(tools.NewClearHistoryTool(deps.Store))
	}

	// File operations
	if len(deps.AllowedDirs) > 0 {
		sandbox := tools.NewSandbox(deps.AllowedDirs...)
		add(tools.NewReadFileTool(sandbox))
		add(tools.NewWriteFileTool(sandbox))
		add(tools.NewListDirectoryTool(sandbox))
		add(tools.NewHeadFileTool(sandbox))
		add(tools.NewGrepFilesTool(sandbox))
		add(tools.NewFindFilesTool(sandbox))
		add(tools.NewPythonExecTool(deps.PythonInterpreter))
	}

	for _, r := range regs {
		if err := reg.Register(r.name, r.factory); err != nil {
			return err
		}
	}
	return nil
}
