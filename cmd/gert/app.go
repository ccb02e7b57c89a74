package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gertlabs/gert/agent"
	"github.com/gertlabs/gert/config"
	"github.com/gertlabs/gert/consensus"
	"github.com/gertlabs/gert/history"
	"github.com/gertlabs/gert/internal/logx"
	"github.com/gertlabs/gert/internal/toolinit"
	"github.com/gertlabs/gert/llm"
	"github.com/gertlabs/gert/llm/anthropic"
	"github.com/gertlabs/gert/llm/gemini"
	"github.com/gertlabs/gert/llm/ollama"
	"github.com/gertlabs/gert/llm/openai"
	"github.com/gertlabs/gert/prompts"
	"github.com/gertlabs/gert/tools"
	"github.com/gertlabs/gert/tools/registry"
)

// app builds components on first use so that commands like
// "conversations list" never dial a model.
type app struct {
	settings *config.Settings
	creds    *config.Credentials
	logger   zerolog.Logger
	custom   string

	primary  llm.Client
	panel    *consensus.Aggregator
	store    history.Store
	rdb      *redis.Client
	registry *registry.Registry
	closers  []io.Closer
}

// newApp loads configuration and initializes logging. When logToFile is
// set, logs go to the configured log file (or <data_dir>/gert.log) so the
// terminal UI stays clean.
func newApp(logToFile bool) (*app, error) {
	settings, err := config.Load(settingsViper(), configFile)
	if err != nil {
		return nil, err
	}
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings, creds: creds}

	var out io.Writer = os.Stderr
	if logToFile || settings.LogFile != "" {
		path := settings.LogFile
		if path == "" {
			path = filepath.Join(settings.DataDir, "gert.log")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
	}
	logx.Init(logx.Options{
		Environment: logx.ParseEnvironment(settings.Environment),
		Level:       settings.LogLevel,
		Output:      out,
	})
	a.logger = logx.Logger()

	custom, err := prompts.LoadCustom(settings.Prompts.CustomInstructions)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to read custom instructions")
	}
	a.custom = custom
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

// Primary returns the Ollama client that drives the turn loop
func (a *app) Primary() (llm.Client, error) {
	if a.primary != nil {
		return a.primary, nil
	}
	opts := []llm.ClientOption{llm.WithModel(a.settings.Ollama.Model)}
	if a.settings.Ollama.Host != "" {
		opts = append(opts, llm.WithBaseURL(a.settings.Ollama.Host))
	}
	client, err := ollama.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	a.primary = client
	a.closers = append(a.closers, client)
	return client, nil
}

// backendSpecs lists the consulted models in panel order
var backendSpecs = []struct {
	id    string
	label string
	kind  prompts.Kind
}{
	{"gemini", "Gemini", prompts.Gemini},
	{"openai", "GPT-5", prompts.OpenAI},
	{"grok", "Grok", prompts.Grok},
	{"claude", "Claude", prompts.Claude},
}

func (a *app) newBackendClient(ctx context.Context, id string, opts []llm.ClientOption) (llm.Client, error) {
	switch id {
	case "gemini":
		return gemini.NewClient(ctx, append(opts, llm.WithAPIKey(a.creds.GeminiAPIKey))...)
	case "openai":
		return openai.NewClient(append(opts, llm.WithAPIKey(a.creds.OpenAIAPIKey))...)
	case "grok":
		return openai.NewGrokClient(append(opts, llm.WithAPIKey(a.creds.XAIAPIKey))...)
	case "claude":
		return anthropic.NewClient(append(opts, llm.WithAPIKey(a.creds.AnthropicAPIKey))...)
	}
	return nil, fmt.Errorf("unknown backend %q", id)
}

// Panel returns the consensus aggregator. A backend whose client cannot be
// built stays in the panel and reports itself as not configured.
func (a *app) Panel(ctx context.Context) *consensus.Aggregator {
	if a.panel != nil {
		return a.panel
	}
	callTimeout := a.settings.Consensus.CallTimeout

	backends := make([]consensus.Backend, 0, len(backendSpecs))
	for _, spec := range backendSpecs {
		bs := a.settings.Backend(spec.id)
		b := consensus.Backend{
			ID:           spec.id,
			Label:        spec.label,
			Model:        bs.Model,
			MaxTokens:    bs.MaxTokens,
			SystemPrompt: prompts.Full(spec.kind, a.custom),
		}
		client, err := a.newBackendClient(ctx, spec.id, []llm.ClientOption{
			llm.WithModel(bs.Model),
			llm.WithTimeout(callTimeout),
		})
		if err != nil {
			a.logger.Warn().Err(err).Str("backend", spec.id).Msg("backend unavailable")
		} else {
			b.Client = client
			a.closers = append(a.closers, client)
		}
		backends = append(backends, b)
	}

	a.panel = consensus.NewAggregator(backends,
		consensus.WithCallTimeout(callTimeout),
		consensus.WithScratchDir(a.settings.Consensus.ScratchDir),
		consensus.WithLogger(a.logger.With().Str("component", "consensus").Logger()),
	)
	return a.panel
}

// summarize defers building the primary client until a summary is needed
func (a *app) summarize(ctx context.Context, transcript string) (string, error) {
	client, err := a.Primary()
	if err != nil {
		return "", err
	}
	s := &history.LLMSummarizer{Client: client, Model: a.settings.Ollama.Model}
	return s.Summarize(ctx, transcript)
}

// Store returns the configured conversation store
func (a *app) Store(ctx context.Context) (history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	summarizer := history.SummarizerFunc(a.summarize)
	log := a.logger.With().Str("component", "history").Logger()

	switch a.settings.Storage.Backend {
	case "redis":
		rdb, err := a.creds.Redis.New(ctx)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		a.store = history.NewRedisStore(rdb, a.settings.Storage.RedisPrefix, summarizer, history.WithRedisLogger(log))
	default:
		m, err := history.NewManager(a.settings.DataDir, summarizer, history.WithLogger(log))
		if err != nil {
			return nil, err
		}
		a.store = m
	}
	return a.store, nil
}

// Registry returns a registry with every tool whose dependencies resolve
func (a *app) Registry(ctx context.Context) (*registry.Registry, error) {
	if a.registry != nil {
		return a.registry, nil
	}
	store, err := a.Store(ctx)
	if err != nil {
		return nil, err
	}
	panel := a.Panel(ctx)

	reg := registry.New(registry.WithLogger(a.logger.With().Str("component", "registry").Logger()))
	err = toolinit.RegisterAll(reg, toolinit.Deps{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		WebSearch: tools.WebSearchConfig{
			APIKey:         a.creds.GoogleAPIKey,
			SearchEngineID: a.creds.GoogleCSEID,
		},
		Panel:       panel,
		Backends:    panel.Backends(),
		Store:       store,
		AllowedDirs: a.settings.Files.AllowedDirs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	a.registry = reg
	return reg, nil
}

// Orchestrator wires the turn loop
func (a *app) Orchestrator(ctx context.Context) (*agent.Orchestrator, error) {
	client, err := a.Primary()
	if err != nil {
		return nil, err
	}
	reg, err := a.Registry(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := agent.ParseTimeoutPolicy(a.settings.Turn.TimeoutPolicy)
	if err != nil {
		return nil, err
	}
	return agent.New(client, reg, a.store,
		agent.WithModel(a.settings.Ollama.Model),
		agent.WithSystemPrompt(prompts.Full(prompts.Primary, a.custom)),
		agent.WithTemperature(a.settings.Turn.Temperature),
		agent.WithMaxTokens(a.settings.Turn.MaxTokens),
		agent.WithTimeoutPolicy(policy),
		agent.WithLogger(a.logger.With().Str("component", "agent").Logger()),
	), nil
}
