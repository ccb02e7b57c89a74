// Package consensus fans a prompt out to several chat backends and, for
// superconsensus, has each backend judge another's pair of answers.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gertlabs/gert/deadline"
	"github.com/gertlabs/gert/llm"
)

// DefaultCallTimeout bounds each backend call
const DefaultCallTimeout = 10 * time.Minute

const judgePrompt = "The following are 2 responses for this prompt: <start_prompt>%s</start_prompt>\n\n" +
	"Response A: <response>%s</response>\n\n" +
	"Response B: <response>%s</response>\n\n" +
	"Choose A or B and briefly explain why. Then provide your own opinion on the topic."

var errNotConfigured = errors.New("backend not configured")

// Aggregator runs consensus queries over a fixed, ordered set of backends.
// It is safe for concurrent use.
type Aggregator struct {
	backends    []Backend
	byID        map[string]int
	callTimeout time.Duration
	scratchDir  string
	now         func() time.Time
	logger      zerolog.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithCallTimeout sets the per-call budget
func WithCallTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.callTimeout = d }
}

// WithScratchDir sets where report transcripts are written
func WithScratchDir(dir string) Option {
	return func(a *Aggregator) { a.scratchDir = dir }
}

// WithClock overrides time.Now for scratch file names
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// NewAggregator creates an aggregator. Backend order fixes report order and
// the judge rotation.
func NewAggregator(backends []Backend, opts ...Option) *Aggregator {
	a := &Aggregator{
		backends:    append([]Backend(nil), backends...),
		byID:        make(map[string]int, len(backends)),
		callTimeout: DefaultCallTimeout,
		scratchDir:  os.TempDir(),
		now:         time.Now,
		logger:      zerolog.Nop(),
	}
	for i, b := range a.backends {
		a.byID[b.ID] = i
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backends returns the configured backends in order
func (a *Aggregator) Backends() []Backend {
	return append([]Backend(nil), a.backends...)
}

// Ask sends prompt to one backend
func (a *Aggregator) Ask(ctx context.Context, backendID, prompt string) Reply {
	i, ok := a.byID[backendID]
	if !ok {
		return Reply{
			Backend: backendID,
			Label:   backendID,
			Err:     &BackendError{Backend: backendID, Label: backendID, Err: fmt.Errorf("unknown backend %q", backendID)},
		}
	}
	return a.call(ctx, a.backends[i], prompt)
}

// Consensus asks every backend in parallel. The bundle always holds one
// reply per backend; failures are recorded inline.
func (a *Aggregator) Consensus(ctx context.Context, prompt string) *Bundle {
	replies := a.fanOut(ctx, len(a.backends), func(i int) (Backend, string) {
		return a.backends[i], prompt
	})

	bundle := &Bundle{
		Prompt:  prompt,
		Order:   a.order(),
		Replies: make(map[string]Reply, len(a.backends)),
	}
	for _, r := range replies {
		bundle.Replies[r.Backend] = r
	}
	bundle.ScratchFile = a.writeScratch("call_consensus_query_response", bundle.Transcript())
	return bundle
}

// Superconsensus asks each backend twice, then has backend (i+1) mod N pick
// the better of backend i's two answers.
func (a *Aggregator) Superconsensus(ctx context.Context, prompt string) *Report {
	n := len(a.backends)
	report := &Report{
		Prompt:     prompt,
		Order:      a.order(),
		Pairs:      make(map[string][2]Reply, n),
		Selections: make(map[string]Selection, n),
	}
	if n == 0 {
		return report
	}

	started := time.Now()
	round1 := a.fanOut(ctx, 2*n, func(i int) (Backend, string) {
		return a.backends[i/2], prompt
	})
	for i, b := range a.backends {
		report.Pairs[b.ID] = [2]Reply{round1[2*i], round1[2*i+1]}
	}
	a.logger.Debug().Dur("elapsed", time.Since(started)).Msg("superconsensus round one complete")

	judged := a.fanOut(ctx, n, func(i int) (Backend, string) {
		pair := report.Pairs[a.backends[i].ID]
		return a.judgeFor(i), fmt.Sprintf(judgePrompt, prompt, pair[0].answer(), pair[1].answer())
	})
	for i, b := range a.backends {
		judge := a.judgeFor(i)
		sel := Selection{
			Backend:    b.ID,
			Label:      b.Label,
			Judge:      judge.ID,
			JudgeLabel: judge.Label,
			Text:       judged[i].Text,
		}
		if judged[i].Failed() {
			a.logger.Warn().Err(judged[i].Err).Str("backend", b.ID).Str("judge", judge.ID).Msg("selection failed")
			sel.Text = SelectionFailed
			sel.Failed = true
		}
		report.Selections[b.ID] = sel
	}

	report.ScratchFile = a.writeScratch("superconsensus_response", report.Text())
	a.logger.Info().Dur("elapsed", time.Since(started)).Msg("superconsensus complete")
	return report
}

func (a *Aggregator) judgeFor(i int) Backend {
	return a.backends[(i+1)%len(a.backends)]
}

func (a *Aggregator) order() []string {
	ids := make([]string, len(a.backends))
	for i, b := range a.backends {
		ids[i] = b.ID
	}
	return ids
}

// fanOut runs width calls on a pool of the same width. job(i) picks the
// backend and prompt for slot i; results come back by slot.
func (a *Aggregator) fanOut(ctx context.Context, width int, job func(i int) (Backend, string)) []Reply {
	replies := make([]Reply, width)
	var g errgroup.Group
	g.SetLimit(width)
	for i := 0; i < width; i++ {
		g.Go(func() error {
			b, prompt := job(i)
			replies[i] = a.call(ctx, b, prompt)
			return nil
		})
	}
	_ = g.Wait()
	return replies
}

// call makes one backend request under the call timeout
func (a *Aggregator) call(ctx context.Context, b Backend, prompt string) Reply {
	reply := Reply{Backend: b.ID, Label: b.Label}
	if b.Client == nil {
		reply.Err = &BackendError{Backend: b.ID, Label: b.Label, Err: errNotConfigured}
		return reply
	}

	started := time.Now()
	text, err := deadline.Run(ctx, a.callTimeout, func(ctx context.Context) (string, error) {
		messages := make([]llm.Message, 0, 2)
		if b.SystemPrompt != "" {
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: llm.StringPtr(b.SystemPrompt)})
		}
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: llm.StringPtr(prompt)})

		resp, err := b.Client.Chat(ctx, &llm.ChatRequest{
			Model:     b.Model,
			Messages:  messages,
			MaxTokens: b.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		msg, err := llm.FirstMessage(resp)
		if err != nil {
			return "", err
		}
		return llm.GetStringValue(msg.Content), nil
	})

	event := a.logger.Debug()
	if err != nil {
		reply.Err = &BackendError{Backend: b.ID, Label: b.Label, Err: err}
		event = a.logger.Warn().Err(err)
	}
	event.Str("backend", b.ID).Dur("elapsed", time.Since(started)).Msg("backend call finished")

	reply.Text = text
	return reply
}

// writeScratch saves a report transcript. Failures are logged only.
func (a *Aggregator) writeScratch(prefix, text string) string {
	if a.scratchDir == "" {
		return ""
	}
	path := filepath.Join(a.scratchDir, fmt.Sprintf("%s_%d.txt", prefix, a.now().Unix()))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		a.logger.Error().Err(err).Str("path", path).Msg("failed to write scratch report")
		return ""
	}
	return path
}
