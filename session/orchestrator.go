// Package session owns the explanation request lifecycle of one
// presentation session: operator context fields, the pending screenshot and
// the single RequestState slot.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/usertbera/enveye"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single explanation request.
const DefaultTimeout = 60 * time.Second

// Status is the phase of the request state machine.
type Status int

// Request states.
const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is the RequestState value. Text is set when Succeeded, Reason when
// Failed. Generation identifies the trigger that produced the state.
type State struct {
	Status     Status
	Text       string
	Reason     string
	Generation uint64
}

// Fields are the operator-entered context values used by the next trigger.
type Fields struct {
	ErrorMessage string
	LogPath      string
	Screenshot   *enveye.Screenshot
}

// Completion is the outcome of one Task.
type Completion struct {
	Generation uint64
	Text       string
	Err        error
}

// Task is one outbound explanation request. Run performs it; the result must
// be handed back to Orchestrator.Complete.
type Task struct {
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	input      enveye.ExplanationContext
	explainer  enveye.Explainer
	timeout    time.Duration
}

// Generation returns the trigger generation this task belongs to.
func (t Task) Generation() uint64 {
	return t.generation
}

// Input returns the context snapshot the task will send.
func (t Task) Input() enveye.ExplanationContext {
	return t.input
}

// Run issues exactly one request and returns its outcome. It does not touch
// orchestrator state and may run on any goroutine.
func (t Task) Run() Completion {
	defer t.cancel()

	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	text, err := t.explainer.Explain(ctx, t.input)
	return Completion{Generation: t.generation, Text: text, Err: err}
}

// Orchestrator is the explicit state holder for explanation requests. It is
// not safe for concurrent use: drive it from one goroutine (the UI update
// loop) and run Tasks elsewhere.
type Orchestrator struct {
	explainer enveye.Explainer
	logger    *zap.Logger
	timeout   time.Duration

	diff   *enveye.StructuralDiff
	fields Fields
	state  State

	generation uint64
	cancel     context.CancelFunc // cancels the in-flight task, if any
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// New creates an Orchestrator in the Idle state.
func New(explainer enveye.Explainer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		explainer: explainer,
		logger:    zap.NewNop(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current request state.
func (o *Orchestrator) State() State {
	return o.state
}

// Fields returns the current operator context fields.
func (o *Orchestrator) Fields() Fields {
	return o.fields
}

// Diff returns the diff the next trigger will send.
func (o *Orchestrator) Diff() *enveye.StructuralDiff {
	return o.diff
}

// SetDiff replaces the diff sent by the next trigger.
func (o *Orchestrator) SetDiff(d *enveye.StructuralDiff) {
	o.diff = d
}

// SetErrorMessage sets the free-text error description.
func (o *Orchestrator) SetErrorMessage(s string) {
	o.fields.ErrorMessage = s
}

// SetLogPath sets the log file path.
func (o *Orchestrator) SetLogPath(s string) {
	o.fields.LogPath = s
}

// AttachScreenshot encodes raw image bytes as the pending screenshot. On
// failure it returns an error wrapping enveye.ErrInvalidAttachment and keeps
// the previously attached screenshot.
func (o *Orchestrator) AttachScreenshot(raw []byte, declaredMIME string) error {
	shot, err := enveye.EncodeScreenshot(raw, declaredMIME)
	if err != nil {
		o.logger.Info("screenshot rejected", zap.String("mime", declaredMIME), zap.Error(err))
		return err
	}
	o.fields.Screenshot = shot
	o.logger.Debug("screenshot attached", zap.String("mime", shot.MIMEType), zap.Int("bytes", shot.Size))
	return nil
}

// ClearScreenshot removes the pending screenshot.
func (o *Orchestrator) ClearScreenshot() {
	o.fields.Screenshot = nil
}

// Trigger snapshots the current fields into an ExplanationContext, moves to
// Loading and returns the task that performs the request. Any earlier
// in-flight task is superseded: its context is canceled and its completion
// will be ignored.
func (o *Orchestrator) Trigger(ctx context.Context) Task {
	if o.cancel != nil {
		o.cancel()
	}
	o.generation++

	taskCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.state = State{Status: StatusLoading, Generation: o.generation}

	o.logger.Debug("explanation triggered",
		zap.Uint64("generation", o.generation),
		zap.Int("entries", o.diff.Len()),
		zap.Bool("screenshot", o.fields.Screenshot != nil),
	)

	return Task{
		generation: o.generation,
		ctx:        taskCtx,
		cancel:     cancel,
		input: enveye.ExplanationContext{
			Diff:            o.diff,
			ErrorMessage:    o.fields.ErrorMessage,
			ErrorScreenshot: o.fields.Screenshot,
			LogPath:         o.fields.LogPath,
		},
		explainer: o.explainer,
		timeout:   o.timeout,
	}
}

// Complete applies a task outcome. Completions from superseded triggers are
// ignored and Complete reports false. Every error collapses to
// enveye.RequestFailedReason; the cause is only logged.
func (o *Orchestrator) Complete(c Completion) bool {
	if c.Generation != o.generation || o.state.Status != StatusLoading {
		o.logger.Debug("stale explanation ignored",
			zap.Uint64("generation", c.Generation),
			zap.Uint64("current", o.generation),
		)
		return false
	}
	o.cancel = nil

	if c.Err != nil {
		o.logger.Warn("explanation request failed", zap.Uint64("generation", c.Generation), zap.Error(c.Err))
		o.state = State{Status: StatusFailed, Reason: enveye.RequestFailedReason, Generation: c.Generation}
		return true
	}

	o.state = State{Status: StatusSucceeded, Text: c.Text, Generation: c.Generation}
	return true
}

// Explain triggers and runs a request on the calling goroutine, returning the
// resulting state. It is the synchronous path used by the CLI.
func (o *Orchestrator) Explain(ctx context.Context) State {
	task := o.Trigger(ctx)
	o.Complete(task.Run())
	return o.state
}
