package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/usertbera/enveye"
	"github.com/usertbera/enveye/fs"
	"github.com/usertbera/enveye/session"
	"golang.org/x/sync/errgroup"
)

// ErrExplanationFailed is returned by ExplainApp when the request ends in
// the Failed state.
var ErrExplanationFailed = errors.New(enveye.RequestFailedReason)

// noDifferences is printed for an empty diff.
const noDifferences = "No differences found!"

// ViewApp parses a diff and shows it in the viewer.
type ViewApp struct {
	Input  io.Reader
	Parser enveye.DiffParser
	Viewer enveye.Viewer
}

// Run parses the input and displays the diff. An empty diff is shown too:
// the viewer renders it as its terminal empty state.
func (a *ViewApp) Run(ctx context.Context) error {
	diff, err := a.Parser.Parse(a.Input)
	if err != nil {
		return err
	}
	return a.Viewer.View(ctx, diff)
}

// ExplainOptions are the operator context fields of a one-shot explanation.
type ExplainOptions struct {
	ErrorMessage   string
	ScreenshotPath string
	LogPath        string
}

// ExplainApp prints the change list of a diff and its explanation.
type ExplainApp struct {
	Input   io.Reader
	Output  io.Writer
	Parser  enveye.DiffParser
	Session *session.Orchestrator
}

// Run parses the input, attaches the operator context and performs one
// explanation request.
func (a *ExplainApp) Run(ctx context.Context, opts ExplainOptions) error {
	diff, err := a.Parser.Parse(a.Input)
	if err != nil {
		return err
	}

	records := enveye.Normalize(diff)
	if len(records) == 0 {
		fmt.Fprintln(a.Output, noDifferences)
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(a.Output, "%-8s %s: %s -> %s\n", r.Kind, r.DisplayPath, r.OldValue, r.NewValue)
	}

	a.Session.SetDiff(diff)
	a.Session.SetErrorMessage(opts.ErrorMessage)
	a.Session.SetLogPath(opts.LogPath)
	if opts.ScreenshotPath != "" {
		data, mime, err := fs.ReadScreenshot(opts.ScreenshotPath)
		if err != nil {
			return fmt.Errorf("reading screenshot: %w", err)
		}
		if err := a.Session.AttachScreenshot(data, mime); err != nil {
			return err
		}
	}

	state := a.Session.Explain(ctx)
	if state.Status != session.StatusSucceeded {
		return ErrExplanationFailed
	}
	fmt.Fprintf(a.Output, "\n%s\n", state.Text)
	return nil
}

// Server is the part of http.Server that ServeApp drives.
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// ServeApp runs the explanation server until ctx is done.
type ServeApp struct {
	Server          Server
	ShutdownTimeout time.Duration
}

// Run starts the server and shuts it down gracefully when ctx is canceled.
func (a *ServeApp) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
