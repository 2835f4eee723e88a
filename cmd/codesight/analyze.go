package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"codesight/internal/analysis"
	"codesight/internal/config"
	"codesight/internal/llm"
	"codesight/internal/session"
	"codesight/internal/workerruntime"
)

func newAnalyzeCmd(opts *cliOptions) *cobra.Command {
	var (
		raw       bool
		questions []string
	)
	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Analyze a source tree and print the report",
		Long: `Walks the directory, analyzes every recognized source file and prints the
report as markdown. Repeat --ask to answer questions against the same run.

Example:
  codesight analyze ./service --ask "Where is the retry logic?"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			ctx = opts.withTrace(ctx, cmd.ErrOrStderr())

			rt, err := opts.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			s, err := rt.Sessions.Start(ctx, session.StartRequest{Root: args[0]}, progressPrinter(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			if level, ok := analysis.RiskLevel(s.Report.Summary.Text); ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "risk level: %s\n", level)
			}
			if err := printMarkdown(cmd.OutOrStdout(), s.Report.Markdown(), raw); err != nil {
				return err
			}

			for _, q := range questions {
				ans, err := rt.Sessions.Ask(ctx, s.ID, q)
				if err != nil {
					return err
				}
				md := fmt.Sprintf("## Q: %s\n\n%s\n", q, ans.Display())
				if err := printMarkdown(cmd.OutOrStdout(), md, raw); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print plain markdown without terminal styling")
	cmd.Flags().StringArrayVar(&questions, "ask", nil, "Question to answer after the analysis (repeatable)")
	return cmd
}

func newAskCmd(opts *cliOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "ask [dir] [question]",
		Short: "Analyze a source tree and answer one question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			ctx = opts.withTrace(ctx, cmd.ErrOrStderr())

			rt, err := opts.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			s, err := rt.Sessions.Start(ctx, session.StartRequest{Root: args[0]}, progressPrinter(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}
			ans, err := rt.Sessions.Ask(ctx, s.ID, args[1])
			if err != nil {
				return err
			}
			return printMarkdown(cmd.OutOrStdout(), ans.Display()+"\n", raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print plain markdown without terminal styling")
	return cmd
}

func (o *cliOptions) runtime(ctx context.Context) (*workerruntime.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.offline {
		cfg.LLM.Provider = "fake"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o.logger.Debug("starting runtime", zap.String("provider", cfg.LLM.Provider), zap.String("store", cfg.Store.Kind))
	return workerruntime.New(ctx, cfg, o.logger)
}

func (o *cliOptions) withTrace(ctx context.Context, w io.Writer) context.Context {
	if !o.trace {
		return ctx
	}
	return llm.ContextWithHook(ctx, traceHook{w: w})
}

func progressPrinter(w io.Writer) analysis.Observer {
	return func(ev analysis.Event) {
		status := "ok"
		if ev.Failed {
			status = "degraded"
		}
		fmt.Fprintf(w, "[%s] %s (%s)\n", ev.Stage, strings.TrimSpace(ev.Message), status)
	}
}

// traceHook prints one line per model call.
type traceHook struct{ w io.Writer }

func (h traceHook) Before(_ context.Context, phase, prompt string) {
	fmt.Fprintf(h.w, "-> %s (%d bytes)\n", phase, len(prompt))
}

func (h traceHook) After(_ context.Context, phase, output string, err error) {
	if err != nil {
		fmt.Fprintf(h.w, "<- %s failed: %v\n", phase, err)
		return
	}
	fmt.Fprintf(h.w, "<- %s (%d bytes)\n", phase, len(output))
}
