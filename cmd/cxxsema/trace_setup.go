package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cxxsema/internal/config"
	"cxxsema/internal/trace"
)

// setupTracing initializes the tracer from the resolved [trace] settings
// and attaches it to the command context. The returned cleanup flushes and
// closes it; in ring mode the retained events are dumped to stderr.
func setupTracing(cmd *cobra.Command, settings config.TraceConfig) (func(), error) {
	cfg, err := settings.Tracer()
	if err != nil {
		return nil, fmt.Errorf("invalid trace settings: %w", err)
	}

	if cfg.Level == trace.LevelOff {
		ctx := trace.WithTracer(cmd.Context(), trace.Nop)
		cmd.SetContext(ctx)
		return func() {}, nil
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	cmd.Root().SetContext(ctx)

	cleanup := func() {
		errOut := cmd.ErrOrStderr()
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := ring.Dump(errOut, cfg.Format); err != nil {
				fmt.Fprintf(errOut, "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(errOut, "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(errOut, "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
