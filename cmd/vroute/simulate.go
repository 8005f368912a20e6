package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/config"
	"github.com/vango-dev/vroute/internal/manifest"
	"github.com/vango-dev/vroute/pkg/memenv"
	"github.com/vango-dev/vroute/pkg/navrouter"
)

type simulateOptions struct {
	origin      string
	start       string
	render      bool
	transitions bool
	legacy      bool
}

func simulateCmd(flags *projectFlags) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate <step>...",
		Short: "Run a navigation sequence against an in-memory browser",
		Long: `Initialize a router on the manifest in an in-memory browser and
replay a sequence of steps, printing every route change.

Steps:
  /path            click a link to /path
  submit:/path     submit a form to /path
  download:/path   follow a download link to /path
  nav:/path        navigate programmatically through the router
  back, forward    traverse history
  go:N             traverse N entries

Examples:
  vroute simulate /about /user/42 back
  vroute simulate --start=/user/1 --render nav:/post/1/comment/2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), cfg, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.origin, "origin", "https://app.local", "Origin of the simulated page")
	cmd.Flags().StringVar(&opts.start, "start", "/", "Path the browser starts at")
	cmd.Flags().BoolVar(&opts.render, "render", false, "Print the rendered view after each route change")
	cmd.Flags().BoolVar(&opts.transitions, "transitions", false, "Simulate a browser with view transitions")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "Simulate a browser without navigate events on traversal")

	return cmd
}

func runSimulate(ctx context.Context, out io.Writer, cfg *config.Config, opts simulateOptions, steps []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(io.Discard, cfg.Log)

	m, err := manifest.Load(cfg.ManifestPath())
	if err != nil {
		return err
	}
	routes, global, err := m.Build(manifest.Deps{Loader: moduleLoader(cfg), Logger: logger})
	if err != nil {
		return err
	}

	var browserOpts []memenv.Option
	if opts.transitions {
		browserOpts = append(browserOpts, memenv.WithViewTransitions())
	}
	if opts.legacy {
		browserOpts = append(browserOpts, memenv.WithLegacyTraversal())
	}
	browser, err := memenv.New(strings.TrimSuffix(opts.origin, "/")+opts.start, browserOpts...)
	if err != nil {
		return err
	}

	router := navrouter.New(browser, routes,
		navrouter.WithPlugins(global...),
		navrouter.WithLogger(logger),
	)
	defer router.Close()

	router.OnRouteChanged(func(ev navrouter.RouteChangedEvent) {
		success(out, "%-9s %s%s  %q", ev.Trigger, ev.Route.Path, formatParams(ev.Params), ev.Route.Title)
		if !opts.render {
			return
		}
		if view, ok := ev.Route.Render().(*manifest.View); ok {
			var buf bytes.Buffer
			if err := view.Execute(&buf, ev.Params); err != nil {
				warn(out, "view: %v", err)
				return
			}
			info(out, "%s", buf.String())
		}
	})
	router.OnError(func(ev navrouter.ErrorEvent) {
		warn(out, "plugin failed: %v", ev.Err)
	})

	if err := router.Init(ctx); err != nil {
		return err
	}
	if router.CurrentRoute() == nil {
		warn(out, "%-9s %s  no matching route", navrouter.TriggerInit, opts.start)
	}

	for _, step := range steps {
		info(out, "→ %s", step)
		intercepted, err := runStep(ctx, browser, router, step)
		if err != nil {
			return fmt.Errorf("step %q: %w", step, err)
		}
		if !intercepted {
			info(out, "document load %s", browser.Location())
		}
	}
	return nil
}

// runStep performs one step. It reports false when the browser loaded a
// new document instead of the router handling the navigation.
func runStep(ctx context.Context, b *memenv.Browser, r *navrouter.Router, step string) (bool, error) {
	loads := len(b.DocumentLoads())
	kind, target, _ := strings.Cut(step, ":")

	var err error
	switch {
	case step == "back":
		err = b.Back(ctx)
	case step == "forward":
		err = b.Forward(ctx)
	case kind == "go":
		delta, perr := strconv.Atoi(target)
		if perr != nil {
			return false, fmt.Errorf("bad delta: %w", perr)
		}
		err = b.Go(ctx, delta)
	case kind == "submit":
		_, err = b.Submit(ctx, target)
	case kind == "download":
		_, err = b.Download(ctx, target)
	case kind == "nav":
		err = r.Navigate(ctx, target)
	default:
		_, err = b.Click(ctx, step)
	}
	return len(b.DocumentLoads()) == loads, err
}
