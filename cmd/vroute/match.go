package main

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vroute/internal/errors"
	"github.com/vango-dev/vroute/internal/manifest"
	"github.com/vango-dev/vroute/pkg/pattern"
)

func matchCmd(flags *projectFlags) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "match <path>...",
		Short: "Show which manifest route matches each path",
		Long: `Match each path against the route manifest in declaration order
and print the first matching route with its captured parameters.

Paths may carry a query string or fragment; only the path is matched.

Examples:
  vroute match /
  vroute match /user/42 /post/1/comment/9
  vroute match --strict /missing`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}
			m, err := manifest.Load(cfg.ManifestPath())
			if err != nil {
				return err
			}

			paths := make([]string, len(m.Routes))
			for i, r := range m.Routes {
				paths[i] = r.Path
			}
			table, err := pattern.NewTable(paths)
			if err != nil {
				return errors.New("R004").Wrap(err)
			}

			out := cmd.OutOrStdout()
			unmatched := 0
			for _, arg := range args {
				u, err := url.Parse(arg)
				if err != nil {
					return errors.New("R003").WithDetailf("%q", arg).Wrap(err)
				}

				i, params, ok := table.Lookup(u.EscapedPath())
				if !ok {
					unmatched++
					warn(out, "%s  no matching route", arg)
					continue
				}
				success(out, "%s  %s%s", arg, m.Routes[i].Path, formatParams(params))
			}

			if strict && unmatched > 0 {
				return fmt.Errorf("%d of %d paths matched no route", unmatched, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any path matches no route")

	return cmd
}

// formatParams renders params in name order, e.g. " {id=42 rest=a/b}".
func formatParams(params pattern.Params) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + params[name]
	}
	return "  {" + strings.Join(pairs, " ") + "}"
}
