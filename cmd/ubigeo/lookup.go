package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreiashu/ubigeo"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		limit      int
		region     string
		nationwide bool
	)
	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Rank regions, subregions and localities matching a query",
		Long: `Search scores every region, subregion and locality name against the query.
Without --region the search follows the saved preferences: when nationwide
search is off it is limited to the preferred location's region.

Examples:
  ubigeo search miraflores
  ubigeo search san --limit 20
  ubigeo search "san juan" --region Lima`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hierarchy()
			if err != nil {
				return err
			}
			opts := ubigeo.SearchOptions{Limit: limit, Region: region}
			if region == "" && !nationwide {
				c, err := a.siteCache(cmd.Context())
				if err != nil {
					return err
				}
				opts = c.SearchOptions(limit)
			}

			results := h.Search(strings.Join(args, " "), opts)
			a.logger.Debug("search completed", "query", strings.Join(args, " "), "region", opts.Region, "results", len(results))
			return a.render(cmd, results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintln(w, "no matches")
					return
				}
				for _, r := range results {
					fmt.Fprintf(w, "%4d  %s\n", r.Score, r.DisplayLabel)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", ubigeo.DefaultSearchLimit, "maximum results")
	cmd.Flags().StringVar(&region, "region", "", "only search within this region")
	cmd.Flags().BoolVar(&nationwide, "nationwide", false, "ignore the saved region preference")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "resolve LOCALITY",
		Short: "Find the full location of a locality name",
		Long: `Resolve walks the hierarchy in dataset order. Locality names repeat across
provinces; the first match wins unless --all lists every candidate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hierarchy()
			if err != nil {
				return err
			}
			var found []ubigeo.Location
			if all {
				found = h.ResolveAllFromLocality(args[0])
			} else if loc, ok := h.ResolveFromLocality(args[0]); ok {
				found = []ubigeo.Location{loc}
			}
			if len(found) == 0 {
				return fmt.Errorf("unknown locality %q", args[0])
			}
			return a.render(cmd, found, func(w io.Writer) { writeLocations(w, found) })
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every locality with this name")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate REGION SUBREGION LOCALITY",
		Short: "Check a location against the hierarchy and print its canonical spelling",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hierarchy()
			if err != nil {
				return err
			}
			loc, ok := h.Canonicalize(ubigeo.Location{Region: args[0], SubRegion: args[1], Locality: args[2]})
			if !ok {
				return fmt.Errorf("not a valid location: %s", strings.Join(args, " / "))
			}
			return a.render(cmd, loc, func(w io.Writer) { fmt.Fprintln(w, loc) })
		},
	}
}

func newDataCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect the hierarchy dataset",
	}

	check := &cobra.Command{
		Use:   "check [FILE]",
		Short: "Report structural problems in a dataset (default: the loaded one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "embedded dataset"
			var r io.Reader = ubigeo.EmbeddedDataset()
			path := a.cfg.DataFile
			if len(args) == 1 {
				path = args[0]
			}
			if path != "" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				name, r = path, f
			}

			issues, err := ubigeo.CheckDataset(r)
			if err != nil {
				return err
			}
			if err := a.render(cmd, issues, func(w io.Writer) {
				for _, is := range issues {
					fmt.Fprintln(w, is)
				}
				if len(issues) == 0 {
					fmt.Fprintf(w, "%s: ok\n", name)
				}
			}); err != nil {
				return err
			}
			if len(issues) > 0 {
				return fmt.Errorf("%s: %d problems", name, len(issues))
			}
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count regions, subregions and localities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hierarchy()
			if err != nil {
				return err
			}
			st := h.Stats()
			return a.render(cmd, st, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %d %s, %d %s, %d %s\n", h.Country(),
					st.Regions, h.LevelName(ubigeo.LevelRegion),
					st.SubRegions, h.LevelName(ubigeo.LevelSubRegion),
					st.Localities, h.LevelName(ubigeo.LevelLocality))
			})
		},
	}

	list := &cobra.Command{
		Use:   "list [REGION [SUBREGION]]",
		Short: "List regions, the subregions of a region, or the localities of a subregion",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hierarchy()
			if err != nil {
				return err
			}
			var names []string
			switch len(args) {
			case 0:
				names = h.Regions()
			case 1:
				names = h.SubRegions(args[0])
			case 2:
				names = h.Localities(args[0], args[1])
			}
			if names == nil {
				return errors.New("unknown " + strings.Join(args, " / "))
			}
			return a.render(cmd, names, func(w io.Writer) {
				for _, n := range names {
					fmt.Fprintln(w, n)
				}
			})
		},
	}

	cmd.AddCommand(check, stats, list)
	return cmd
}
