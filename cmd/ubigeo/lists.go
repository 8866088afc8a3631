package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/sites"
)

const locationArgs = "LOCALITY | REGION SUBREGION LOCALITY"

func locationArgsValid(cmd *cobra.Command, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return fmt.Errorf("accepts %s, received %d arguments", locationArgs, len(args))
	}
	return nil
}

func newRecentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show or edit the recently used locations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recent locations, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.siteCache(cmd.Context())
				if err != nil {
					return err
				}
				recent := c.GetRecent()
				return a.render(cmd, recent, func(w io.Writer) { writeLocations(w, recent) })
			},
		},
		&cobra.Command{
			Use:   "add " + locationArgs,
			Short: "Record a location as recently used",
			Args:  locationArgsValid,
			RunE: func(cmd *cobra.Command, args []string) error {
				loc, err := a.resolveLocation(args)
				if err != nil {
					return err
				}
				c, err := a.siteCache(cmd.Context())
				if err != nil {
					return err
				}
				if err := c.AddToRecent(cmd.Context(), loc); err != nil {
					return err
				}
				return a.render(cmd, loc, func(w io.Writer) { fmt.Fprintf(w, "added %s\n", loc) })
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget every recent location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.siteCache(cmd.Context())
				if err != nil {
					return err
				}
				return c.ClearRecent(cmd.Context())
			},
		},
	)
	return cmd
}

func newFavoritesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Show or edit favorite locations",
	}

	edit := func(use, short string, apply func(*sites.Cache, *cobra.Command, ubigeo.Location) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " " + locationArgs,
			Short: short,
			Args:  locationArgsValid,
			RunE: func(cmd *cobra.Command, args []string) error {
				loc, err := a.resolveLocation(args)
				if err != nil {
					return err
				}
				c, err := a.siteCache(cmd.Context())
				if err != nil {
					return err
				}
				return apply(c, cmd, loc)
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorite locations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.siteCache(cmd.Context())
				if err != nil {
					return err
				}
				favs := c.GetFavorites()
				return a.render(cmd, favs, func(w io.Writer) { writeLocations(w, favs) })
			},
		},
		edit("add", "Mark a location as favorite", func(c *sites.Cache, cmd *cobra.Command, loc ubigeo.Location) error {
			return c.AddToFavorites(cmd.Context(), loc)
		}),
		edit("rm", "Remove a favorite", func(c *sites.Cache, cmd *cobra.Command, loc ubigeo.Location) error {
			if !c.IsFavorite(loc) {
				return fmt.Errorf("%s is not a favorite", loc)
			}
			return c.RemoveFromFavorites(cmd.Context(), loc)
		}),
	)
	return cmd
}

func newSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Quick picks from the preferred location, sites, favorites and recents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.siteCache(cmd.Context())
			if err != nil {
				return err
			}
			suggestions := c.GetQuickSuggestions()
			return a.render(cmd, suggestions, func(w io.Writer) {
				if len(suggestions) == 0 {
					fmt.Fprintln(w, "(no suggestions)")
					return
				}
				for _, s := range suggestions {
					label := s.Location.String()
					if s.SiteName != "" {
						label = s.SiteName + ": " + label
					}
					fmt.Fprintf(w, "%-9s  %s\n", s.Source, label)
				}
			})
		},
	}
}

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change search preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.siteCache(cmd.Context())
			if err != nil {
				return err
			}
			p := c.Preferences().Get()
			return a.render(cmd, p, func(w io.Writer) {
				preferred := "(none)"
				if p.PreferredLocation != nil {
					preferred = p.PreferredLocation.String()
				}
				fmt.Fprintf(w, "preferred location:   %s\n", preferred)
				fmt.Fprintf(w, "search nationwide:    %t\n", p.SearchNationwide)
				fmt.Fprintf(w, "onboarding completed: %t\n", p.OnboardingCompleted)
				if scope := c.SearchScope(); scope != "" {
					fmt.Fprintf(w, "search scope:         %s\n", scope)
				}
			})
		},
	}

	var (
		preferred      string
		clearPreferred bool
		nationwide     bool
		onboarding     bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change preferences; only the flags given are applied",
		Long: `Examples:
  ubigeo prefs set --preferred "Lima/Lima/Miraflores" --nationwide=false
  ubigeo prefs set --clear-preferred
  ubigeo prefs set --onboarding`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.siteCache(ctx)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			switch {
			case clearPreferred:
				if err := c.SetPreferredLocation(ctx, ubigeo.Location{}); err != nil {
					return err
				}
			case flags.Changed("preferred"):
				loc, err := a.parseLocationFlag(preferred)
				if err != nil {
					return err
				}
				if err := c.SetPreferredLocation(ctx, loc); err != nil {
					return err
				}
			}
			if flags.Changed("nationwide") {
				if err := c.SetSearchNationwide(ctx, nationwide); err != nil {
					return err
				}
			}
			if flags.Changed("onboarding") {
				if err := c.SetOnboardingCompleted(ctx, onboarding); err != nil {
					return err
				}
			}
			return nil
		},
	}
	set.Flags().StringVar(&preferred, "preferred", "", `preferred location, "Locality" or "Region/SubRegion/Locality"`)
	set.Flags().BoolVar(&clearPreferred, "clear-preferred", false, "remove the preferred location")
	set.Flags().BoolVar(&nationwide, "nationwide", true, "search every region instead of the preferred one")
	set.Flags().BoolVar(&onboarding, "onboarding", true, "mark onboarding as completed")
	set.MarkFlagsMutuallyExclusive("preferred", "clear-preferred")

	cmd.AddCommand(show, set)
	return cmd
}
