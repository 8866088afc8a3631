package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ubigeo",
		Short: "Search Peruvian locations and manage organization sites",
		Long: `ubigeo searches and validates locations in the departamento > provincia >
distrito hierarchy, keeps recent and favorite locations, and manages an
organization's work sites offline-first, synchronizing them with the site
service when one is configured.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ubigeo.yaml in $HOME/.ubigeo or .)")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputText, "output format: text or json")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newSearchCmd(a),
		newResolveCmd(a),
		newValidateCmd(a),
		newDataCmd(a),
		newRecentCmd(a),
		newFavoritesCmd(a),
		newSitesCmd(a),
		newSuggestCmd(a),
		newPrefsCmd(a),
	)
	return root
}
