package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/sites"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// render writes v as indented JSON, or calls text for the human format.
func (a *app) render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func writeLocations(w io.Writer, locs []ubigeo.Location) {
	if len(locs) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	for i, l := range locs {
		fmt.Fprintf(w, "%2d. %s\n", i+1, l)
	}
}

func writeSites(w io.Writer, list []sites.Site) {
	if len(list) == 0 {
		fmt.Fprintln(w, "(no sites)")
		return
	}
	for _, s := range list {
		fmt.Fprintf(w, "%-44s  %-24s  %s%s\n", s.ID, s.Name, s.Location, siteFlags(s))
	}
}

func siteFlags(s sites.Site) string {
	var flags []string
	if s.IsPrimary {
		flags = append(flags, "primary")
	}
	if !s.IsActive {
		flags = append(flags, "inactive")
	}
	if s.Pending() {
		flags = append(flags, string(sites.SyncStateLocalOnly))
	}
	if len(flags) == 0 {
		return ""
	}
	return "  [" + strings.Join(flags, ", ") + "]"
}
