package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/sites"
)

func newSitesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage the organization's work sites",
		Long: `Site changes are written to the local cache first. When a site service is
configured (remote.base_url and remote.org_id) they are also sent to it; changes
the service does not accept stay local-only until "ubigeo sites push" or
"ubigeo sites sync" delivers them.`,
	}
	cmd.AddCommand(
		newSitesListCmd(a),
		newSitesAddCmd(a),
		newSitesUpdateCmd(a),
		newSitesRemoveCmd(a),
		newSitesPrimaryCmd(a),
		newSitesPullCmd(a),
		newSitesPushCmd(a),
		newSitesSyncCmd(a),
		newSitesNearbyCmd(a),
	)
	return cmd
}

func newSitesListCmd(a *app) *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.siteCache(cmd.Context())
			if err != nil {
				return err
			}
			list := c.GetSites()
			if pending {
				list = c.PendingSites()
			}
			return a.render(cmd, list, func(w io.Writer) { writeSites(w, list) })
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only sites with changes the service has not seen")
	return cmd
}

// siteFields are the editable site fields shared by add and update.
type siteFields struct {
	name     string
	address  string
	lat, lng float64
	primary  bool
	inactive bool
}

func (f *siteFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "site name")
	cmd.Flags().StringVar(&f.address, "address", "", "street address")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "longitude in degrees")
	cmd.Flags().BoolVar(&f.primary, "primary", false, "make this the primary site")
	cmd.Flags().BoolVar(&f.inactive, "inactive", false, "mark the site inactive")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
}

// apply copies the flags the user set onto s; location arguments, if any,
// replace the location.
func (f *siteFields) apply(a *app, cmd *cobra.Command, args []string, s *sites.Site) error {
	flags := cmd.Flags()
	if len(args) > 0 {
		loc, err := a.resolveLocation(args)
		if err != nil {
			return err
		}
		loc.Address, loc.Latitude, loc.Longitude = s.Location.Address, s.Location.Latitude, s.Location.Longitude
		s.Location = loc
	}
	if flags.Changed("name") {
		s.Name = f.name
	}
	if flags.Changed("address") {
		s.Location.Address = f.address
	}
	if flags.Changed("lat") {
		s.Location = s.Location.WithCoordinates(f.lat, f.lng)
		if _, ok := s.Location.Coordinates(); !ok {
			return fmt.Errorf("invalid coordinates %g, %g", f.lat, f.lng)
		}
	}
	if flags.Changed("primary") {
		s.IsPrimary = f.primary
	}
	if flags.Changed("inactive") {
		s.IsActive = !f.inactive
	}
	return nil
}

func newSitesAddCmd(a *app) *cobra.Command {
	var f siteFields
	cmd := &cobra.Command{
		Use:   "add --name NAME " + locationArgs,
		Short: "Register a new site",
		Long: `Examples:
  ubigeo sites add --name "Sede central" --primary Lima Lima Miraflores
  ubigeo sites add --name Obra --address "Av. Sol 120" --lat=-13.5319 --lng=-71.9675 Cusco`,
		Args: locationArgsValid,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if f.name == "" {
				return errors.New("--name is required")
			}
			site := sites.Site{IsActive: true}
			if err := f.apply(a, cmd, args, &site); err != nil {
				return err
			}

			c, err := a.siteCache(ctx)
			if err != nil {
				return err
			}
			coord, err := a.coordinator(ctx)
			if err != nil {
				return err
			}
			if coord != nil {
				site, err = coord.Create(ctx, a.cfg.Remote.OrgID, site)
			} else {
				site.SyncState = sites.SyncStateLocalOnly
				site, err = c.AddSite(ctx, site)
			}
			if err != nil {
				return err
			}
			return a.render(cmd, site, func(w io.Writer) {
				fmt.Fprintf(w, "added %s (%s)%s\n", site.Name, site.ID, siteFlags(site))
			})
		},
	}
	f.register(cmd)
	return cmd
}

// saveSite sends an edited site through the coordinator when one is
// configured, otherwise stores it locally as local-only.
func (a *app) saveSite(ctx context.Context, site sites.Site) (bool, error) {
	c, err := a.siteCache(ctx)
	if err != nil {
		return false, err
	}
	coord, err := a.coordinator(ctx)
	if err != nil {
		return false, err
	}
	if coord != nil {
		return coord.Update(ctx, a.cfg.Remote.OrgID, site)
	}
	site.SyncState = sites.SyncStateLocalOnly
	site.UpdatedAt = time.Now()
	return false, c.UpdateSite(ctx, site)
}

func (a *app) lookupSite(ctx context.Context, id string) (sites.Site, error) {
	c, err := a.siteCache(ctx)
	if err != nil {
		return sites.Site{}, err
	}
	s, ok := c.GetSite(id)
	if !ok {
		return sites.Site{}, fmt.Errorf("%w: %s", sites.ErrSiteNotFound, id)
	}
	return s, nil
}

func reportSaved(w io.Writer, s sites.Site, synced bool) {
	state := "saved locally, pending sync"
	if synced {
		state = "synced"
	}
	fmt.Fprintf(w, "updated %s (%s): %s\n", s.Name, s.ID, state)
}

func newSitesUpdateCmd(a *app) *cobra.Command {
	var f siteFields
	cmd := &cobra.Command{
		Use:   "update ID [" + locationArgs + "]",
		Short: "Change a site's fields or location",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 2 && len(args) != 4 {
				return fmt.Errorf("accepts ID [%s], received %d arguments", locationArgs, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			site, err := a.lookupSite(ctx, args[0])
			if err != nil {
				return err
			}
			if err := f.apply(a, cmd, args[1:], &site); err != nil {
				return err
			}
			synced, err := a.saveSite(ctx, site)
			if err != nil {
				return err
			}
			return a.render(cmd, site, func(w io.Writer) { reportSaved(w, site, synced) })
		},
	}
	f.register(cmd)
	return cmd
}

func newSitesPrimaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "primary ID",
		Short: "Make a site the primary one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			site, err := a.lookupSite(ctx, args[0])
			if err != nil {
				return err
			}
			site.IsPrimary = true
			synced, err := a.saveSite(ctx, site)
			if err != nil {
				return err
			}
			return a.render(cmd, site, func(w io.Writer) { reportSaved(w, site, synced) })
		},
	}
}

func newSitesRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Delete a site",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			site, err := a.lookupSite(ctx, args[0])
			if err != nil {
				return err
			}
			coord, err := a.coordinator(ctx)
			if err != nil {
				return err
			}
			remoteOK := false
			if coord != nil {
				remoteOK, err = coord.Delete(ctx, a.cfg.Remote.OrgID, site.ID)
			} else {
				err = a.cache.RemoveSite(ctx, site.ID)
			}
			if err != nil {
				return err
			}
			result := map[string]any{"id": site.ID, "removed": true, "remote_deleted": remoteOK}
			return a.render(cmd, result, func(w io.Writer) {
				fmt.Fprintf(w, "removed %s (%s)\n", site.Name, site.ID)
				if coord != nil && !remoteOK {
					fmt.Fprintln(w, "warning: the site service did not confirm the deletion")
				}
			})
		},
	}
}

func newSitesPullCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the cached sites with the service's collection",
		Long: `Pull overwrites local-only changes. Use "ubigeo sites sync" to push them first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := a.requireCoordinator(ctx)
			if err != nil {
				return err
			}
			if err := coord.Pull(ctx, a.cfg.Remote.OrgID); err != nil {
				return err
			}
			list := a.cache.GetSites()
			return a.render(cmd, list, func(w io.Writer) { writeSites(w, list) })
		},
	}
}

func writeReport(w io.Writer, r sites.PushReport) {
	fmt.Fprintf(w, "created %d, updated %d, failed %d\n", r.Created, r.Updated, r.Failed)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %v\n", e)
	}
}

func newSitesPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Send local-only site changes to the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := a.requireCoordinator(ctx)
			if err != nil {
				return err
			}
			report, err := coord.PushPending(ctx, a.cfg.Remote.OrgID)
			if err != nil {
				return err
			}
			if err := a.render(cmd, report, func(w io.Writer) { writeReport(w, report) }); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d sites could not be pushed", report.Failed)
			}
			return nil
		},
	}
}

func newSitesSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local-only changes, then pull the service's collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, err := a.requireCoordinator(ctx)
			if err != nil {
				return err
			}
			report, syncErr := coord.Sync(ctx, a.cfg.Remote.OrgID)
			if err := a.render(cmd, report, func(w io.Writer) { writeReport(w, report) }); err != nil {
				return err
			}
			return syncErr
		},
	}
}

func newSitesNearbyCmd(a *app) *cobra.Command {
	var lat, lng, maxKm float64
	cmd := &cobra.Command{
		Use:   "nearby --lat LAT --lng LNG",
		Short: "Rank sites with coordinates by distance from a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.siteCache(cmd.Context())
			if err != nil {
				return err
			}
			if _, ok := (ubigeo.Location{}).WithCoordinates(lat, lng).Coordinates(); !ok {
				return fmt.Errorf("invalid coordinates %g, %g", lat, lng)
			}
			ranked := c.NearbySites(lat, lng, maxKm)
			if ranked == nil {
				ranked = []sites.SiteDistance{}
			}
			return a.render(cmd, ranked, func(w io.Writer) {
				if len(ranked) == 0 {
					fmt.Fprintln(w, "(no sites with coordinates in range)")
					return
				}
				for _, d := range ranked {
					fmt.Fprintf(w, "%8.1f km  %s  %s\n", d.DistanceKm, d.Site.Name, d.Site.Location)
				}
			})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude in degrees")
	cmd.Flags().Float64Var(&maxKm, "max-km", 0, "radius in kilometres (0 = unlimited)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}
