package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/andreiashu/ubigeo"
	"github.com/andreiashu/ubigeo/internal/config"
	"github.com/andreiashu/ubigeo/internal/logging"
	"github.com/andreiashu/ubigeo/kvstore"
	"github.com/andreiashu/ubigeo/remote"
	"github.com/andreiashu/ubigeo/sites"
)

// errNoRemote is returned by commands that need the site service when none
// is configured.
var errNoRemote = errors.New("no site service configured (set remote.base_url and remote.org_id)")

// app holds what a command invocation has opened. Everything is created on
// first use so that offline commands never touch the store or the network.
type app struct {
	configFile string
	output     string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger

	hier     *ubigeo.Hierarchy
	store    kvstore.Store
	cache    *sites.Cache
	coord    *sites.Coordinator
	registry *prometheus.Registry
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFiles(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(a.configFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.output != outputText && a.output != outputJSON {
		return fmt.Errorf("unsupported output %q (want text or json)", a.output)
	}
	a.cfg = cfg
	a.logger = logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func (a *app) hierarchy() (*ubigeo.Hierarchy, error) {
	if a.hier != nil {
		return a.hier, nil
	}
	var (
		h   *ubigeo.Hierarchy
		err error
	)
	if a.cfg.DataFile != "" {
		h, err = ubigeo.New(ubigeo.WithDataFile(a.cfg.DataFile))
	} else {
		h, err = ubigeo.Default()
	}
	if err != nil {
		return nil, err
	}
	a.hier = h
	return h, nil
}

func (a *app) openStore(ctx context.Context) (kvstore.Store, error) {
	sc := a.cfg.Store
	switch sc.Backend {
	case config.BackendSQLite:
		return kvstore.OpenSQLite(ctx, sc.Path, kvstore.WithTable(sc.Table))
	case config.BackendFile:
		return kvstore.OpenFile(sc.Dir)
	case config.BackendMemory:
		return kvstore.NewMemory(), nil
	case config.BackendPostgres:
		return kvstore.OpenPostgres(ctx, sc.PostgresDSN, kvstore.WithTable(sc.Table))
	case config.BackendRedis:
		return kvstore.OpenRedis(ctx, sc.RedisURL, sc.RedisPrefix)
	case config.BackendMongo:
		return kvstore.OpenMongo(ctx, sc.MongoURI, sc.MongoDB, sc.Table)
	}
	return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
}

func (a *app) siteCache(ctx context.Context) (*sites.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Backend, err)
	}
	a.store = store
	a.logger.Debug("store opened", "backend", a.cfg.Store.Backend)

	c, err := sites.Open(ctx, store, sites.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.cache = c
	return c, nil
}

// coordinator returns nil when no site service is configured.
func (a *app) coordinator(ctx context.Context) (*sites.Coordinator, error) {
	if a.coord != nil || !a.cfg.RemoteEnabled() {
		return a.coord, nil
	}
	c, err := a.siteCache(ctx)
	if err != nil {
		return nil, err
	}
	client, err := remote.New(a.cfg.Remote.BaseURL,
		remote.WithTimeout(a.cfg.Remote.Timeout), remote.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.registry = prometheus.NewRegistry()
	a.coord = sites.NewCoordinator(c, client,
		sites.WithLogger(a.logger), sites.WithMetrics(sites.NewMetrics(a.registry)))
	return a.coord, nil
}

func (a *app) requireCoordinator(ctx context.Context) (*sites.Coordinator, error) {
	coord, err := a.coordinator(ctx)
	if err == nil && coord == nil {
		err = errNoRemote
	}
	return coord, err
}

// close writes the metrics textfile, if configured, and closes the store.
func (a *app) close() error {
	var errs []error
	if a.registry != nil && a.cfg.Metrics.Textfile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// resolveLocation turns command arguments into a canonical location: one
// argument is a locality name (first match wins), three are region,
// subregion and locality.
func (a *app) resolveLocation(args []string) (ubigeo.Location, error) {
	h, err := a.hierarchy()
	if err != nil {
		return ubigeo.Location{}, err
	}
	switch len(args) {
	case 1:
		if loc, ok := h.ResolveFromLocality(args[0]); ok {
			return loc, nil
		}
	case 3:
		if loc, ok := h.Canonicalize(ubigeo.Location{Region: args[0], SubRegion: args[1], Locality: args[2]}); ok {
			return loc, nil
		}
	default:
		return ubigeo.Location{}, fmt.Errorf("want LOCALITY or REGION SUBREGION LOCALITY, got %d arguments", len(args))
	}
	return ubigeo.Location{}, fmt.Errorf("unknown location %q", strings.Join(args, " / "))
}

// parseLocationFlag accepts "Locality" or "Region/SubRegion/Locality".
func (a *app) parseLocationFlag(value string) (ubigeo.Location, error) {
	parts := strings.Split(value, "/")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return a.resolveLocation(parts)
}
