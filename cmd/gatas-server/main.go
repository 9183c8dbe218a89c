// GATAS ground server: answers device traffic requests over UDP,
// aggregates live ADS-B data into the geospatial datastore and serves
// the fleet admin API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gatasproject/gatas-server/internal/altitude"
	"github.com/gatasproject/gatas-server/internal/auth"
	"github.com/gatasproject/gatas-server/internal/dispatch"
	"github.com/gatasproject/gatas-server/internal/metar"
	"github.com/gatasproject/gatas-server/internal/store"
	"github.com/gatasproject/gatas-server/internal/udpserver"
	"github.com/gatasproject/gatas-server/internal/web"
	"github.com/gatasproject/gatas-server/pkg/adsb"
	"github.com/gatasproject/gatas-server/pkg/config"
	"github.com/gatasproject/gatas-server/pkg/model"
)

var configPath = flag.String("config", "configs/config.json", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		})
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("Starting GATAS server...")

	st, err := store.Connect(store.Options{
		Addr:        cfg.Tile38.Addr(),
		MaxIdle:     cfg.Tile38.MaxIdle,
		MaxActive:   cfg.Tile38.MaxActive,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to connect to datastore at %s: %v", cfg.Tile38.Addr(), err)
	}
	defer st.Close()

	var geoid altitude.GeoidModel
	if g, err := altitude.LoadEGM2008(cfg.Geoid.GridPath); err != nil {
		log.Printf("Warning: geoid grid unavailable, heights lose the geoid offset: %v", err)
		geoid = altitude.FlatGeoid{}
	} else {
		geoid = g
	}
	estimator := altitude.NewEstimator(geoid)

	providers, streams, err := buildProviders(cfg.Providers)
	if err != nil {
		log.Fatalf("Failed to build providers: %v", err)
	}

	results := make(chan model.FetchResult, cfg.Dispatch.ResultBuffer)
	dispatchOpts := dispatch.DefaultOptions()
	dispatchOpts.FleetCheckInterval = time.Duration(cfg.Dispatch.FleetCheckIntervalMs) * time.Millisecond
	dispatchOpts.ClusterInterval = time.Duration(cfg.Dispatch.ClusterIntervalMs) * time.Millisecond
	dispatchOpts.MinRequestInterval = time.Duration(cfg.Dispatch.MinRequestIntervalMs) * time.Millisecond
	dispatcher, err := dispatch.NewClusterDispatcher(dispatchOpts, providers, st, results)
	if err != nil {
		log.Fatalf("Failed to build dispatcher: %v", err)
	}
	feeder := dispatch.NewFeeder(st, results)

	qnhSvc := metar.NewQNHService(st)
	udpCfg := udpserver.DefaultConfig()
	udpCfg.Addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	udpCfg.HandlerTimeout = time.Duration(cfg.Server.HandlerTimeoutMs) * time.Millisecond
	udpCfg.MaxContacts = cfg.Server.MaxContacts
	udpSrv, err := udpserver.New(udpCfg, st, estimator, func() udpserver.QNHLookup {
		return qnhSvc.NewRequestCache()
	})
	if err != nil {
		log.Fatalf("Failed to build UDP server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return udpSrv.Run(ctx) })
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return feeder.Run(ctx) })
	for _, src := range streams {
		src := src
		g.Go(func() error { return src.Run(ctx, results) })
	}

	if cfg.Metar.Enabled {
		metarCfg := metar.DefaultUpdaterConfig()
		metarCfg.URL = cfg.Metar.URL
		updater := metar.NewUpdater(metarCfg, st)
		g.Go(func() error { return updater.Run(ctx) })
	}

	if cfg.Admin.Enabled {
		authSvc := auth.NewService(auth.Config{Secret: cfg.Admin.JWTSecret})
		if authSvc == nil {
			log.Println("Warning: no JWT secret configured, admin API runs open")
		}
		webSrv := web.New(web.Config{
			Addr:              fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port),
			RequestsPerSecond: cfg.Admin.RequestsPerSecond,
		}, st, authSvc)
		g.Go(func() error { return webSrv.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}

// buildProviders turns the configured provider list into radius-query
// clients plus any push stream sources.
func buildProviders(configs []config.ProviderConfig) ([]adsb.Provider, []*adsb.StreamSource, error) {
	var providers []adsb.Provider
	var streams []*adsb.StreamSource
	for _, pc := range configs {
		if !pc.Enabled {
			continue
		}
		timeout := time.Duration(pc.TimeoutMs) * time.Millisecond
		switch pc.Type {
		case "adsb.fi":
			providers = append(providers, adsb.NewAdsbFiClient(pc.BaseURL, timeout))
		case "airplanes.live":
			providers = append(providers, adsb.NewAirplanesLiveClient(pc.BaseURL, pc.APIKey, timeout))
		case "stream":
			var header http.Header
			if pc.APIKey != "" {
				header = http.Header{"Authorization": []string{"Bearer " + pc.APIKey}}
			}
			streams = append(streams, adsb.NewStreamSource(pc.Name, pc.BaseURL, header, 5*time.Second))
		default:
			return nil, nil, fmt.Errorf("unknown provider type %q", pc.Type)
		}
	}
	return providers, streams, nil
}
