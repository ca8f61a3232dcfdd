// Command hamilton runs the robot's motion controller: it localises from the
// IR tracker, listens for remote input, guards moves with the lidar and drives
// the wheels at a fixed tick rate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/hamilton/internal/config"
	"github.com/banshee-data/hamilton/internal/driver"
	"github.com/banshee-data/hamilton/internal/lidar"
	"github.com/banshee-data/hamilton/internal/localisation"
	"github.com/banshee-data/hamilton/internal/messaging"
	"github.com/banshee-data/hamilton/internal/monitoring"
	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/navigation"
	"github.com/banshee-data/hamilton/internal/remote"
	"github.com/banshee-data/hamilton/internal/serialport"
	"github.com/banshee-data/hamilton/internal/telemetry"
	"github.com/banshee-data/hamilton/internal/timeutil"
	"github.com/banshee-data/hamilton/internal/version"
)

var (
	configPath  = flag.String("config", "hamilton.yaml", "Path to a .json or .yaml config file (defaults if absent)")
	listen      = flag.String("listen", "", "Debug HTTP listen address (overrides config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// brokerClient is the part of mqtt.Client the process uses.
type brokerClient interface {
	messaging.Publisher
	messaging.Subscriber
	Disconnect(quiesce uint)
}

// deps are the seams to hardware and the network.
type deps struct {
	openSerial  serialport.Opener
	listenUDP   localisation.SocketFactory
	connectMQTT func(messaging.Config) (brokerClient, error)
	clock       timeutil.Clock
	// ready, if set, receives the debug mux once routes are attached.
	ready func(*http.ServeMux)
}

func defaultDeps() deps {
	return deps{
		openSerial: serialport.Open,
		listenUDP:  localisation.ListenMulticast,
		connectMQTT: func(cfg messaging.Config) (brokerClient, error) {
			return messaging.Connect(cfg)
		},
		clock: timeutil.RealClock{},
	}
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Debug.Listen = *listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, defaultDeps()); err != nil {
		log.Fatalf("hamilton: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, d deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	drv, err := driver.Open(ctx, cfg.Body, d.openSerial)
	if err != nil {
		return err
	}
	defer func() {
		// Leave the wheels stopped whatever happened above.
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := drv.Send(stopCtx, motion.Stopped()); err != nil {
			monitoring.Logf("failed to stop wheels: %v", err)
		}
		if c, ok := drv.(io.Closer); ok {
			c.Close()
		}
	}()
	// Background workers use the driver, so they finish before it closes.
	defer func() {
		cancel()
		wg.Wait()
	}()

	listener := localisation.NewMarkerListener(localisation.MarkerListenerConfig{
		Address: cfg.Localisation.Address,
		RcvBuf:  cfg.Localisation.RcvBuf,
		Listen:  d.listenUDP,
	})
	tracker, err := localisation.NewTracker(cfg.GetBackend(), listener.Observations(), localisation.TrackerOptions{
		Freshness: cfg.GetPoseFreshness(),
		Clock:     d.clock,
	})
	if err != nil {
		return err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("marker listener stopped: %v", err)
		}
	}()

	var (
		guard   navigation.Guard
		scanner *lidar.RangeScanner
	)
	if cfg.Lidar.Enabled {
		scanner = lidar.Open(lidar.ScannerOptions{
			Port:      cfg.Lidar.Port,
			Freshness: cfg.GetScanFreshness(),
			Clock:     d.clock,
			Open:      lidar.RPLidarOpener(d.openSerial),
			ReopenMax: cfg.GetReopenMax(),
		})
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := scanner.Stop(stopCtx); err != nil {
				monitoring.Logf("lidar shutdown: %v", err)
			}
		}()
		guard = lidar.NewCollisionGuard(scanner).WithLimits(cfg.GetSafeDistance(), cfg.GetScanCone())
	}

	var sinks telemetry.Fanout
	var store *telemetry.Store
	if cfg.Telemetry.DBPath != "" {
		store, err = telemetry.OpenStore(cfg.Telemetry.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	inbox := remote.NewInbox(cfg.MQTT.Config, cfg.Navigation.Map, d.clock)
	if cfg.MQTT.Enabled {
		client, err := d.connectMQTT(cfg.MQTT.Config)
		if err != nil {
			return err
		}
		defer client.Disconnect(1000)
		if cfg.Telemetry.Topic != "" {
			sinks = append(sinks, telemetry.NewMQTTPublisher(client, cfg.MQTT.Topic(cfg.Telemetry.Topic)))
		}
		if err := inbox.Subscribe(client); err != nil {
			return err
		}
	}

	ctrl := navigation.NewController(drv, tracker, guard, sinks, navigation.Options{
		ManualTimeout: cfg.GetManualTimeout(),
		Gains:         cfg.Navigation.Gains,
		Clock:         d.clock,
	})

	battery := navigation.NewBatteryMonitor(drv, d.clock, cfg.GetBatteryInterval(), cfg.Navigation.LowVoltage)
	wg.Add(1)
	go func() {
		defer wg.Done()
		battery.Run(ctx)
	}()

	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Version", func() any { return version.String() })
	debug.KVFunc("Marker listener", func() any { return listener.Stats() })
	debug.KVFunc("Remote inbox", func() any { return inbox.Stats() })
	ctrl.AttachAdminRoutes(mux)
	if scanner != nil {
		scanner.AttachAdminRoutes(mux)
	}
	if store != nil {
		if err := store.AttachAdminRoutes(mux); err != nil {
			return fmt.Errorf("failed to create tailsql server: %w", err)
		}
	}
	if d.ready != nil {
		d.ready(mux)
	}

	if cfg.Debug.Listen != "" {
		server := &http.Server{Addr: cfg.Debug.Listen, Handler: mux}
		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					monitoring.Logf("debug server: %v", err)
				}
			}()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				monitoring.Logf("HTTP server shutdown error: %v", err)
			}
		}()
	}

	return loop(ctx, d.clock, cfg.GetTickInterval(), inbox, ctrl)
}

// loop ticks the controller until ctx ends or localisation is lost for good.
func loop(ctx context.Context, clock timeutil.Clock, interval time.Duration, inbox *remote.Inbox, ctrl *navigation.Controller) error {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}

		inbox.Apply(ctrl)
		err := ctrl.Tick(ctx)
		switch {
		case err == nil:
		case errors.Is(err, localisation.ErrDisconnected):
			if ctx.Err() != nil {
				return nil
			}
			return err
		case ctx.Err() != nil:
			return nil
		default:
			monitoring.Logf("tick failed: %v", err)
		}
	}
}
