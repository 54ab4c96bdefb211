package main

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"zone_controller/internal/audit"
	"zone_controller/internal/button"
	"zone_controller/internal/clock"
	"zone_controller/internal/config"
	"zone_controller/internal/handlers"
	"zone_controller/internal/logger"
	"zone_controller/internal/metrics"
	"zone_controller/internal/mqtt"
	"zone_controller/internal/override"
	"zone_controller/internal/repository"
	"zone_controller/internal/repository/db"
	"zone_controller/internal/sensor"
	"zone_controller/internal/server"
	"zone_controller/internal/service"

	_ "zone_controller/docs"
)

// Starting point of the simulated zone.
const (
	simStartTempC    = 19.0
	simStartHumidity = 45.0
)

// @title        Zone Controller API
// @version      1.0
// @description  Single-zone HVAC decision and safety-interlock controller.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfgPath := pflag.StringP("config", "c", "", "config file (default configs/config.yml)")
	pflag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.New("info").Fatalw("error reading config", "err", err)
	}
	log := logger.New(cfg.LogLevel).With("zone", cfg.ZoneID)

	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(sqlDB)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	clk := clock.NewSystem()

	journal, pub, err := openJournal(cfg, log)
	if err != nil {
		log.Fatalw("failed to open audit journal", "err", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalw("invalid timezone", "timezone", cfg.Override.Timezone, "err", err)
	}
	resolver, err := newResolver(cfg, loc, repos.OverrideRepo, service.NewMeteredJournal(journal, m), clk, log)
	if err != nil {
		log.Fatalw("invalid override settings", "err", err)
	}
	intake := override.NewIntake(resolver, newLimiter(cfg), log.With("component", "intake"))

	classifier := sensor.NewClassifier(cfg.Sensor.FrozenWindow, cfg.Sensor.FrozenTolerance)

	var (
		src     service.SensorSource
		act     service.Actuator
		presses <-chan time.Time
	)
	switch cfg.Sensor.Backend {
	case config.BackendMQTT:
		bus, err := mqtt.Dial(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			StatusTopic: mqtt.Topic(cfg.MQTT.TopicPrefix, mqtt.TopicStatus),
		})
		if err != nil {
			log.Fatalw("failed to connect to mqtt broker", "broker", cfg.MQTT.Broker, "err", err)
		}
		defer bus.Close()
		zone, err := mqtt.NewZone(bus, mqtt.ZoneOptions{
			Prefix:     cfg.MQTT.TopicPrefix,
			QoS:        byte(cfg.MQTT.QoS),
			StaleAfter: cfg.Sensor.StaleAfter,
			Classifier: classifier,
			Log:        log.With("component", "mqtt"),
		})
		if err != nil {
			log.Fatalw("failed to subscribe zone topics", "err", err)
		}
		src, act, presses = zone, zone, zone.Presses()
	default:
		zone := service.NewSimulatedZone(simStartTempC, simStartHumidity, classifier, loc)
		src, act = zone, zone
		log.Infow("using simulated zone")
	}

	services := service.NewService(repos, service.Deps{
		Resolver:         resolver,
		Intake:           intake,
		Sensor:           src,
		Actuator:         act,
		Clock:            clk,
		Metrics:          m,
		Log:              log.With("component", "controller"),
		Comfort:          cfg.Comfort,
		MinIdle:          cfg.Interlock.MinIdle,
		PersistInterlock: cfg.Interlock.Persist,
		AuditPath:        cfg.Audit.Path,
		AuditPublicKey:   pub,
		Auth: service.AuthConfig{
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
	})
	apiHandler := handlers.NewHandler(services, log.With("component", "http"), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		intake.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		services.Controller.Run(ctx, cfg.Control.Tick)
	}()
	if presses != nil {
		l := button.NewListener(presses, intake.Requests(), cfg.Override.ButtonDebounce,
			cfg.Override.ButtonDurationMinutes, log.With("component", "button"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Run(ctx)
		}()
	}

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(cancel, srv, log)
	wg.Wait()
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg config.Config, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		path = "app.db"
	}
	return db.InitDB(path)
}

// openJournal opens the override journal, signing it when configured.
func openJournal(cfg config.Config, log *logger.Logger) (*audit.Journal, ed25519.PublicKey, error) {
	var (
		opts []audit.Option
		pub  ed25519.PublicKey
	)
	if cfg.Audit.Sign {
		kp, err := audit.LoadOrCreateKey(cfg.Audit.KeyPath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, audit.WithSigner(kp))
		pub = kp.PublicKey()
	}
	j, err := audit.Open(cfg.Audit.Path, opts...)
	if err != nil {
		return nil, nil, err
	}
	log.Infow("audit journal ready", "path", cfg.Audit.Path, "signed", pub != nil, "head", j.LastHash())
	return j, pub, nil
}

func newResolver(cfg config.Config, loc *time.Location, store override.Store, journal override.AuditLog, clk clock.Clock, log *logger.Logger) (*override.Resolver, error) {
	mode, err := cfg.DefaultMode()
	if err != nil {
		return nil, err
	}
	var sched override.ScheduleSource
	if cfg.Override.ScheduleFile != "" {
		sched = override.NewFileSchedule(cfg.Override.ScheduleFile)
	}
	return override.NewResolver(store, sched, journal, override.Options{
		DefaultMode: mode,
		Location:    loc,
		Now:         clk.NowUTC,
		Log:         log.With("component", "override"),
	}), nil
}

// newLimiter throttles override requests; a zero interval disables it.
func newLimiter(cfg config.Config) *rate.Limiter {
	if cfg.Override.RateLimit.Every <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(cfg.Override.RateLimit.Every), cfg.Override.RateLimit.Burst)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
