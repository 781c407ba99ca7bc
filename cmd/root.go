package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hospital-sim/hospital-sim/httpapi"
	"github.com/hospital-sim/hospital-sim/sim"
	"github.com/hospital-sim/hospital-sim/sim/store"
)

var (
	seed             int64   // Seed for all stochastic draws
	runtimeHours     float64 // Simulated horizon for batch runs (in hours)
	logLevel         string  // Log verbosity level
	patientTypesPath string  // Patient type table (YAML)
	resourcesPath    string  // Resource capacity table (YAML)
	databaseURL      string  // Postgres DSN; empty selects the in-memory ledger
	addr             string  // Listen address override for serve
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "hospital-sim",
	Short: "Discrete-event simulator for hospital patient flow",
}

// buildSimulator loads the configuration tables, selects a ledger backend
// and wires the engine with its built-in care pathway.
func buildSimulator(ctx context.Context, exitWhenIdle bool) (*sim.Simulator, []sim.PatientTypeConfig, func(), error) {
	types, err := sim.LoadPatientTypes(patientTypesPath)
	if err != nil {
		return nil, nil, nil, err
	}
	resources, err := sim.LoadResources(resourcesPath)
	if err != nil {
		return nil, nil, nil, err
	}

	var ledger sim.Ledger
	cleanup := func() {}
	if databaseURL != "" {
		pg, err := store.Open(ctx, databaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := pg.Init(ctx, resources); err != nil {
			pg.Close()
			return nil, nil, nil, err
		}
		ledger = pg
		cleanup = func() { pg.Close() }
	} else {
		ledger = sim.NewMemoryLedger(resources)
	}

	s := sim.New(sim.Options{
		Ledger:       ledger,
		Resources:    resources,
		PatientTypes: types,
		Seed:         seed,
		ExitWhenIdle: exitWhenIdle,
	})
	s.SetWorkflow(sim.NewPathway(s, types))
	return s, types, cleanup, nil
}

// runCmd executes a self-contained simulation: generated arrivals, built-in
// pathway, exit once the system drains.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a self-contained patient flow simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		setUpLogging()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, types, cleanup, err := buildSimulator(ctx, true)
		if err != nil {
			return err
		}
		defer cleanup()

		gen := sim.NewGenerator(types, sim.NewPartitionedRNG(seed).ForSubsystem(sim.SubsystemArrivals))
		arrivals, err := gen.Arrivals(runtimeHours)
		if err != nil {
			return err
		}
		s.SeedArrivals(arrivals)
		logrus.WithFields(logrus.Fields{
			"seed":     seed,
			"runtime":  runtimeHours,
			"arrivals": len(arrivals),
		}).Info("starting simulation")

		start := time.Now()
		if err := s.Run(ctx); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"clock":   s.Clock(),
			"elapsed": time.Since(start),
		}).Info("simulation complete")
		return nil
	},
}

// serveCmd runs the engine as a server driven by external workflow calls.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation commands over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		setUpLogging()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := httpapi.LoadConfig()
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Addr = addr
		}

		s, _, cleanup, err := buildSimulator(ctx, false)
		if err != nil {
			return err
		}
		defer cleanup()

		go func() {
			if err := s.Run(ctx); err != nil {
				logrus.WithError(err).Error("event loop stopped")
			}
		}()

		srv := &http.Server{
			Addr:         cfg.Addr,
			Handler:      httpapi.NewServer(s).Router(),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logrus.WithError(err).Warn("server shutdown")
			}
		}()

		logrus.WithField("addr", cfg.Addr).Info("serving simulation API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func setUpLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, serveCmd} {
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for random draws")
		c.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().StringVar(&patientTypesPath, "patient-types", "config/patient_types.yaml", "Patient type table")
		c.Flags().StringVar(&resourcesPath, "resources", "config/resources.yaml", "Resource capacity table")
		c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres DSN for the persistent ledger (default in-memory)")
	}
	runCmd.Flags().Float64Var(&runtimeHours, "runtime", 7*24, "Simulated horizon in hours for generated arrivals")
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides SIM_HTTP_ADDR)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
