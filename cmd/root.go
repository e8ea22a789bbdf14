package cmd

import (
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jm0rt1/city-sim-sub002/sim"
	"github.com/jm0rt1/city-sim-sub002/sim/trace"
)

var (
	// CLI flags. Each overrides the corresponding environment setting when
	// changed; scenario values still win for simulation concerns.
	scenarioID  string
	scenarioDir string
	seed        int64
	horizon     int64
	logLevel    string
	logFormat   string
	logPath     string
	strictMode  bool
	parallel    bool
	metricsAddr string
	tracePath   string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "citysim",
	Short: "Deterministic tick-driven city simulation engine",
}

// runCmd executes one simulation run.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario to its horizon",
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := LoadSettings()
		if err != nil {
			logrus.Fatalf("Invalid deployment settings: %v", err)
		}
		applyFlagOverrides(cmd, &settings)

		setupLogging(settings)

		scenario, err := LoadScenario(scenarioID, settings.ScenarioDir)
		if err != nil {
			logrus.Fatalf("Scenario load failed: %v", err)
		}
		// CLI seed/horizon only fill gaps a scenario leaves; scenario
		// values take precedence when present.
		if scenario.Seed == nil && cmd.Flags().Changed("seed") {
			scenario.Seed = &seed
		}
		if scenario.Horizon == 0 && cmd.Flags().Changed("horizon") {
			scenario.Horizon = horizon
		}

		opts := sim.Options{
			Strict:     settings.Strict,
			Parallel:   settings.Parallel,
			SideWriter: os.Stderr,
		}
		var traceFile *os.File
		if settings.TracePath != "" {
			traceFile, err = os.Create(settings.TracePath)
			if err != nil {
				logrus.Fatalf("Cannot create trace file: %v", err)
			}
			defer traceFile.Close()
			opts.TraceWriter = traceFile
		}
		if settings.MetricsAddr != "" {
			opts.Exporter = sim.NewExporter()
			go serveMetrics(settings.MetricsAddr, opts.Exporter)
		}

		core, err := sim.NewSimCore(scenario, opts)
		if err != nil {
			logrus.Fatalf("Engine construction failed: %v", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		startTime := time.Now()
		completed, runErr := core.Run(ctx)
		logrus.Infof("Simulated %d ticks in %s", completed, time.Since(startTime))

		trace.Summarize(core.Trace()).Print(os.Stdout)
		core.Metrics().Print(os.Stdout, completed)

		if runErr != nil {
			logrus.Fatalf("%v", runErr)
		}
	},
}

// applyFlagOverrides lets changed flags win over environment settings.
func applyFlagOverrides(cmd *cobra.Command, s *DeploymentSettings) {
	if cmd.Flags().Changed("log-level") {
		s.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		s.LogFormat = logFormat
	}
	if cmd.Flags().Changed("log-path") {
		s.LogPath = logPath
	}
	if cmd.Flags().Changed("strict") {
		s.Strict = strictMode
	}
	if cmd.Flags().Changed("parallel") {
		s.Parallel = parallel
	}
	if cmd.Flags().Changed("metrics-addr") {
		s.MetricsAddr = metricsAddr
	}
	if cmd.Flags().Changed("trace-path") {
		s.TracePath = tracePath
	}
	if cmd.Flags().Changed("scenario-dir") {
		s.ScenarioDir = scenarioDir
	}
}

func setupLogging(s DeploymentSettings) {
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", s.LogLevel)
	}
	logrus.SetLevel(level)

	if s.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if s.LogPath != "" {
		f, err := os.OpenFile(s.LogPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			logrus.Fatalf("Cannot open log file %s: %v", s.LogPath, err)
		}
		logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	}
}

func serveMetrics(addr string, exporter *sim.Exporter) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(exporter.Registry(), promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logrus.Warnf("metrics server stopped: %v", err)
	}
}

func init() {
	runCmd.Flags().StringVar(&scenarioID, "scenario", "default", "Scenario id to run")
	runCmd.Flags().StringVar(&scenarioDir, "scenario-dir", "scenarios", "Directory holding scenario YAML files")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed fallback for scenarios that omit one")
	runCmd.Flags().Int64Var(&horizon, "horizon", 0, "Horizon fallback for scenarios that omit one")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log verbosity level")
	runCmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	runCmd.Flags().StringVar(&logPath, "log-path", "", "Also append logs to this file")
	runCmd.Flags().BoolVar(&strictMode, "strict", false, "Halt on any invariant violation")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "Fan subsystem updates out across goroutines")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	runCmd.Flags().StringVar(&tracePath, "trace-path", "", "Write the JSONL tick trace to this file")

	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
