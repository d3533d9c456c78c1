// Command vds-engine reads a scenario JSON from a file argument (or stdin),
// runs the simulation, and writes the log JSON to stdout.
//
// Settings come from vds-engine.cfg.json in the -config directory. Depending
// on them, frames are also recorded to a database, written to InfluxDB, and
// turned into an engine-note WAV and a PNG chart.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/logging"
	"github.com/cxd309/vds-engine/internal/otel"
	"github.com/cxd309/vds-engine/internal/sim"
	"github.com/cxd309/vds-engine/internal/telemetry"
)

type flags struct {
	configDir string
	tuning    string
	out       string
	chart     string
	audio     string
	input     string
	traction  *bool // nil keeps the tuning's setting
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("vds-engine", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configDir, "config", ".", "directory holding "+config.FileName)
	fs.StringVar(&f.tuning, "tuning", "", "vehicle tuning file (json, yaml or toml) applied over the preset")
	fs.StringVar(&f.out, "out", "", "write the log JSON here instead of stdout")
	fs.StringVar(&f.chart, "chart", "", "render a PNG chart of the run")
	fs.StringVar(&f.audio, "audio", "", "render the engine note to this WAV file")
	fs.Func("tc", "force traction control on or off for the whole run", func(s string) error {
		on, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		f.traction = &on
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	f.input = fs.Arg(0)
	return f, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := config.Load(f.configDir); err != nil {
		return err
	}

	var data []byte
	if f.input != "" {
		data, err = os.ReadFile(f.input)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	var sc sim.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("invalid input JSON: %w", err)
	}
	if err := applyDefaults(&sc, f.tuning); err != nil {
		return err
	}
	if f.traction != nil {
		sc.Assists = append([]sim.Assist{{TractionControl: *f.traction}}, sc.Assists...)
	}

	closers := &closeStack{}
	defer closers.close()

	lm, provider, err := setupLogging(ctx, stderr, closers)
	if err != nil {
		return err
	}
	logger := lm.Logger()
	zlog := zerologger(stderr)

	tuning, err := sc.Tuning()
	if err != nil {
		return err
	}
	s, err := openSinks(ctx, tuning.Name, provider.Meter(telemetry.InstrumentationName), zlog)
	if err != nil {
		return err
	}

	opts := append(s.options(), sim.WithLogger(logger), sim.WithMaxStep(config.GetSimConfig().MaxStep))
	runner, err := sim.NewRunner(sc, opts...)
	if err != nil {
		s.abort()
		return err
	}
	if err := s.begin(ctx, sc.Meta, runner.Vehicle().Rig().Tuning); err != nil {
		runner.Close()
		return err
	}
	if id := s.runID(); id != "" {
		logger.Info("recording run", "run_id", id)
	}

	simLog, runErr := runner.Run(ctx)
	logMetrics(ctx, provider, logger)
	if err := runner.Close(); err != nil {
		logger.Warn("closing telemetry sinks failed", "error", err)
	}
	if runErr != nil {
		return runErr
	}

	if err := writeOutputs(f, simLog, logger); err != nil {
		return err
	}
	return writeLog(f.out, stdout, simLog)
}

// applyDefaults fills what the scenario leaves out from the settings and
// replaces the vehicle tuning with a tuning file when one is given.
func applyDefaults(sc *sim.Scenario, tuningPath string) error {
	simCfg := config.GetSimConfig()
	if sc.Vehicle.Preset == "" {
		sc.Vehicle.Preset = simCfg.Preset
	}
	if sc.Meta.TimeStep == 0 {
		sc.Meta.TimeStep = simCfg.TimeStep
	}
	if tuningPath == "" {
		return nil
	}
	t, err := config.LoadTuning(tuningPath, sc.Vehicle.Preset)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding tuning: %w", err)
	}
	sc.Vehicle.Tuning = raw
	return nil
}

func setupLogging(ctx context.Context, console io.Writer, closers *closeStack) (*logging.Manager, *otel.Provider, error) {
	var file io.Writer
	if path := viper.GetString("logFile"); path != "" {
		fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		closers.push(fh.Close)
		file = fh
	}

	otelCfg := config.GetOTelConfig()
	providerCfg := otel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	}
	if otelCfg.Enabled && otelCfg.LogFile != "" {
		fh, err := os.OpenFile(otelCfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening otel log file: %w", err)
		}
		closers.push(fh.Close)
		providerCfg.LogWriter = fh
	}
	provider, err := otel.New(ctx, providerCfg)
	if err != nil {
		return nil, nil, err
	}
	closers.push(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(shutdownCtx)
	})

	m := logging.NewManager()
	m.Setup(console, file, viper.GetString("logLevel"), provider.LoggerProvider())
	return m, provider, nil
}

// zerologger is the logger handed to the storage and InfluxDB managers.
func zerologger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("logLevel")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}).
		Level(level).With().Timestamp().Logger()
}

func writeLog(path string, stdout io.Writer, simLog sim.Log) error {
	out, err := json.Marshal(simLog)
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	if path == "" {
		_, err = fmt.Fprintln(stdout, string(out))
		return err
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}

// closeStack runs cleanups in reverse order.
type closeStack struct {
	fns []func() error
}

func (c *closeStack) push(fn func() error) { c.fns = append(c.fns, fn) }

func (c *closeStack) close() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		_ = c.fns[i]()
	}
	c.fns = nil
}
