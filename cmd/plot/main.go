// Command plot renders a run as a PNG chart. The run is either a log JSON
// produced by the CLI (file argument or stdin) or a recorded run loaded from
// the database configured in vds-engine.cfg.json.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/cxd309/vds-engine/internal/chart"
	"github.com/cxd309/vds-engine/internal/config"
	"github.com/cxd309/vds-engine/internal/recorder"
	"github.com/cxd309/vds-engine/internal/sim"
	"github.com/cxd309/vds-engine/internal/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "plot error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	runID := fs.String("run", "", `recorded run id, or "latest"`)
	list := fs.Bool("list", false, "list recorded runs and exit")
	out := fs.String("o", "run.png", "output PNG")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *runID == "" && !*list {
		frames, title, err := readLog(fs.Arg(0), stdin)
		if err != nil {
			return err
		}
		return render(*out, frames, title, stdout)
	}

	if err := config.Load(*configDir); err != nil {
		return err
	}
	storage := config.GetStorageConfig()
	if storage.Type == "none" {
		return errors.New("storage.type is none, no recorded runs")
	}
	rec, err := recorder.Open(storage, zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).Level(zerolog.WarnLevel))
	if err != nil {
		return err
	}
	defer rec.Close()

	runs, err := rec.Runs(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if *list {
		return listRuns(stdout, runs)
	}

	var selected *recorder.Run
	for i := range runs {
		if runs[i].ID == *runID || (*runID == "latest" && i == 0) {
			selected = &runs[i]
			break
		}
	}
	if selected == nil {
		return fmt.Errorf("run %q not found", *runID)
	}
	frames, err := rec.Frames(ctx, selected.ID)
	if err != nil {
		return err
	}
	return render(*out, frames, fmt.Sprintf("%s (%s)", selected.SimulationID, selected.Vehicle), stdout)
}

func readLog(path string, stdin io.Reader) ([]telemetry.Frame, string, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, "", fmt.Errorf("error reading log: %w", err)
	}
	var log sim.Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, "", fmt.Errorf("invalid log JSON: %w", err)
	}
	return log.Output, fmt.Sprintf("%s (%s)", log.Meta.SimulationID, log.Vehicle), nil
}

func render(path string, frames []telemetry.Frame, title string, stdout io.Writer) error {
	if err := chart.Save(path, frames, nil, chart.Options{Title: title}); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, "wrote %s (%d frames)\n", path, len(frames))
	return err
}

func listRuns(w io.Writer, runs []recorder.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIMULATION\tVEHICLE\tFRAMES\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.SimulationID, r.Vehicle, r.Frames, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
