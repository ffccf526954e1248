package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wellnesslog/internal/amqp"
	"wellnesslog/internal/cli"
	"wellnesslog/internal/core"
)

// appOpener builds the application for one command run.
type appOpener func(ctx context.Context) (*cli.App, error)

var errRejected = errors.New("entry rejected")

func newRootCmd(open appOpener) *cobra.Command {
	root := &cobra.Command{
		Use:   "wellnessctl",
		Short: "Record daily wellness entries and read back charts, tips and insights",
		Long: `wellnessctl records focus, skin and mood entries and prints the
derived chart payloads, tips and insights.

Storage and events follow the same environment as the server
(DATA_BACKEND, DATA_DIR, SQLITE_DB_PATH, BADGER_DIR, AMQP_URL, ...).`,
		SilenceUsage: true,
	}

	withApp := func(run func(cmd *cobra.Command, app *cli.App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return run(cmd, app, args)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "add <category> field=value...",
			Short: "Validate and store one entry",
			Long: `Validate and store one entry. Fields are given as field=value pairs:

  focus: sleepHours screenHours exerciseMinutes rating
  skin:  sleepHours waterCups stressLevel condition
  mood:  date mood triggers (repeat triggers=... or separate with commas)`,
			Example: `  wellnessctl add focus sleepHours=7.5 screenHours=3 exerciseMinutes=30 rating=8
  wellnessctl add mood date=2025-03-10 mood=calm triggers=rain,reading`,
			Args: cobra.MinimumNArgs(1),
			RunE: withApp(runAdd),
		},
		&cobra.Command{
			Use:   "list <category>",
			Short: "Print a category log in insertion order",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runList),
		},
		&cobra.Command{
			Use:   "charts <category>",
			Short: "Print the chart payloads of a category as JSON",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runCharts),
		},
		&cobra.Command{
			Use:   "tips <category>",
			Short: "Print the tips for a category",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runTips),
		},
		&cobra.Command{
			Use:   "insights",
			Short: "Print the summary insights across all categories",
			Args:  cobra.NoArgs,
			RunE:  withApp(runInsights),
		},
		newExportCmd(withApp),
		&cobra.Command{
			Use:   "import <file>",
			Short: "Append every entry of an export document",
			Args:  cobra.ExactArgs(1),
			RunE:  withApp(runImport),
		},
		newClearCmd(withApp),
		&cobra.Command{
			Use:   "watch",
			Short: "Print entry change events as they arrive (requires AMQP_URL)",
			Args:  cobra.NoArgs,
			RunE:  withApp(runWatch),
		},
	)
	return root
}

type appRunner = func(func(*cobra.Command, *cli.App, []string) error) func(*cobra.Command, []string) error

func newExportCmd(withApp appRunner) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every log as one JSON document",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *cli.App, _ []string) error {
			data, err := json.MarshalIndent(app.Service.Export(cmd.Context()), "", "  ")
			if err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			data = append(data, '\n')
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write (default stdout)")
	return cmd
}

func newClearCmd(withApp appRunner) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear <category>",
		Short: "Delete every entry of a category (requires --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *cli.App, args []string) error {
			c, err := core.ParseCategory(args[0])
			if err != nil {
				return err
			}
			cleared, err := app.Service.Clear(cmd.Context(), c, yes)
			if err != nil {
				return err
			}
			if !cleared {
				fmt.Fprintf(cmd.OutOrStdout(), "Not cleared. Re-run with --yes to delete every %s entry.\n", c)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", c)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

// parseFieldArgs turns field=value arguments into raw form values.
// Repeated fields keep every value.
func parseFieldArgs(args []string) (core.RawFields, error) {
	raw := core.RawFields{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q is not field=value", arg)
		}
		raw[key] = append(raw[key], value)
	}
	return raw, nil
}

func runAdd(cmd *cobra.Command, app *cli.App, args []string) error {
	c, err := core.ParseCategory(args[0])
	if err != nil {
		return err
	}
	raw, err := parseFieldArgs(args[1:])
	if err != nil {
		return err
	}

	result, err := app.Service.Submit(cmd.Context(), c, raw)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !result.Accepted {
		for _, field := range result.Errors.Failed() {
			fmt.Fprintf(out, "%s: %s\n", field, result.Errors[field])
		}
		return errRejected
	}

	fmt.Fprintf(out, "Saved %s entry (%d total)\n", c, result.Dashboard.Count)
	printTips(out, result.Dashboard.Tips)
	return nil
}

func runList(cmd *cobra.Command, app *cli.App, args []string) error {
	c, err := core.ParseCategory(args[0])
	if err != nil {
		return err
	}
	entries, err := app.Service.Entries(cmd.Context(), c)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	switch c {
	case core.Focus:
		fmt.Fprintln(tw, "DATE\tSLEEP\tSCREEN\tEXERCISE\tRATING")
	case core.Skin:
		fmt.Fprintln(tw, "DATE\tSLEEP\tWATER\tSTRESS\tCONDITION")
	case core.Mood:
		fmt.Fprintln(tw, "DATE\tMOOD\tTRIGGERS")
	}
	for _, e := range entries {
		switch v := e.(type) {
		case core.FocusEntry:
			fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%d\n", v.Date, v.SleepHours, v.ScreenHours, v.ExerciseMinutes, v.Rating)
		case core.SkinEntry:
			fmt.Fprintf(tw, "%s\t%g\t%g\t%d\t%s\n", v.Date, v.SleepHours, v.WaterCups, v.StressLevel, v.Condition)
		case core.MoodEntry:
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Date, v.Mood, strings.Join(v.Triggers, ", "))
		}
	}
	return tw.Flush()
}

func runCharts(cmd *cobra.Command, app *cli.App, args []string) error {
	c, err := core.ParseCategory(args[0])
	if err != nil {
		return err
	}
	dash, err := app.Service.Dashboard(cmd.Context(), c)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(dash.Charts)
}

func runTips(cmd *cobra.Command, app *cli.App, args []string) error {
	c, err := core.ParseCategory(args[0])
	if err != nil {
		return err
	}
	dash, err := app.Service.Dashboard(cmd.Context(), c)
	if err != nil {
		return err
	}
	printTips(cmd.OutOrStdout(), dash.Tips)
	return nil
}

func runInsights(cmd *cobra.Command, app *cli.App, _ []string) error {
	in, err := app.Service.Insights(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, in.SleepFocus)
	fmt.Fprintln(out, in.Skin)
	fmt.Fprintln(out, in.Mood)
	return nil
}

func runImport(cmd *cobra.Command, app *cli.App, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read export document: %w", err)
	}
	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode export document: %w", err)
	}
	n, err := app.Service.Import(cmd.Context(), snap)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries\n", n)
	return nil
}

func runWatch(cmd *cobra.Command, app *cli.App, _ []string) error {
	events := app.Backend.Events
	if events == nil {
		return errors.New("events are disabled: set AMQP_URL")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Watching entry events. Press Ctrl+C to stop.")

	ctx, done := cli.GracefulShutdown(app.Logger, app.Config.ShutdownTimeout, nil)
	err := events.ConsumeEntryEvents(ctx, func(_ context.Context, event *amqp.EntryEvent) error {
		_, err := fmt.Fprintln(out, formatEvent(event))
		return err
	})
	if errors.Is(err, context.Canceled) {
		<-done
		return nil
	}
	return err
}

func formatEvent(event *amqp.EntryEvent) string {
	return fmt.Sprintf("%s  %-18s %-5s count=%d", event.Timestamp.Local().Format("2006-01-02 15:04:05"), event.Type, event.Category, event.Count)
}

func printTips(out io.Writer, tips []string) {
	for _, tip := range tips {
		fmt.Fprintf(out, "- %s\n", tip)
	}
}
