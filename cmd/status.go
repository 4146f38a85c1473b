package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shono-io/acasci/report"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show the stored step states of a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if runId == "" {
			return fmt.Errorf("--run-id is required")
		}

		if !cfg.Nats.Enabled() || cfg.Nats.Bucket == "" {
			return fmt.Errorf("run states are only stored when nats.url and nats.bucket are configured")
		}

		nc, err := cfg.Nats.Connect("acasci-status")
		if err != nil {
			return fmt.Errorf("unable to connect to nats: %w", err)
		}
		defer nc.Close()

		store, err := report.NewRunStore(cmd.Context(), nc, cfg.Nats.Bucket)
		if err != nil {
			return err
		}

		steps, err := store.Steps(cmd.Context(), runId)
		if err != nil {
			return err
		}

		if len(steps) == 0 {
			return fmt.Errorf("no steps stored for run %s", runId)
		}

		printSteps(cmd.OutOrStdout(), steps)
		return nil
	},
}

func printSteps(w io.Writer, steps []report.StepEvent) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"PIPELINE", "STEP", "STATUS", "DURATION", "ERROR"})

	for _, s := range steps {
		t.AppendRow(table.Row{s.Pipeline, s.Step, statusText(s.Status), fmt.Sprintf("%.1fs", s.Duration), s.Error})
	}

	t.Render()
}

func statusText(s report.Status) string {
	switch s {
	case report.SucceededStatus:
		return text.FgGreen.Sprint(s)
	case report.FailedStatus:
		return text.FgRed.Sprint(s)
	case report.SkippedStatus:
		return text.FgHiBlack.Sprint(s)
	default:
		return text.FgYellow.Sprint(s)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
