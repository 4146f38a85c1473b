package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/exec"
	"github.com/shono-io/acasci/pkg"
	"github.com/shono-io/acasci/publish"
	"github.com/spf13/cobra"
)

var publishEvent eventOptions

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "build the client distribution and publish it",
	Long: `Builds the sdist and the wheel once and uploads them to the staging index. Tag creation
additionally uploads them to the production index. Files the index already holds are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		event, err := publishEvent.Event(os.Getenv)
		if err != nil {
			return err
		}

		staging, err := publish.NewIndex(cfg.Staging, nil)
		if err != nil {
			return err
		}

		production, err := publish.NewIndex(cfg.Production, nil)
		if err != nil {
			return err
		}

		reporter, err := newReporter(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer reporter.Close()

		p := &pkg.ReleasePipeline{
			RunId:      currentRunId(),
			Builder:    publish.NewPythonBuilder(cfg.Build, exec.NewProcessRunner(os.Stdout, os.Stderr)),
			Staging:    staging,
			Production: production,
			Reporter:   reporter,
		}

		out, err := p.Run(cmd.Context(), event)
		if err != nil {
			return err
		}

		log.Info().Str("version", out.Artifacts.Sdist.Version).Bool("production", out.ProductionPublished).Msg("release published")
		return nil
	},
}

func init() {
	publishEvent.register(publishCmd)
	rootCmd.AddCommand(publishCmd)
}
