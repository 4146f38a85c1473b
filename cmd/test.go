package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/creds"
	"github.com/shono-io/acasci/exec"
	"github.com/shono-io/acasci/pkg"
	"github.com/shono-io/acasci/repo"
	"github.com/shono-io/acasci/resolve"
	"github.com/shono-io/acasci/testrun"
	"github.com/spf13/cobra"
)

var testEvent eventOptions

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "run the client test suite against a live backend",
	Long: `Resolves the backend version for the trigger, starts it, waits until it accepts connections,
creates the test identity, writes the credential profile and runs the client test modules. The
backend is left running afterwards; use the down command to remove it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		event, err := testEvent.Event(os.Getenv)
		if err != nil {
			return err
		}

		resolver, err := resolve.New(cfg.Resolver, resolve.DockerTag)
		if err != nil {
			return err
		}

		source, err := repo.NewGitRepository(cfg.Backend)
		if err != nil {
			return err
		}
		defer source.Close()

		provisioner, err := exec.NewDockerProvisioner(cfg.Environment)
		if err != nil {
			return err
		}
		defer provisioner.Close()

		writer, err := creds.NewWriter(cfg.Credentials)
		if err != nil {
			return err
		}

		reporter, err := newReporter(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer reporter.Close()

		probe := cfg.Probe()
		commands := exec.NewProcessRunner(os.Stdout, os.Stderr)

		p := &pkg.TestPipeline{
			RunId:       currentRunId(),
			Resolver:    resolver,
			Source:      source,
			Provisioner: provisioner,
			Waiter:      exec.NewWaiter(probe, cfg.Readiness.Interval, cfg.Readiness.Timeout),
			Fixture:     &exec.Fixture{Service: cfg.Fixture.Service, Command: cfg.Fixture.Command},
			Credentials: writer,
			Profile:     creds.ResolveProfile(cfg.Credentials, cfg.BackendURL()),
			Tests:       testrun.NewRunner(cfg.Tests, writer.Path(), writer.Profile(), probe, commands),
			Reporter:    reporter,
		}

		out, err := p.Run(cmd.Context(), event)
		if err != nil {
			return err
		}

		log.Info().Str("tag", out.Reference.Tag).Int("modules", len(out.Result.Modules)).Int64("seed", out.Result.Seed).Msg("client tests passed")
		return nil
	},
}

func init() {
	testEvent.register(testCmd)
	rootCmd.AddCommand(testCmd)
}
