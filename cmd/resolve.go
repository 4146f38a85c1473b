package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/shono-io/acasci/resolve"
	"github.com/spf13/cobra"
)

var resolveEvent eventOptions

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "print the backend ref and image tag for a trigger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		event, err := resolveEvent.Event(os.Getenv)
		if err != nil {
			return err
		}

		resolver, err := resolve.New(cfg.Resolver, resolve.DockerTag)
		if err != nil {
			return err
		}

		ref, err := resolver.Resolve(cmd.Context(), event)
		if err != nil {
			return err
		}

		if err := writeOutputs(cmd.OutOrStdout(), ref.Ref, ref.Tag); err != nil {
			return err
		}

		// -- expose the result to later workflow steps
		if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("unable to open workflow outputs: %w", err)
			}
			defer f.Close()

			return writeOutputs(f, ref.Ref, ref.Tag)
		}

		return nil
	},
}

func writeOutputs(w io.Writer, ref string, tag string) error {
	_, err := fmt.Fprintf(w, "ref=%s\ntag=%s\n", ref, tag)
	return err
}

func init() {
	resolveEvent.register(resolveCmd)
	rootCmd.AddCommand(resolveCmd)
}
