package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/exec"
	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "remove the backend containers and network started by the test command",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		provisioner, err := exec.NewDockerProvisioner(cfg.Environment)
		if err != nil {
			return err
		}
		defer provisioner.Close()

		if err := provisioner.Down(cmd.Context()); err != nil {
			return err
		}

		log.Info().Str("project", cfg.Environment.Project).Msg("backend removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downCmd)
}
