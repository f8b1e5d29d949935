package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/versusvoid/rikaikun/crf"
)

func (c *CLI) newSelfCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "selfcheck",
		Short: "Run the engine on a fixed model and sample and compare with the known labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			labels, err := crf.SelfCheck()
			if err != nil {
				return err
			}
			slog.Debug("Self-check passed", "labels", labels)
			fmt.Println("ok")
			return nil
		},
	}
}
