package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newExtendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extend <text> <prefix>",
		Short: "Show how far a word starting before text reaches back into prefix",
		Args:  cobra.ExactArgs(2),
		Example: `  rikaikun-crf extend んだ 読
  rikaikun-crf extend は 雨 --inference-max-prefix-symbols 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.loadSegmenter(c.cfg.Paths.Features, c.cfg.Paths.Weights)
			if err != nil {
				return err
			}
			extended, n, err := s.Extend(args[0], args[1])
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("no extension")
				return nil
			}
			fmt.Printf("%s\t%d\n", extended, n)
			return nil
		},
	}
}
