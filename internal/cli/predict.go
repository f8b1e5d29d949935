package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/versusvoid/rikaikun"
	"github.com/versusvoid/rikaikun/internal/textutil"
)

type prediction struct {
	Text   string   `json:"text"`
	Words  []string `json:"words"`
	Labels []string `json:"labels,omitempty"`
}

func (c *CLI) newPredictCommand() *cobra.Command {
	var labels bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Split text into words, one line per input",
		Example: `  # Segment arguments
  rikaikun-crf predict 今日は晴れ 雨が降る

  # Segment lines from stdin
  cat text.txt | rikaikun-crf predict

  # Show per-character labels as JSON
  rikaikun-crf predict 今日は晴れ --labels --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			s, err := c.loadSegmenter(c.cfg.Paths.Features, c.cfg.Paths.Weights)
			if err != nil {
				return err
			}
			slog.Debug("Model loaded", "duration", time.Since(start))

			emit := func(text string) error {
				text = textutil.NormalizeLine(text)
				if text == "" {
					return nil
				}
				p, err := predict(s, text, labels)
				if err != nil {
					return err
				}
				if asJSON {
					output, _ := json.MarshalIndent(p, "", "  ")
					fmt.Println(string(output))
					return nil
				}
				fmt.Println(strings.Join(p.Words, " "))
				if labels {
					fmt.Println(strings.Join(p.Labels, " "))
				}
				return nil
			}

			if len(args) > 0 {
				for _, text := range args {
					if err := emit(text); err != nil {
						return err
					}
				}
				return nil
			}
			if isStdinTerminal() {
				return cmd.Help()
			}
			slog.Debug("Reading from stdin")
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 64*1024), 1<<20)
			for scanner.Scan() {
				if err := emit(scanner.Text()); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&labels, "labels", false, "Print per-character labels")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func predict(s *rikaikun.Segmenter, text string, withLabels bool) (prediction, error) {
	text = textutil.Normalize(text)
	ls, err := s.Predict(text)
	if err != nil {
		return prediction{}, err
	}
	p := prediction{
		Text:  text,
		Words: textutil.SplitWords(text, func(i int) bool { return ls[i].StartsWord() }),
	}
	if withLabels {
		for _, l := range ls {
			p.Labels = append(p.Labels, l.String())
		}
	}
	return p, nil
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
