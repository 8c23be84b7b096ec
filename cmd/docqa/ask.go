package main

import (
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/session"
	"github.com/spf13/cobra"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask [flags] <question>",
		Short: "Answer one question and exit",
		Example: `  docqa ask --document report.pdf --model mistral-7b.Q4_K_M.gguf "What does Beumer make?"
  docqa ask --model mistral-7b.Q4_K_M.gguf --format json "Summarize RAG in one sentence"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseFormat(flags.format)
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")
			var opts []session.Option
			if format == cli.OutputText {
				opts = append(opts, session.WithProgress(func(p models.Progress) {
					cli.WriteProgress(cmd.ErrOrStderr(), p)
				}))
			}
			a, err := newApp(cmd, flags, opts...)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.initialize(cmd); err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			answer, err := a.session.Answer(cmd.Context(), question)
			if err != nil {
				cli.WriteError(cmd.ErrOrStderr(), err)
				return fmt.Errorf("answer: %w", err)
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), answer, format, showSources)
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved segments after the answer")
	return cmd
}
