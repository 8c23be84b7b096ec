package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/session"
	"github.com/spf13/cobra"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Answer questions read from stdin until EOF or \"exit\"",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseFormat(flags.format)
			if err != nil {
				return err
			}
			out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
			a, err := newApp(cmd, flags, session.WithProgress(func(p models.Progress) {
				cli.WriteProgress(errOut, p)
			}))
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.initialize(cmd); err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(errOut, "> ")
				if !scanner.Scan() {
					break
				}
				question := strings.TrimSpace(scanner.Text())
				switch question {
				case "":
					continue
				case "exit", "quit":
					return nil
				}
				answer, err := a.session.Answer(cmd.Context(), question)
				if err != nil {
					cli.WriteError(errOut, err)
					if cmd.Context().Err() != nil {
						return err
					}
					continue
				}
				if err := cli.WriteAnswer(out, answer, format, showSources); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved segments after each answer")
	return cmd
}
