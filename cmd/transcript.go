package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTranscriptCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript SESSION_ID",
		Short: "Print a session's messages from the journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd.Context(), v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.journal == nil {
				return errors.New("transcript: journal_table is not configured")
			}

			msgs, err := a.journal.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			st := newStyles()
			if len(msgs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), st.hint.Render("no messages for session "+args[0]))
				return nil
			}
			for i, m := range msgs {
				fmt.Fprintln(cmd.OutOrStdout(), st.message(i, m))
			}
			return nil
		},
	}
}
