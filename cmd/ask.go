package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wanderlust/internal/domain"
)

func newAskCmd(v *viper.Viper) *cobra.Command {
	var book bool

	cmd := &cobra.Command{
		Use:   "ask TEXT",
		Short: "Send one message to the assistant and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := wireApp(cmd.Context(), v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			s := newChatSession(a, cmd.OutOrStdout(), cmd.ErrOrStderr())
			reply, err := a.conversation.SendFollowUp(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			s.flush()
			if !book {
				return nil
			}
			if !reply.HasOffer() {
				return errors.New("the reply carries no offer to book")
			}

			outcome, err := s.book(cmd.Context(), a.history.Len()-1)
			if err != nil {
				return err
			}
			if outcome != domain.OutcomeSuccess {
				return fmt.Errorf("booking did not succeed (%s)", outcome)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&book, "book", false, "Book the offer in the reply, if any")

	return cmd
}
