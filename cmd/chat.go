package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wanderlust/internal/domain"
	"wanderlust/internal/usecase"
)

const chatHelp = "commands: /book N, /notifications, /dismiss N|ID, /help, /quit"

func newChatCmd(v *viper.Viper) *cobra.Command {
	var q domain.SearchQuery

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Search for a trip and keep chatting with the assistant",
		Long:  "chat opens a session with a trip search, then reads follow-up messages and commands from stdin. " + chatHelp + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(cmd.Context(), v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()
			return runChat(cmd, a, q)
		},
	}

	cmd.Flags().StringVar(&q.Destination, "destination", "", "Where to travel")
	cmd.Flags().StringVar(&q.Dates, "dates", "", "Travel dates, free text")
	cmd.Flags().IntVar(&q.Travelers, "travelers", 1, "Number of travelers")
	_ = cmd.MarkFlagRequired("destination")

	return cmd
}

func runChat(cmd *cobra.Command, a *app, q domain.SearchQuery) error {
	ctx := cmd.Context()
	s := newChatSession(a, cmd.OutOrStdout(), cmd.ErrOrStderr())

	fmt.Fprintln(s.out, s.styles.muted.Render("session "+a.history.SessionID()+" ("+chatHelp+")"))
	fmt.Fprintln(s.out, s.styles.user.Render("you: "+usecase.BuildSearchQuery(q)))
	if _, err := a.conversation.StartSearch(ctx, q); err != nil {
		return err
	}
	s.flush()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			break
		}
		quit, err := s.handle(ctx, scanner.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// chatSession prints the conversation incrementally.
type chatSession struct {
	app     *app
	out     io.Writer
	errOut  io.Writer
	styles  styles
	printed int
	seen    map[string]bool
}

func newChatSession(a *app, out, errOut io.Writer) *chatSession {
	return &chatSession{app: a, out: out, errOut: errOut, styles: newStyles(), seen: map[string]bool{}}
}

// flush prints assistant messages and notifications not shown yet. User
// messages were typed by the user and are not echoed.
func (s *chatSession) flush() {
	msgs := s.app.conversation.Messages()
	for i := s.printed; i < len(msgs); i++ {
		if msgs[i].Role == domain.RoleUser {
			continue
		}
		fmt.Fprintln(s.out, s.styles.message(i, msgs[i]))
	}
	s.printed = len(msgs)

	for i, n := range s.app.notifications.List() {
		if s.seen[n.ID] {
			continue
		}
		s.seen[n.ID] = true
		fmt.Fprintln(s.out, s.styles.notification(i+1, n))
	}
}

func (s *chatSession) handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "":
		return false, nil
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, s.styles.hint.Render(chatHelp))
	case "/notifications":
		s.listNotifications()
	case "/dismiss":
		s.dismiss(arg)
	case "/book":
		idx, convErr := strconv.Atoi(arg)
		if convErr != nil {
			fmt.Fprintln(s.out, s.styles.failure.Render("usage: /book N"))
			return false, nil
		}
		if _, err := s.book(ctx, idx); err != nil {
			return false, err
		}
	default:
		if _, err := s.app.conversation.SendFollowUp(ctx, line); err != nil {
			fmt.Fprintln(s.out, s.styles.failure.Render(describeError(err)))
			return false, nil
		}
		s.flush()
	}
	return false, nil
}

// book commits to the offer at idx and waits for the outcome. Refusals are
// printed; only a broken progress view is returned as an error.
func (s *chatSession) book(ctx context.Context, idx int) (domain.Outcome, error) {
	attempt, accepted, err := s.app.conversation.Book(ctx, idx)
	if err != nil {
		fmt.Fprintln(s.out, s.styles.failure.Render(describeError(err)))
		return domain.OutcomeNone, nil
	}
	if !accepted {
		fmt.Fprintln(s.out, s.styles.failure.Render("A booking is already in progress."))
		return domain.OutcomeNone, nil
	}
	if err := runSagaProgress(ctx, s.errOut, attempt, s.styles); err != nil {
		return domain.OutcomeNone, err
	}
	s.flush()
	outcome, _ := attempt.Outcome()
	return outcome, nil
}

func (s *chatSession) listNotifications() {
	list := s.app.notifications.List()
	if len(list) == 0 {
		fmt.Fprintln(s.out, s.styles.hint.Render("no notifications"))
		return
	}
	for i, n := range list {
		s.seen[n.ID] = true
		fmt.Fprintln(s.out, s.styles.notification(i+1, n))
	}
}

// dismiss accepts a position from the last listing or a notification id.
func (s *chatSession) dismiss(arg string) {
	id := arg
	if pos, err := strconv.Atoi(arg); err == nil {
		list := s.app.notifications.List()
		if pos >= 1 && pos <= len(list) {
			id = list[pos-1].ID
		}
	}
	if id == "" || !s.app.notifications.Dismiss(id) {
		fmt.Fprintln(s.out, s.styles.hint.Render("no such notification"))
		return
	}
	fmt.Fprintln(s.out, s.styles.hint.Render("dismissed"))
}

func describeError(err error) string {
	var uerr *usecase.Error
	if !errors.As(err, &uerr) {
		return err.Error()
	}
	switch uerr.Reason {
	case "unknown_message":
		return "There is no message with that number."
	case "no_offer":
		return "That message has no offer to book."
	case "already_booked":
		return "That trip is already booked."
	case "assistant_responding":
		return "The assistant is still answering."
	case "empty_message", "empty_destination":
		return "Please type something first."
	default:
		return uerr.Error()
	}
}
