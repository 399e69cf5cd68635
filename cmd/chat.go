package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/server"
)

func newChatCmd() *cobra.Command {
	var (
		sessionID string
		message   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		Long: `Start a conversation with the scheduling assistant. Each line you type is one
turn; the conversation is stored under a session id so it can be resumed later
with --session.

Commands inside the chat:
  /reset  start over with an empty conversation
  /exit   leave the chat

With --message a single turn is run and its reply printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, appOptions{Agent: true, Transcripts: true})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			s := &chatSession{
				turns:       a.orchestrator,
				transcripts: a.transcripts,
				id:          sessionID,
			}
			if err := s.open(ctx); err != nil {
				return err
			}

			if message != "" {
				return s.turn(ctx, cmd.OutOrStdout(), message)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "agenda %s, session %s (calendar: %s). Type /exit to leave.\n", version, s.id, a.backend)
			return s.loop(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Resume or name a session (default: a new random id)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Run a single turn with this message and exit")

	return cmd
}

// chatSession runs turns of one terminal conversation against the
// transcript store.
type chatSession struct {
	turns       server.TurnRunner
	transcripts server.Transcripts
	id          string
}

// open creates the session unless it already exists.
func (s *chatSession) open(ctx context.Context) error {
	if s.id == "" {
		s.id = uuid.NewString()
	}
	ok, err := s.transcripts.Exists(ctx, s.id)
	if err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if ok {
		return nil
	}
	if err := s.transcripts.Create(ctx, s.id); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *chatSession) loop(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			if err := s.reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		if err := s.turn(ctx, out, line); err != nil {
			return err
		}
	}
}

func (s *chatSession) turn(ctx context.Context, out io.Writer, text string) error {
	history, err := s.transcripts.Load(ctx, s.id)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}
	result, err := s.turns.RunTurn(agent.WithSession(ctx, s.id), history, text)
	if err != nil {
		return err
	}
	if err := s.transcripts.Append(ctx, s.id, result.Messages); err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}
	fmt.Fprintln(out, result.Reply)
	return nil
}

func (s *chatSession) reset(ctx context.Context) error {
	if err := s.transcripts.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return s.transcripts.Create(ctx, s.id)
}
