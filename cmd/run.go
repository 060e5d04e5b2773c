package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/bnema/chatsim/internal/adapters/render/transcript"
	"github.com/bnema/chatsim/internal/application"
	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConversation = "group"

type session struct {
	app     *app
	engine  *application.Engine
	out     io.Writer
	errOut  io.Writer
	outMu   *sync.Mutex
	current domain.ConversationID

	schedulers []*application.Scheduler
}

func newRunCmd(app *app) *cobra.Command {
	var conversation string
	var noAuto bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Chat in the terminal while group conversations keep talking",
		Long:  "run prints every message as it is delivered and sends each line read from stdin to the current conversation. Type /to <id> to switch conversation and /quit (or end the input) to stop.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			outMu := &sync.Mutex{}
			out := cmd.OutOrStdout()
			names := map[domain.ConversationID]string{}
			printer := ports.NotifierFunc(func(delivery domain.Delivery) {
				line := transcript.RenderDelivery(delivery, transcript.RenderOptions{Now: app.now()})
				outMu.Lock()
				defer outMu.Unlock()
				_, _ = fmt.Fprintf(out, "[%s] %s\n", names[delivery.Utterance.ConversationID], line)
			})

			engine, err := app.newEngine(ctx, printer)
			if err != nil {
				return err
			}
			defer engine.Close()

			for _, persona := range engine.Personas() {
				names[persona.ConversationID()] = persona.DisplayName
			}

			s := &session{
				app:    app,
				engine: engine,
				out:    out,
				errOut: cmd.ErrOrStderr(),
				outMu:  outMu,
			}
			if err := s.switchTo(domain.ConversationID(strings.TrimSpace(conversation))); err != nil {
				return err
			}

			sessionCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, gctx := errgroup.WithContext(sessionCtx)

			if !noAuto {
				schedulers, err := startGroupSchedulers(gctx, app, engine)
				if err != nil {
					return err
				}
				s.schedulers = schedulers
			}

			lines := readLines(gctx, cmd.InOrStdin())
			g.Go(func() error {
				defer cancel()
				return s.chat(gctx, lines)
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&conversation, "conversation", defaultConversation, "Conversation to talk to first")
	cmd.Flags().BoolVar(&noAuto, "no-auto", false, "Do not let group conversations talk on their own")

	return cmd
}

// startGroupSchedulers starts an instruction scheduler for every group
// conversation. They stop with ctx or when the engine is closed.
func startGroupSchedulers(ctx context.Context, app *app, engine *application.Engine) ([]*application.Scheduler, error) {
	pool, err := app.instructions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load instructions: %w", err)
	}
	if len(pool) == 0 {
		app.logger.Info("instruction pool is empty, group conversations stay idle")
	}

	var schedulers []*application.Scheduler
	for _, persona := range engine.Personas() {
		if !persona.IsGroup() {
			continue
		}
		scheduler, err := engine.NewScheduler(persona.ConversationID(), pool, app.schedulerConfig())
		if err != nil {
			return nil, fmt.Errorf("create scheduler for %s: %w", persona.ID, err)
		}
		scheduler.Start(ctx)
		schedulers = append(schedulers, scheduler)
	}

	return schedulers, nil
}

// chat sends input lines until the input ends, /quit is typed or ctx is
// cancelled. On a clean end pending deliveries are waited for.
func (s *session) chat(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				s.drain()
				return nil
			}

			quit, err := s.handle(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				s.drain()
				return nil
			}
		}
	}
}

func (s *session) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false, nil
	case line == "/quit":
		return true, nil
	case strings.HasPrefix(line, "/to "):
		if err := s.switchTo(domain.ConversationID(strings.TrimSpace(strings.TrimPrefix(line, "/to ")))); err != nil {
			s.notice("%v", err)
		}
		return false, nil
	}

	err := s.engine.Send(ctx, s.current, line)
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, domain.ErrConversationBusy):
		s.notice("%s is still talking, message not sent", s.current)
		return false, nil
	case ctx.Err() != nil:
		return false, nil
	default:
		return false, err
	}
}

func (s *session) switchTo(id domain.ConversationID) error {
	persona, err := s.engine.Persona(domain.PersonaID(id))
	if err != nil {
		return fmt.Errorf("switch to %q: %w", id, err)
	}
	s.current = id

	rendered, err := transcript.Render(transcript.View{
		Persona: persona,
		Bursts:  s.engine.Bursts(id, s.app.config.BurstGap),
	}, transcript.RenderOptions{Now: s.app.now()})
	if err != nil {
		return fmt.Errorf("render transcript: %w", err)
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = fmt.Fprintln(s.out, rendered)
	return nil
}

func (s *session) drain() {
	for _, scheduler := range s.schedulers {
		scheduler.Stop()
	}
	s.engine.Wait()
	s.app.logger.Debug("session drained", zap.Int("schedulers", len(s.schedulers)))
}

func (s *session) notice(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = fmt.Fprintf(s.errOut, format+"\n", args...)
}

// readLines forwards input lines until EOF. The reader goroutine may outlive
// ctx while blocked on a terminal read.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
