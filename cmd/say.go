package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/chatsim/internal/adapters/render/transcript"
	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"github.com/spf13/cobra"
)

func newSayCmd(app *app) *cobra.Command {
	var to string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "say --to <persona-id> <message...>",
		Short: "Send one message and print the conversation once every reply arrived",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ConversationID(strings.TrimSpace(to))
			text := strings.Join(args, " ")

			var (
				mu        sync.Mutex
				fallbacks []domain.Delivery
			)
			notifier := ports.NotifierFunc(func(delivery domain.Delivery) {
				if !delivery.Fallback {
					return
				}
				mu.Lock()
				fallbacks = append(fallbacks, delivery)
				mu.Unlock()
			})

			engine, err := app.newEngine(cmd.Context(), notifier)
			if err != nil {
				return err
			}
			defer engine.Close()

			persona, err := engine.Persona(domain.PersonaID(id))
			if err != nil {
				return fmt.Errorf("say to %q: %w", id, err)
			}

			send := func(ctx context.Context) error {
				if err := engine.Send(ctx, id, text); err != nil {
					return err
				}
				engine.Wait()
				return nil
			}

			if quiet {
				err = send(cmd.Context())
			} else {
				label := fmt.Sprintf("Waiting for %s...", persona.DisplayName)
				err = runReplySpinner(cmd.Context(), cmd.ErrOrStderr(), label, send)
			}
			if err != nil {
				return err
			}

			opts := transcript.RenderOptions{Now: app.now()}
			rendered, err := transcript.Render(transcript.View{
				Persona: persona,
				Bursts:  engine.Bursts(id, app.config.BurstGap),
			}, opts)
			if err != nil {
				return fmt.Errorf("render transcript: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rendered)

			mu.Lock()
			defer mu.Unlock()
			for _, delivery := range fallbacks {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), transcript.RenderDelivery(delivery, opts))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Persona or group id to talk to")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not show the waiting spinner")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
