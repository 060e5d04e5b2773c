package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/bnema/chatsim/internal/adapters/render/transcript"
	"github.com/bnema/chatsim/internal/application"
	"github.com/bnema/chatsim/internal/domain"
	"github.com/bnema/chatsim/internal/ports"
	"github.com/spf13/cobra"
)

type personaOutput struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Status        string   `json:"status,omitempty"`
	Avatar        string   `json:"avatar,omitempty"`
	Group         bool     `json:"group"`
	Members       []string `json:"members,omitempty"`
	Talkativeness *float64 `json:"talkativeness,omitempty"`
	ReplyRate     *float64 `json:"reply_rate,omitempty"`
	Messages      int      `json:"messages"`
}

func newPersonasCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the roster with attributes derived from persona profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := app.newEngine(cmd.Context(), ports.NopNotifier{})
			if err != nil {
				return err
			}
			defer engine.Close()

			return writePersonasOutput(cmd, engine.Statuses(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the roster as JSON")
	cmd.AddCommand(newPersonasInitCmd(app))

	return cmd
}

func writePersonasOutput(cmd *cobra.Command, statuses []application.PersonaStatus, asJSON bool) error {
	if asJSON {
		out := make([]personaOutput, 0, len(statuses))
		for _, status := range statuses {
			out = append(out, toPersonaOutput(status))
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	entries := make([]transcript.RosterEntry, 0, len(statuses))
	for _, status := range statuses {
		entries = append(entries, transcript.RosterEntry{
			Persona:    status.Persona,
			Attributes: status.Attributes,
			Members:    status.Members,
			Messages:   status.Messages,
		})
	}

	rendered, err := transcript.RenderRoster(entries)
	if err != nil {
		return fmt.Errorf("render roster: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func toPersonaOutput(status application.PersonaStatus) personaOutput {
	persona := status.Persona
	out := personaOutput{
		ID:       string(persona.ID),
		Name:     persona.DisplayName,
		Status:   persona.StatusText,
		Avatar:   persona.AvatarGlyph,
		Group:    persona.IsGroup(),
		Members:  status.Members,
		Messages: status.Messages,
	}
	if !persona.IsGroup() {
		talkativeness := status.Attributes.Talkativeness
		replyRate := status.Attributes.ReplyRate
		out.Talkativeness = &talkativeness
		out.ReplyRate = &replyRate
	}
	return out
}

func newPersonasInitCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default roster and persona profile templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			exists, err := app.roster.Exists()
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("roster %s already exists (use --force to overwrite)", app.roster.Path())
			}

			personas := domain.DefaultRoster()
			if err := app.roster.Save(cmd.Context(), personas); err != nil {
				return fmt.Errorf("write roster: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote roster %s\n", app.roster.Path())

			for _, persona := range personas {
				if persona.IsGroup() {
					continue
				}

				written, err := app.profileStore.Put(cmd.Context(), persona.ID, profileTemplate(persona), force)
				if err != nil {
					return fmt.Errorf("write profile for %s: %w", persona.ID, err)
				}
				if !written {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "kept existing profile for %s\n", persona.ID)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote profile for %s\n", persona.ID)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing roster and profiles")

	return cmd
}

func profileTemplate(persona domain.Persona) string {
	return fmt.Sprintf("# %s\n\n%s\n\n活跃度 (talkativeness)：%.1f\n回复率 (reply_rate)：%.1f\n",
		persona.DisplayName,
		persona.StatusText,
		domain.DefaultAttributeValue,
		domain.DefaultAttributeValue,
	)
}
