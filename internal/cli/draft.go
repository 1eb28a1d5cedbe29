package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/slideforge-backend/internal/platform/llm"
)

func newDraftCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft a lesson plan with an LLM",
		Long: `Draft asks an OpenAI-compatible chat model for a markdown lesson plan with
one "### Slide N" section per slide. The key is read from --openai-api-key,
SLIDEGEN_OPENAI_API_KEY or OPENAI_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.bind(cmd); err != nil {
				return err
			}
			return e.draft(cmd)
		},
	}
	f := cmd.Flags()
	f.String("topic", "", "lesson topic")
	f.String("age-group", "", "target age group")
	f.IntP("slide-count", "n", 6, "number of slides")
	f.String("info", "", "additional instructions for the plan")
	f.String("language", "en", "plan language")
	f.String("openai-api-key", "", "OpenAI API key")
	f.String("openai-base-url", "", "OpenAI-compatible base URL")
	f.String("model", llm.DefaultModel, "chat model")
	return cmd
}

func (e *env) draft(cmd *cobra.Command) error {
	topic := strings.TrimSpace(e.v.GetString("topic"))
	if topic == "" {
		return errors.New("--topic is required")
	}
	n := e.v.GetInt("slide-count")
	if err := checkSlideCount(n); err != nil {
		return err
	}

	key := e.v.GetString("openai-api-key")
	if strings.TrimSpace(key) == "" {
		key = lookupEnv("OPENAI_API_KEY")
	}
	d, err := llm.NewPlanDrafter(e.log, llm.Config{
		APIKey:  key,
		BaseURL: e.v.GetString("openai-base-url"),
		Model:   e.v.GetString("model"),
	})
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return errors.New("no OpenAI API key: set --openai-api-key or OPENAI_API_KEY")
		}
		return err
	}

	planText, err := d.Draft(cmd.Context(), llm.DraftInput{
		Topic:          topic,
		AgeGroup:       e.v.GetString("age-group"),
		SlideCount:     n,
		AdditionalInfo: e.v.GetString("info"),
		Language:       e.v.GetString("language"),
	})
	if err != nil {
		return fmt.Errorf("draft plan: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(planText))
	return err
}
