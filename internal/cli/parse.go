package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/slideforge-backend/internal/modules/slides/plan"
)

func newParseCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a lesson plan into slide descriptions",
		Long: `Parse reads a lesson plan (markdown, plain text or JSON) and prints exactly
slide-count slide descriptions together with their validation result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.bind(cmd); err != nil {
				return err
			}
			text, err := readInput(cmd, e.v.GetString("file"))
			if err != nil {
				return err
			}
			n := e.v.GetInt("slide-count")
			if err := checkSlideCount(n); err != nil {
				return err
			}
			out := plan.NewParser(e.log).ParseDetailed(text, n)
			return writeOutput(cmd.OutOrStdout(), e.v.GetString("output"), out)
		},
	}
	cmd.Flags().StringP("file", "f", "", "plan file, or - for stdin")
	cmd.Flags().IntP("slide-count", "n", 6, "number of slides")
	cmd.Flags().StringP("output", "o", "json", "output format: json or yaml")
	return cmd
}
