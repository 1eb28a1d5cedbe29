// Package cli implements the slidegen command line tool.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/slideforge-backend/internal/platform/logger"
)

const (
	envPrefix = "SLIDEGEN"
	minSlides = 1
	maxSlides = 50
)

// env is shared by the subcommands of one root command.
type env struct {
	v   *viper.Viper
	log *logger.Logger
}

// NewRootCmd builds a fresh command tree. Each call gets its own viper
// instance so tests can run commands side by side.
func NewRootCmd() *cobra.Command {
	e := &env{v: viper.New(), log: logger.Nop()}

	root := &cobra.Command{
		Use:   "slidegen",
		Short: "Turn lesson plans into generated slide decks",
		Long: `slidegen parses lesson plans into slide descriptions, drafts plans
with an LLM, and runs slide generation locally or against a content API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.init()
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default is ./slidegen.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log to stderr")
	_ = e.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = e.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(newParseCmd(e), newRunCmd(e), newDraftCmd(e))
	return root
}

// Execute runs the slidegen command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (e *env) init() error {
	if cfgFile := e.v.GetString("config"); cfgFile != "" {
		e.v.SetConfigFile(cfgFile)
	} else {
		e.v.SetConfigName("slidegen")
		e.v.SetConfigType("yaml")
		e.v.AddConfigPath(".")
	}

	e.v.SetDefault("slide-count", 6)
	e.v.SetDefault("output", "json")
	e.v.SetDefault("api-timeout", "90s")
	e.v.SetDefault("thumbnails", true)

	e.v.SetEnvPrefix(envPrefix)
	// SLIDEGEN_API_URL for api-url
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	e.v.AutomaticEnv()

	if err := e.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && e.v.GetString("config") != "" {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if e.v.GetBool("verbose") {
		log, err := logger.New("development")
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		e.log = log
	}
	return nil
}

// bind attaches the running command's flags to viper. Subcommands share
// key names, so binding happens per invocation rather than at build time.
func (e *env) bind(cmd *cobra.Command) error {
	return e.v.BindPFlags(cmd.Flags())
}

func lookupEnv(name string) string { return strings.TrimSpace(os.Getenv(name)) }

func checkSlideCount(n int) error {
	if n < minSlides || n > maxSlides {
		return fmt.Errorf("slide count must be between %d and %d, got %d", minSlides, maxSlides, n)
	}
	return nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("plan file required (-f)")
	}
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
