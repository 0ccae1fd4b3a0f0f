package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/config"
	"github.com/creativecloner/cloner/version"
)

var (
	cfgFile     string
	projectName string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "cloner",
	Short: "Clone a video's creative structure onto a new subject",
	Long: `Cloner rebuilds an existing video around a new product or character.

The pipeline has four stages:
  - analyze:  break the source video into scenes with Gemini
  - prompts:  derive image and video prompts for the new subject
  - images:   generate a start image per scene via Kie.ai
  - videos:   animate each start image into a clip via Kie.ai

Scene state lives in Airtable; combine stitches the finished clips into
the final video with ffmpeg.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.cloner/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&projectName, "project-name", "", "project name grouping scenes in Airtable",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	}

	rootCmd.AddCommand(
		analyzeCmd,
		promptsCmd,
		logCmd,
		imagesCmd,
		videosCmd,
		combineCmd,
		verifyCmd,
		versionCmd,
	)
}

// loadConfig reads the configuration and applies root-level overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if projectName != "" {
		cfg.ProjectName = projectName
	}
	return cfg, nil
}

// requireCreds loads configuration and fails fast when any of the named
// credentials is absent, before any remote call is made.
func requireCreds(creds ...string) (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Require(creds...); err != nil {
		return nil, fmt.Errorf("%w\nadd the missing keys to .agent/.env, .env, or the config file", err)
	}
	return cfg, nil
}
