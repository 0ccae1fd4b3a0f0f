package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/artifacts"
	"github.com/creativecloner/cloner/internal/config"
	"github.com/creativecloner/cloner/internal/providers"
)

var (
	promptsAnalysis string
	promptsOutput   string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts <reference-image>",
	Short: "Derive per-scene prompts for the new subject",
	Long: `Prompts describes the reference image with Gemini, then combines
that description with the scene analysis to produce an image prompt and
a video prompt per scene. The environment, lighting, and camera work of
the original scenes are preserved; only the subject changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		imagePath := args[0]

		if _, err := os.Stat(imagePath); err != nil {
			return fmt.Errorf("reference image: %w", err)
		}

		cfg, err := requireCreds(config.CredGemini)
		if err != nil {
			return err
		}

		analysis, err := artifacts.LoadAnalysis(promptsAnalysis)
		if err != nil {
			return err
		}
		if len(analysis.VideoAnalysis.Scenes) == 0 {
			return fmt.Errorf("analysis %s has no structured scenes; re-run analyze", promptsAnalysis)
		}

		gemini := providers.NewGeminiClient(providers.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
		})

		file, err := gemini.UploadFile(ctx, imagePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := gemini.DeleteFile(cmd.Context(), file); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not delete uploaded file: %v\n", err)
			}
		}()

		file, err = gemini.WaitForFile(ctx, file)
		if err != nil {
			return err
		}

		subject, err := gemini.GenerateContent(ctx, file, artifacts.DescribePrompt)
		if err != nil {
			return err
		}
		fmt.Printf("Reference subject: %s\n", subject)

		set := artifacts.BuildPrompts(analysis, subject)
		if err := artifacts.SavePrompts(promptsOutput, set); err != nil {
			return err
		}

		fmt.Printf("Created %d prompt pair(s), saved to %s\n", len(set.Prompts), promptsOutput)
		return nil
	},
}

func init() {
	promptsCmd.Flags().StringVarP(
		&promptsAnalysis, "analysis", "a", "outputs/analysis.yaml", "path to the analysis artifact",
	)
	promptsCmd.Flags().StringVarP(
		&promptsOutput, "output", "o", "outputs/prompts.yaml", "output path for the prompts artifact",
	)
}
