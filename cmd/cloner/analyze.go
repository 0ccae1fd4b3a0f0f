package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/artifacts"
	"github.com/creativecloner/cloner/internal/config"
	"github.com/creativecloner/cloner/internal/providers"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video>",
	Short: "Break a source video into scenes with Gemini",
	Long: `Analyze uploads the source video to Gemini and asks for a
scene-by-scene breakdown covering subject, environment, action,
lighting, camera work, and timing. The result is written as a YAML
artifact that the prompts stage consumes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		videoPath := args[0]

		if _, err := os.Stat(videoPath); err != nil {
			return fmt.Errorf("video file: %w", err)
		}

		cfg, err := requireCreds(config.CredGemini)
		if err != nil {
			return err
		}

		gemini := providers.NewGeminiClient(providers.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
		})

		file, err := gemini.UploadFile(ctx, videoPath)
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

		reply, err := gemini.GenerateContent(ctx, file, artifacts.AnalysisPrompt)
		if err != nil {
			return err
		}

		yamlText := artifacts.ExtractYAML(reply)
		if err := artifacts.SaveAnalysis(analyzeOutput, yamlText); err != nil {
			return err
		}

		fmt.Printf("Analysis saved to %s\n", analyzeOutput)
		fmt.Println(yamlText)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(
		&analyzeOutput, "output", "o", "outputs/analysis.yaml", "output path for the analysis artifact",
	)
}
