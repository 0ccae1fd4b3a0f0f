package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/config"
	"github.com/creativecloner/cloner/internal/pipeline"
	"github.com/creativecloner/cloner/internal/providers"
	"github.com/creativecloner/cloner/internal/store"
)

var (
	imagesModel        string
	imagesReference    string
	imagesAspectRatio  string
	imagesResolution   string
	imagesDryRun       bool
	imagesSkipApproval bool
)

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Generate a start image for each scene",
	Long: `Images submits each scene's image prompt to Kie.ai and attaches
the result to the scene record. Scenes that already have a start image
are skipped, so an interrupted batch can simply be re-run.

Models:
  z-image          $0.004/image (recommended for testing)
  nano-banana-pro  $0.09/image  (production quality)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := requireCreds(config.CredKie, config.CredAirtableToken, config.CredAirtableBase)
		if err != nil {
			return err
		}

		model, err := providers.ImageModel(imagesModel)
		if err != nil {
			return err
		}

		reference := imagesReference
		if reference == "" {
			reference = autoDetectReference(cfg.InputDir)
			if reference != "" {
				fmt.Printf("Auto-detected reference image: %s\n", reference)
			}
		}

		client := store.NewClient(store.ClientConfig{
			Token:  cfg.AirtableToken,
			BaseID: cfg.AirtableBaseID,
			Table:  cfg.AirtableTable,
		})
		kie := providers.NewKieClient(providers.KieConfig{APIKey: cfg.KieAPIKey})

		op := &pipeline.ImageOp{
			Kie:   kie,
			Store: client,
			Model: model,
			Options: pipeline.ImageOptions{
				AspectRatio:    imagesAspectRatio,
				Resolution:     imagesResolution,
				ReferenceImage: reference,
			},
			Logger: slog.Default(),
		}

		runner := &pipeline.Runner{
			Store: client,
			Guard: &pipeline.CostGuard{
				In:           os.Stdin,
				Out:          os.Stdout,
				SkipApproval: imagesSkipApproval,
			},
			Project: cfg.ProjectName,
			DryRun:  imagesDryRun,
			Logger:  slog.Default(),
		}

		summary, err := runner.Run(ctx, op)
		if err != nil {
			return err
		}
		summary.Print(os.Stdout)
		return nil
	},
}

// autoDetectReference picks the first still image in the inputs
// directory, matching the original single-reference workflow.
func autoDetectReference(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			return filepath.Join(dir, entry.Name())
		}
	}
	return ""
}

func init() {
	imagesCmd.Flags().StringVarP(
		&imagesModel, "model", "m", "z-image", "image model: z-image or nano-banana-pro",
	)
	imagesCmd.Flags().StringVarP(
		&imagesReference, "reference-image", "r", "", "reference image path (default: first image in inputs/)",
	)
	imagesCmd.Flags().StringVar(
		&imagesAspectRatio, "aspect-ratio", "", "aspect ratio for generated images (default: model default)",
	)
	imagesCmd.Flags().StringVar(
		&imagesResolution, "resolution", "1K", "image resolution: 1K, 2K, or 4K",
	)
	imagesCmd.Flags().BoolVar(
		&imagesDryRun, "dry-run", false, "show what would be generated without calling the API",
	)
	imagesCmd.Flags().BoolVar(
		&imagesSkipApproval, "skip-approval", false, "skip the cost approval prompt",
	)
}
