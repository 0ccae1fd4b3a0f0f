package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/config"
	"github.com/creativecloner/cloner/internal/pipeline"
	"github.com/creativecloner/cloner/internal/providers"
	"github.com/creativecloner/cloner/internal/store"
)

var (
	videosModel        string
	videosAspectRatio  string
	videosDuration     string
	videosKeepMark     bool
	videosSkipDownload bool
	videosDryRun       bool
	videosSkipApproval bool
)

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Animate each scene's start image into a clip",
	Long: `Videos submits each scene's video prompt plus its start image to
Kie.ai and attaches the finished clip to the scene record. Only scenes
with a start image and no clip yet are processed. Clips are also
downloaded into the output directory unless --skip-download is set.

Generation takes 2-4 minutes per clip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := requireCreds(config.CredKie, config.CredAirtableToken, config.CredAirtableBase)
		if err != nil {
			return err
		}

		model, err := providers.VideoModel(videosModel)
		if err != nil {
			return err
		}

		client := store.NewClient(store.ClientConfig{
			Token:  cfg.AirtableToken,
			BaseID: cfg.AirtableBaseID,
			Table:  cfg.AirtableTable,
		})
		kie := providers.NewKieClient(providers.KieConfig{APIKey: cfg.KieAPIKey})

		op := &pipeline.VideoOp{
			Kie:   kie,
			Store: client,
			Model: model,
			Options: pipeline.VideoOptions{
				AspectRatio:     videosAspectRatio,
				Frames:          videosDuration,
				RemoveWatermark: !videosKeepMark,
				SkipDownload:    videosSkipDownload,
				OutputDir:       cfg.OutputDir,
			},
			Logger: slog.Default(),
		}

		runner := &pipeline.Runner{
			Store: client,
			Guard: &pipeline.CostGuard{
				In:           os.Stdin,
				Out:          os.Stdout,
				SkipApproval: videosSkipApproval,
			},
			Project: cfg.ProjectName,
			DryRun:  videosDryRun,
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

func init() {
	videosCmd.Flags().StringVarP(
		&videosModel, "model", "m", "sora-2", "video model",
	)
	videosCmd.Flags().StringVar(
		&videosAspectRatio, "aspect-ratio", "", "video aspect ratio: portrait or landscape",
	)
	videosCmd.Flags().StringVar(
		&videosDuration, "duration", "10", "clip duration in seconds: 10 or 15",
	)
	videosCmd.Flags().BoolVar(
		&videosKeepMark, "keep-watermark", false, "keep the provider watermark on generated clips",
	)
	videosCmd.Flags().BoolVar(
		&videosSkipDownload, "skip-download", false, "only attach clips to Airtable, skip local download",
	)
	videosCmd.Flags().BoolVar(
		&videosDryRun, "dry-run", false, "show what would be generated without calling the API",
	)
	videosCmd.Flags().BoolVar(
		&videosSkipApproval, "skip-approval", false, "skip the cost approval prompt",
	)
}
