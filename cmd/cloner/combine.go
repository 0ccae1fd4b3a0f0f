package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/assemble"
)

var (
	combineInputDir string
	combineOutput   string
	combineMusic    string
	combineFade     int
	combineReEncode bool
	combineDryRun   bool
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Stitch downloaded scene clips into the final video",
	Long: `Combine concatenates the scene clips in the input directory in
scene order using ffmpeg. Stream copy is used by default; if the clips'
timestamps do not line up, the concat is retried with a re-encode.
With --music, the track is mixed underneath with a fade-out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := assemble.CheckFFmpeg(); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		inputDir := combineInputDir
		if inputDir == "" {
			inputDir = cfg.OutputDir
		}
		output := combineOutput
		if output == "" {
			output = filepath.Join(cfg.OutputDir, "final_video.mp4")
		}

		clips, err := assemble.FindClips(inputDir, "")
		if err != nil {
			return err
		}
		if len(clips) == 0 {
			return fmt.Errorf("no clips found in %s", inputDir)
		}
		if len(clips) == 1 {
			fmt.Printf("Only one clip found, nothing to combine: %s\n", clips[0].Path)
			return nil
		}

		fmt.Printf("Found %d clip(s):\n", len(clips))
		for i, clip := range clips {
			fmt.Printf("  %d. %s\n", i+1, filepath.Base(clip.Path))
		}

		if combineDryRun {
			fmt.Printf("\nDry run: output would be %s\n", output)
			if combineMusic != "" {
				fmt.Printf("Background music: %s (fade-out %ds)\n", combineMusic, combineFade)
			}
			return nil
		}

		err = assemble.Combine(ctx, clips, assemble.Options{
			Output:       output,
			Music:        combineMusic,
			FadeDuration: combineFade,
			ReEncode:     combineReEncode,
			Logger:       slog.Default(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("\nFinal video: %s\n", output)
		return nil
	},
}

func init() {
	combineCmd.Flags().StringVar(
		&combineInputDir, "input-dir", "", "directory containing scene clips (default: output dir)",
	)
	combineCmd.Flags().StringVarP(
		&combineOutput, "output", "o", "", "output path (default: <output dir>/final_video.mp4)",
	)
	combineCmd.Flags().StringVar(
		&combineMusic, "music", "", "background music file to mix in",
	)
	combineCmd.Flags().IntVar(
		&combineFade, "fade-duration", 2, "music fade-out duration in seconds",
	)
	combineCmd.Flags().BoolVar(
		&combineReEncode, "re-encode", false, "re-encode instead of stream copy",
	)
	combineCmd.Flags().BoolVar(
		&combineDryRun, "dry-run", false, "list the clips without combining",
	)
}
