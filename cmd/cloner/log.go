package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/artifacts"
	"github.com/creativecloner/cloner/internal/config"
	"github.com/creativecloner/cloner/internal/store"
)

var (
	logPrompts string
	logTable   string
	logClear   bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Create scene records in Airtable from the prompts artifact",
	Long: `Log writes one Airtable record per scene, carrying the scene label
and both prompts. Existing records for the project are cleared first so
reruns start from a clean slate; pass --clear=false to append instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := requireCreds(config.CredAirtableToken, config.CredAirtableBase)
		if err != nil {
			return err
		}
		if logTable != "" {
			cfg.AirtableTable = logTable
		}

		set, err := artifacts.LoadPrompts(logPrompts)
		if err != nil {
			return err
		}

		client := store.NewClient(store.ClientConfig{
			Token:  cfg.AirtableToken,
			BaseID: cfg.AirtableBaseID,
			Table:  cfg.AirtableTable,
		})

		if logClear {
			n, err := client.DeleteAll(ctx, cfg.ProjectName)
			if err != nil {
				return fmt.Errorf("clear existing records: %w", err)
			}
			if n > 0 {
				fmt.Printf("Cleared %d existing record(s)\n", n)
			}
		}

		created := 0
		for _, p := range set.Prompts {
			label := store.SceneLabel(p.SceneNumber, p.SceneDescription)
			_, err := client.Create(ctx, store.Fields{
				ProjectName:      cfg.ProjectName,
				Scene:            label,
				StartImagePrompt: p.ImagePrompt,
				VideoPrompt:      p.VideoPrompt,
			})
			if err != nil {
				fmt.Printf("  failed: %s: %v\n", label, err)
				continue
			}
			fmt.Printf("  logged: %s\n", label)
			created++
		}

		fmt.Printf("\nLogged %d of %d scene(s) to table %q\n", created, len(set.Prompts), cfg.AirtableTable)
		fmt.Printf("Total duration: %s\n", set.Metadata.TotalDuration)
		if set.Metadata.MusicSound != "" {
			fmt.Printf("Music/sound: %s\n", set.Metadata.MusicSound)
		}
		return nil
	},
}

func init() {
	logCmd.Flags().StringVarP(
		&logPrompts, "prompts", "p", "outputs/prompts.yaml", "path to the prompts artifact",
	)
	logCmd.Flags().StringVarP(
		&logTable, "table", "t", "", "Airtable table name (default: Scenes)",
	)
	logCmd.Flags().BoolVar(
		&logClear, "clear", true, "clear the project's existing records first",
	)
}
