package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/creativecloner/cloner/internal/assemble"
	"github.com/creativecloner/cloner/internal/config"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check credentials, directories, and tools before running",
	Long: `Verify runs the pre-flight checks every stage depends on: the API
credentials are present, the input and output directories exist, and
ffmpeg is available for the combine stage. It makes no remote calls.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		failures := 0
		check := func(name string, err error) {
			if err != nil {
				fmt.Printf("  FAIL %s: %v\n", name, err)
				failures++
				return
			}
			fmt.Printf("  ok   %s\n", name)
		}

		fmt.Println("Credentials:")
		for _, cred := range []string{
			config.CredGemini,
			config.CredKie,
			config.CredAirtableToken,
			config.CredAirtableBase,
		} {
			check(cred, cfg.Require(cred))
		}

		fmt.Println("Directories:")
		check(cfg.InputDir, dirExists(cfg.InputDir))
		check(cfg.OutputDir, dirExists(cfg.OutputDir))

		fmt.Println("Tools:")
		check("ffmpeg", assemble.CheckFFmpeg())

		fmt.Printf("\nProject: %s\n", cfg.ProjectName)
		fmt.Printf("Airtable table: %s\n", cfg.AirtableTable)

		if failures > 0 {
			return fmt.Errorf("%d check(s) failed", failures)
		}
		fmt.Println("\nAll checks passed")
		return nil
	},
}

func dirExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("not a directory")
	}
	return nil
}
