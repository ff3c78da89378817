package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"justdial-scraper/sources"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the input URL file with a commented example",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		err = sources.WriteTemplate(cfg.InputFile)
		if errors.Is(err, os.ErrExist) {
			fmt.Println("Input file already exists at:")
			fmt.Println("  ", cfg.InputFile)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to write input template: %w", err)
		}

		fmt.Println("Input file created at:", cfg.InputFile)
		fmt.Println("Add one Justdial search URL per line, then run `justdial-scraper`.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
