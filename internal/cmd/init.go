package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"costsync/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize costsync configuration",
	Long:  "Create an example configuration file for costsync",
	RunE:  runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	configPath := cfgFile
	if configPath == "" {
		var err error
		configPath, err = config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("⚠️  Configuration file already exists at: %s\n", configPath)
		fmt.Print("Do you want to overwrite it? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response) // Ignore error for user input
		if response != "y" && response != "Y" {
			fmt.Println("Configuration initialization cancelled.")
			return nil
		}
	}

	exampleConfig := config.DefaultConfig()
	exampleConfig.GitHub.Enterprise = "your-enterprise"
	exampleConfig.CostCenters.Teams.Organizations = []string{"your-org"}
	exampleConfig.CostCenters.Exceptions = config.ExceptionsConfig{
		DefaultCostCenter:   "Copilot Users",
		ExceptionCostCenter: "Copilot Exceptions",
		ExceptionUsers:      []string{"octocat"},
	}

	if err := exampleConfig.Save(configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("✅ Configuration file created at: %s\n", configPath)
	fmt.Println("📝 Please edit the file to match your enterprise, then set GITHUB_TOKEN.")

	return nil
}
