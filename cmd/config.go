package cmd

import (
	"fmt"
	"sort"

	"github.com/biromiro/swgnn/internal/config"
	"github.com/biromiro/swgnn/internal/models"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect run configurations",
	Long:  "Validate and display YAML run configurations",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <config-file>",
	Short: "Validate a run configuration",
	Long:  "Load a run configuration and report the first validation error, if any",
	Args:  cobra.ExactArgs(1),
	RunE:  configValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show <config-file>",
	Short: "Show a run configuration",
	Long:  "Load a run configuration and print its effective values",
	Args:  cobra.ExactArgs(1),
	RunE:  configShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func configValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", args[0])
	return nil
}

func configShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}

	params := models.ConfigParams(cfg)
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%s = %s\n", key, params[key])
	}
	fmt.Printf("run_dir = %s\n", cfg.RunDir())
	return nil
}
