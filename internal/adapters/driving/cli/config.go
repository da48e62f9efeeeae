package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/hrwatch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hrwatch/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create the configuration file",
	Long: `hrwatch reads a TOML file, ~/.hrwatch/config.toml unless --config is
given. Environment variables override the OAuth client and API base URL:

  ` + file.EnvClientID + `
  ` + file.EnvClientSecret + `
  ` + file.EnvAPIBase + `

A running 'hrwatch serve' picks up valid edits without a restart.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file for errors",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return file.DefaultPath()
}

func loadConfig() (*file.Store, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return file.NewStore(path, logger.Named("config"))
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := store.Marshal()
	if err != nil {
		return err
	}
	cmd.Printf("# %s\n%s", store.Path(), data)
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err := file.WriteDefault(path); err != nil {
		return err
	}
	cmd.Printf("Wrote %s\n", path)
	cmd.Println("Set [oauth] client_id and client_secret, then run 'hrwatch auth login'.")
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cmd.Println(path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	store, err := loadConfig()
	if err != nil {
		return err
	}
	cmd.Printf("%s is valid\n", store.Path())
	return nil
}
