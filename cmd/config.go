package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/monoize-go/monoize/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the LLM proxy's provider, tenant, and runtime configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the current configuration for structural errors.`,
	RunE:  runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate example YAML configuration",
	Long:  `Generate an example YAML configuration file with sample providers and a tenant.`,
	RunE:  runConfigGenerate,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configGenerateCmd)

	configGenerateCmd.Flags().BoolP("force", "f", false, "overwrite existing configuration file")
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		color.Yellow("No configuration found. Run 'monoize config generate' to create one.")
		return nil
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	configType := "JSON"
	if cfgMgr.HasYAML() {
		configType = "YAML"
	}

	color.Blue("Current Configuration:")
	fmt.Printf("  %-15s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-15s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-15s: %s\n", "Config Path", cfgMgr.GetPath())
	fmt.Printf("  %-15s: %s\n", "Format", configType)

	fmt.Println("\nProviders:")
	for _, provider := range cfg.Providers {
		fmt.Printf("  - %s (%s), priority %d, %d channel(s)\n", provider.ID, provider.ProviderType, provider.Priority, len(provider.Channels))
		for _, ch := range provider.Channels {
			fmt.Printf("      channel %s: %s (key %s)\n", ch.ID, ch.BaseURL, maskString(ch.APIKey))
		}
		if len(provider.Models) > 0 {
			models := make([]string, 0, len(provider.Models))
			for name := range provider.Models {
				models = append(models, name)
			}
			fmt.Printf("      models: %s\n", strings.Join(models, ", "))
		}
	}

	fmt.Println("\nTenants:")
	for _, t := range cfg.Tenants {
		fmt.Printf("  - %s (key %s)\n", t.TenantID, maskString(t.APIKey))
	}

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if !cfgMgr.Exists() {
		return fmt.Errorf("no configuration found")
	}

	cfg, err := cfgMgr.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		color.Red("Configuration validation failed:")
		fmt.Printf("  - %s\n", err)
		return fmt.Errorf("configuration validation failed")
	}

	color.Green("Configuration is valid!")
	return nil
}

func runConfigGenerate(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if cfgMgr.Exists() && !force {
		configType := "JSON"
		if cfgMgr.HasYAML() {
			configType = "YAML"
		}

		color.Yellow("Configuration file already exists (%s format): %s", configType, cfgMgr.GetPath())
		color.Cyan("Use --force to overwrite, or 'monoize config show' to view current config")
		return nil
	}

	if err := cfgMgr.CreateExampleYAML(); err != nil {
		return fmt.Errorf("failed to create example configuration: %w", err)
	}

	color.Green("Example YAML configuration created: %s", cfgMgr.GetYAMLPath())
	color.Cyan("\nNext steps:")
	fmt.Println("1. Edit the configuration file to add your provider channels and API keys")
	fmt.Println("2. Add one or more tenants under `tenants:` to issue bearer keys")
	fmt.Println("3. Run 'monoize config validate' to check your configuration")
	fmt.Println("4. Start the proxy with 'monoize start'")

	color.Yellow("\nNote: the example includes two providers, one of each dialect family:")
	fmt.Println("- Anthropic Messages")
	fmt.Println("- OpenAI Responses")
	fmt.Println(config.DefaultYAMLFilename + " also accepts Chat Completions, Gemini, and Grok provider_type entries.")

	return nil
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}

	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}

	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
