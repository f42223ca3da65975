package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wudi/pdfengine/config"
	"github.com/wudi/pdfengine/engine"
	"github.com/wudi/pdfengine/observability"
)

var (
	cfgFile      string
	outputFormat string
	password     string

	cfgManager *config.Manager
)

var rootCmd = &cobra.Command{
	Use:   "pdfengine",
	Short: "Inspect PDF documents through the page engine",
	Long: `pdfengine opens a PDF document and reports what a viewer needs from it:
page geometry, links and comments, the table of contents, page labels,
text and rendered pages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "yaml" && outputFormat != "json" {
			return fmt.Errorf("unknown output format %q", outputFormat)
		}
		m, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgManager = m
		observability.SetDefault(m.Get().NewLogger(os.Stderr))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pdfengine.yaml or ~/.pdfengine/pdfengine.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml or json")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "password for encrypted documents")

	rootCmd.AddCommand(infoCmd, tocCmd, labelsCmd, elementsCmd, textCmd, fontsCmd, destCmd, renderCmd, watchCmd, initConfigCmd)
}

// engineOptions converts the loaded configuration, adding the password
// flag when set.
func engineOptions(cfg *config.Config) ([]engine.Option, error) {
	opts, err := cfg.EngineOptions(observability.Default())
	if err != nil {
		return nil, err
	}
	if password != "" {
		opts = append(opts, engine.WithPassword(password))
	}
	return opts, nil
}

func openDocument(cmd *cobra.Command, path string) (*engine.Engine, error) {
	opts, err := engineOptions(cfgManager.Get())
	if err != nil {
		return nil, err
	}
	return engine.LoadFile(cmd.Context(), path, opts...)
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config <path>",
	Short: "Write the default configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		return config.WriteDefault(args[0])
	},
}
