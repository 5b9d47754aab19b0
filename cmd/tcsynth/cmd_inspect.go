package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"tcsynth/internal/httpapi"
	"tcsynth/internal/llmgateway"
	"tcsynth/internal/store"
)

var showChecker bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <bundle.json>",
	Short: "Render a problem bundle's statement and show any saved suite",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&showChecker, "checker", false, "Also resolve and print the grading-time checker (C12)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	bundle, err := loadBundle(args[0])
	if err != nil {
		return err
	}

	rendered, err := glamour.Render(bundle.Statement, "dark")
	if err != nil {
		// Statements are plain prose far more often than they are
		// structured markdown; fall back to printing it verbatim rather
		// than failing the whole command over a rendering quirk.
		rendered = bundle.Statement + "\n"
	}
	fmt.Print(rendered)

	fmt.Printf("oracle language: %s\n", bundle.OracleLang)
	fmt.Printf("worked examples: %d\n", len(bundle.Examples))
	fmt.Printf("target count: %d\n", bundle.TargetCount)

	cfg, cfgErr := loadConfigQuiet()
	if cfgErr == nil && cfg.Store.DatabasePath != "" {
		if st, err := store.Open(cfg.Store.DatabasePath); err == nil {
			defer st.Close()
			hash := store.BundleHash(bundle)
			if suite, ok := st.LoadSuite(hash); ok {
				fmt.Printf("\nsaved suite: %d case(s), %d iteration(s), partial=%v\n",
					len(suite.Cases), suite.Iterations, suite.Partial)
			}
		}
	}

	if showChecker {
		if cfgErr != nil {
			return fmt.Errorf("load config: %w", cfgErr)
		}
		gateway, err := llmgateway.NewFromConfig(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("build llm gateway: %w", err)
		}
		resp := httpapi.ResolveChecker(cmd.Context(), gateway, bundle)
		if !resp.NeedsCustom {
			fmt.Println("\nchecker: default whole-word-comparison checker suffices")
		} else {
			fmt.Printf("\nchecker: custom checker needed (%s)\n\n%s\n", resp.Reason, resp.Source)
		}
	}

	return nil
}
