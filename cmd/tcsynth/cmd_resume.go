package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tcsynth/internal/config"
	"tcsynth/internal/store"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <bundle.json>",
	Short: "Show the last checkpointed loop state for a problem bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	bundle, err := loadBundle(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("open suite store: %w", err)
	}
	defer st.Close()

	hash := store.BundleHash(bundle)
	state, ok := st.Resume(hash)
	if !ok {
		fmt.Printf("no checkpoint found for bundle %s\n", hash)
		return nil
	}

	fmt.Printf("bundle %s: iteration %d, elapsed %s, accumulated %d case(s)\n",
		hash, state.Iteration, state.Elapsed(), len(state.Accumulated))
	return nil
}
