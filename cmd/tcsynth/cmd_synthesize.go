package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tcsynth/internal/config"
	"tcsynth/internal/dashboard"
	"tcsynth/internal/llmgateway"
	"tcsynth/internal/model"
	"tcsynth/internal/platform"
	"tcsynth/internal/retriever"
	"tcsynth/internal/store"
	"tcsynth/internal/supervisor"
)

var (
	targetCount int
	resumeFlag  bool
	forceUI     bool
	watchFlag   bool
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <bundle.json>",
	Short: "Synthesize a test-case suite for one problem bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  runSynthesize,
}

func init() {
	synthesizeCmd.Flags().IntVar(&targetCount, "target", 0, "Desired suite size (overrides the bundle's target_count when > 0)")
	synthesizeCmd.Flags().BoolVar(&resumeFlag, "resume", false, "Resume from the last checkpoint for this bundle, if any")
	synthesizeCmd.Flags().BoolVar(&forceUI, "ui", false, "Force the session dashboard on, even when stdout is not a terminal")
	synthesizeCmd.Flags().BoolVar(&watchFlag, "watch", false, "Re-run synthesis whenever the bundle file changes, for local iteration on a problem")
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	if watchFlag {
		return watchAndSynthesize(cmd, args[0])
	}
	return runSynthesizeOnce(cmd, args[0])
}

// watchAndSynthesize re-invokes runSynthesizeOnce every time bundlePath is
// written, debouncing rapid successive saves the way an editor's
// save-on-every-keystroke would otherwise trigger.
func watchAndSynthesize(cmd *cobra.Command, bundlePath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(bundlePath); err != nil {
		return fmt.Errorf("watch: add %s: %w", bundlePath, err)
	}

	if err := runSynthesizeOnce(cmd, bundlePath); err != nil {
		logger.Warn("synthesis run failed, continuing to watch", zap.Error(err))
	}

	const debounce = 300 * time.Millisecond
	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		case <-fire:
			fmt.Fprintf(os.Stderr, "--- %s changed, re-synthesizing ---\n", bundlePath)
			if err := runSynthesizeOnce(cmd, bundlePath); err != nil {
				logger.Warn("synthesis run failed, continuing to watch", zap.Error(err))
			}
		}
	}
}

func runSynthesizeOnce(cmd *cobra.Command, bundlePath string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	bundle, err := loadBundle(bundlePath)
	if err != nil {
		return err
	}
	if targetCount > 0 {
		bundle.TargetCount = targetCount
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	gateway, err := llmgateway.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build llm gateway: %w", err)
	}

	tc, err := platform.Detect(cfg.Execution.CompilerPath, nil)
	if err != nil {
		logger.Warn("native toolchain not detected; synthesis will fail at the first compile step", zap.Error(err))
		tc = nil
	}

	// Only wire the store in when --resume was asked for: handing the
	// Supervisor a Store also gives it an existing checkpoint to resume
	// from, which a plain `synthesize` invocation (no --resume) should
	// not silently pick up.
	var st *store.Store
	if resumeFlag && cfg.Store.DatabasePath != "" {
		st, err = store.Open(cfg.Store.DatabasePath)
		if err != nil {
			logger.Warn("suite store unavailable, proceeding without checkpointing", zap.Error(err))
		} else {
			defer st.Close()
		}
	}

	var rtr *retriever.Retriever
	if cfg.Retriever.Enabled {
		var embedder retriever.Embedder
		if cfg.LLM.APIKey != "" {
			if e, err := llmgateway.NewEmbedder(ctx, cfg.LLM.APIKey, cfg.Retriever.EmbedModel); err == nil {
				embedder = e
			} else {
				logger.Warn("embedder unavailable, corpus retrieval disabled", zap.Error(err))
			}
		}
		rtr, err = retriever.Open(cfg.Retriever.IndexPath, embedder)
		if err != nil {
			logger.Warn("corpus retriever unavailable", zap.Error(err))
			rtr = nil
		} else {
			defer rtr.Close()
		}
	}

	sup := supervisor.New(cfg, gateway, tc, st, rtr)

	useUI := forceUI || (!noUI && isatty.IsTerminal(os.Stdout.Fd()))
	var events chan model.IterationEvent
	if useUI {
		events = make(chan model.IterationEvent, 32)
		sup.Events = events
	}

	opts := supervisor.DefaultOptions()

	type outcome struct {
		suite model.Suite
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		suite, err := sup.SynthesizeSuite(ctx, bundle, opts)
		if events != nil {
			close(events)
		}
		done <- outcome{suite: suite, err: err}
	}()

	if useUI {
		if err := dashboard.Run(events); err != nil {
			logger.Warn("dashboard exited with an error", zap.Error(err))
		}
	}

	result := <-done
	if result.err != nil {
		return fmt.Errorf("synthesize: %w", result.err)
	}

	return printSuite(result.suite)
}

func loadBundle(path string) (model.ProblemBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ProblemBundle{}, fmt.Errorf("read bundle: %w", err)
	}
	var bundle model.ProblemBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return model.ProblemBundle{}, fmt.Errorf("parse bundle: %w", err)
	}
	return bundle, nil
}

func printSuite(suite model.Suite) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(suite)
}

func loadConfigQuiet() (*config.Config, error) {
	return config.Load(cfgPath)
}
