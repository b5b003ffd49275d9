package main

import (
	"fmt"

	"github.com/rewired-gh/polymatch/internal/batch"
	"github.com/rewired-gh/polymatch/internal/entity"
	"github.com/rewired-gh/polymatch/internal/logger"
	"github.com/rewired-gh/polymatch/internal/matcher"
	"github.com/rewired-gh/polymatch/internal/semantic"
	"github.com/rewired-gh/polymatch/internal/storage"
	"github.com/rewired-gh/polymatch/internal/telegram"
	"github.com/rewired-gh/polymatch/internal/textgen"
)

func openStore() (*storage.Storage, error) {
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

func closeStore(store *storage.Storage) {
	if err := store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}

func newEngine() (*matcher.Engine, error) {
	if err := cfg.RequireTextGen(); err != nil {
		return nil, err
	}
	extractor, err := entity.NewExtractor(entity.DefaultVocabulary())
	if err != nil {
		return nil, fmt.Errorf("failed to build entity extractor: %w", err)
	}
	prefilter := matcher.NewPreFilter(extractor, semantic.NewClassifier(semantic.DefaultRules()))
	classifier := matcher.NewLLMClassifier(textgen.NewClient(cfg.TextGen))
	return matcher.NewEngine(prefilter, classifier, cfg.Matching.MaxCandidates), nil
}

func batchOptions() batch.Options {
	return batch.Options{
		MatchTTL:         cfg.Matching.MatchTTL,
		ClassifierDelay:  cfg.Matching.ClassifierDelay,
		TargetEventLimit: cfg.Matching.TargetEventLimit,
		TargetCategory:   cfg.Matching.TargetCategory,
	}
}

// newNotifier returns nil when Telegram is disabled.
func newNotifier() (*telegram.Client, error) {
	if !cfg.Telegram.Enabled {
		logger.Debug("Telegram notifications disabled")
		return nil, nil
	}
	client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
	}
	return client, nil
}
