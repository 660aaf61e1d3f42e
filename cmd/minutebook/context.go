package main

import (
	"log/slog"
	"strings"
	"sync"

	"minutebook/internal/config"
	"minutebook/internal/detect"
	"minutebook/internal/embeddings"
	"minutebook/internal/extract"
	"minutebook/internal/logging"
	"minutebook/internal/pipeline"
	"minutebook/internal/portal"
	"minutebook/internal/store"
	"minutebook/internal/video"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg)
}

func (c *commandContext) newDetector(cfg *config.Config, st *store.Store, logger *slog.Logger) *detect.Detector {
	return detect.NewDetector(st, portal.NewClient(cfg.Portal), video.NewClient(cfg.Video), logger)
}

func (c *commandContext) buildRunner(cfg *config.Config, st *store.Store, logger *slog.Logger, metrics *pipeline.Metrics, opts pipeline.Options) (*pipeline.Runner, error) {
	portalClient := portal.NewClient(cfg.Portal)
	videoClient := video.NewClient(cfg.Video)
	return pipeline.NewRunner(pipeline.Deps{
		Config:      cfg,
		Store:       st,
		Logger:      logger,
		Portal:      portalClient,
		Video:       videoClient,
		Extractor:   extract.NewExtractor(cfg.Extraction),
		Transcriber: extract.NewTranscriber(cfg.Transcription),
		Embedder:    embeddings.NewClient(cfg.Embeddings),
		Detector:    detect.NewDetector(st, portalClient, videoClient, logger),
		Metrics:     metrics,
	}, opts)
}
