package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"clipmerge/internal/config"
	fileutil "clipmerge/internal/file"
	"clipmerge/internal/merge"
	"clipmerge/internal/tools"
)

const lockName = ".clipmerge.lock"

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		path := "config.yml"
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config %s: %w", path, err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) locator() tools.Locator {
	return tools.Default(c.config.ToolOverrides(), c.config.ToolsDir)
}

func (c *commandContext) pipeline() *merge.Pipeline {
	cfg := c.config
	return merge.New(merge.Options{
		Locator:          c.locator(),
		TempDir:          cfg.TempDir,
		TargetHeight:     cfg.TargetHeight,
		AudioStepPercent: cfg.AudioStepPercent,
		KeepAwake:        cfg.KeepAwakeCommand,
		Debug:            cfg.Debug,
		Logger:           &log.Logger,
	})
}

// lockDataDir takes the single-instance lock on the data directory.
func (c *commandContext) lockDataDir() (func(), error) {
	dir := c.config.DataDir
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	unlock, err := fileutil.LockDir(dir, lockName)
	if errors.Is(err, fileutil.ErrDirLocked) {
		return nil, fmt.Errorf("another clipmerge instance is using %s", dir)
	}
	if err != nil {
		return nil, err
	}
	return func() {
		if err := unlock(); err != nil {
			log.Warn().Err(err).Msg("release data dir lock")
		}
	}, nil
}
