// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/AleutianAI/docassoc/services/docs/config"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// app carries the state shared by every subcommand.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// isTTY reports whether stdout is a terminal.
	isTTY func() bool

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger

	configFile string
	logLevel   string
	logFormat  string
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		isTTY: func() bool {
			f, ok := stdout.(*os.File)
			if !ok {
				return false
			}
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		},
		v: viper.New(),
	}
}

// flagKeys maps command line flags to configuration keys. A flag only
// overrides the configuration when it is given explicitly.
var flagKeys = map[string]string{
	"document-exported": "document_exported",
	"sort-key-base":     "sort_key_base",
	"workers":           "workers",
	"strict-syntax":     "strict_syntax",
	"strict-tags":       "strict_tags",
	"max-file-size":     "max_file_size",
	"cache":             "cache.enabled",
	"cache-dir":         "cache.dir",
	"port":              "server.port",
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "docassoc",
		Short: "Associate JSDoc comments with the code they document",
		Long: `docassoc finds the JSDoc comments of JavaScript sources, decides which
syntax node each one documents and emits one doclet per comment.

Class constructors documented separately are folded into the class doclet,
@lends comments are dropped and, with --document-exported, undocumented
exports get an empty doclet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file (default: embedded defaults)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "Log format (json, text)")

	root.AddCommand(
		newExtractCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newCacheCmd(a),
	)
	return root
}

// addExtractionFlags registers the flags shared by the commands that run
// extractions.
func addExtractionFlags(fs *pflag.FlagSet) {
	fs.Bool("document-exported", false, "Only document exports; undocumented exports get an empty doclet")
	fs.String("sort-key-base", "", "Prefix of every sort key")
	fs.Int("workers", config.DefaultWorkers, "Files extracted in parallel")
	fs.Bool("strict-syntax", false, "Fail files with syntax errors")
	fs.Bool("strict-tags", false, "Fail files with malformed JSDoc tags")
	fs.Int("max-file-size", config.DefaultMaxFileSize, "Largest source file in bytes")
	fs.Bool("cache", false, "Cache results in badger")
	fs.String("cache-dir", "", "Cache directory (empty: in-memory)")
}

// setup configures logging and loads the configuration for cmd.
func (a *app) setup(cmd *cobra.Command) error {
	logger, err := newLogger(a.stderr, a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}

	cfg, err := loadConfig(cmd.Context(), a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// loadConfig layers environment variables and bound flags over the YAML
// configuration.
//
// Description:
//
//	The YAML file (or the embedded defaults) is loaded and validated by the
//	config package, then fed to viper so DOCASSOC_* variables and explicit
//	flags can override any key. The merged result is validated again.
func loadConfig(ctx context.Context, v *viper.Viper, path string) (*config.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var base *config.Config
	var err error
	if path != "" {
		base, err = config.LoadConfigFile(ctx, path)
	} else {
		base, err = config.DefaultConfig(ctx)
	}
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encoding base config: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("reading base config: %w", err)
	}

	v.SetEnvPrefix("DOCASSOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// newLogger builds the process logger.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q: want json or text", format)
	}
}
