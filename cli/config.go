package cli

// This file contains the optional config file that supplies defaults
// for the run and list flags. Flags given on the command line always
// win over file values.

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".soaker.yaml"

type fileConfig struct {
	Leniency   int    `yaml:"leniency"`
	Verbosity  int    `yaml:"verbosity"`
	Tag        string `yaml:"tag"`
	Results    string `yaml:"results"`
	Video      bool   `yaml:"video"`
	DumpImages bool   `yaml:"dump_images"`
	Once       bool   `yaml:"once"`
}

// loadConfig reads the config file at path. A missing file is not an
// error unless the operator named it explicitly.
func loadConfig(path string, explicit bool) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// settings are the effective run options after merging flags over the
// config file.
type settings struct {
	Leniency   int
	Verbosity  int
	Tag        string
	Results    string
	Video      bool
	DumpImages bool
	Once       bool
}

func (a *App) loadSettings(ctx *cli.Context) (settings, error) {
	cfg, err := loadConfig(ctx.String("config"), ctx.IsSet("config"))
	if err != nil {
		return settings{}, err
	}

	s := settings{
		Leniency:   cfg.Leniency,
		Verbosity:  cfg.Verbosity,
		Tag:        cfg.Tag,
		Results:    cfg.Results,
		Video:      cfg.Video,
		DumpImages: cfg.DumpImages,
		Once:       cfg.Once,
	}
	if n := ctx.Count("lenient"); n > 0 {
		s.Leniency = n
	}
	if n := ctx.Count("live"); n > 0 {
		s.Verbosity = n
	}
	if ctx.IsSet("tag") {
		s.Tag = ctx.String("tag")
	}
	if ctx.IsSet("results") || s.Results == "" {
		s.Results = ctx.String("results")
	}
	if ctx.IsSet("video") {
		s.Video = ctx.Bool("video")
	}
	if ctx.IsSet("dump-images") {
		s.DumpImages = ctx.Bool("dump-images")
	}
	if ctx.IsSet("once") {
		s.Once = ctx.Bool("once")
	}
	return s, nil
}
