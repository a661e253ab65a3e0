// Package service implements file-backed check-config management
package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	perr "cyberchecker/internal/platform/errors"
	"cyberchecker/internal/platform/logger"
	"cyberchecker/internal/platform/net/http/bind"
	"cyberchecker/internal/services/configs/domain"
)

// Service manages JSON check configs in a directory, one file per config
type Service struct {
	dir string
	log logger.Logger
}

// Config holds service settings
type Config struct {
	Dir string
}

// New constructs the service and ensures the config directory exists
func New(cfg Config, log logger.Logger) (*Service, error) {
	if cfg.Dir == "" {
		cfg.Dir = "configs"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "create config dir %q", cfg.Dir)
	}
	return &Service{dir: cfg.Dir, log: log.With().Str("component", "configs").Logger()}, nil
}

// List returns available config names sorted, without the .json extension
func (s *Service) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read config dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads and decodes a config by name
func (s *Service) Load(ctx context.Context, name string) (domain.CheckConfig, error) {
	raw, err := s.Raw(ctx, name)
	if err != nil {
		return domain.CheckConfig{}, err
	}
	var cfg domain.CheckConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return domain.CheckConfig{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode config %q", name)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	if err := bind.Struct(cfg); err != nil {
		return domain.CheckConfig{}, perr.Wrapf(err, perr.ErrorCodeValidation, "config %q", name)
	}
	return cfg, nil
}

// Raw returns the stored JSON text without decoding
func (s *Service) Raw(ctx context.Context, name string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", perr.NotFoundf("config %q not found", name)
		}
		return "", perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read config %q", name)
	}
	return string(b), nil
}

// Save validates and stores cfg under name, overwriting any previous version
func (s *Service) Save(ctx context.Context, name string, cfg domain.CheckConfig) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := bind.Struct(cfg); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "encode config %q", name)
	}
	if err := os.WriteFile(p, append(b, '\n'), 0o644); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "write config %q", name)
	}
	s.log.Info().Str("config", name).Msg("config saved")
	return nil
}

// Delete removes a stored config
func (s *Service) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return perr.NotFoundf("config %q not found", name)
		}
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "delete config %q", name)
	}
	s.log.Info().Str("config", name).Msg("config deleted")
	return nil
}

// path maps a config name to its file, rejecting names that escape the dir
func (s *Service) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, "/\\") {
		return "", perr.InvalidArgf("invalid config name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}
