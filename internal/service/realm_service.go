package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/backupctl/internal/metrics"
	"github.com/andresuchdata/backupctl/internal/realm"
	"github.com/rs/zerolog/log"
)

// RealmStat is the stat of one realm as reported to users.
type RealmStat struct {
	Realm string `json:"realm"`
	realm.Stat
	Error string `json:"error,omitempty"`
}

// PushResult describes a completed upload.
type PushResult struct {
	Realm   string `json:"realm"`
	File    string `json:"file"`
	Size    int64  `json:"size"`
	Removed bool   `json:"removed"`
}

// RealmService runs realm operations against a realms file. The file is read
// again for every call so edits apply without a restart.
type RealmService struct {
	configPath string
	load       func(path string) (*realm.Config, error)
	aggregator *metrics.Aggregator
}

func NewRealmService(configPath string, aggregator *metrics.Aggregator) *RealmService {
	if aggregator == nil {
		aggregator = metrics.New(metrics.Options{Logger: log.Logger})
	}
	return &RealmService{
		configPath: configPath,
		load:       realm.LoadFile,
		aggregator: aggregator,
	}
}

// ConfigPath returns the realms file the service reads.
func (s *RealmService) ConfigPath() string {
	return s.configPath
}

// Stat returns the stat of the named realm, or of every realm when name is
// empty. With every realm, failures are reported per realm instead of failing
// the whole call.
func (s *RealmService) Stat(ctx context.Context, name string) ([]RealmStat, error) {
	cfg, err := s.load(s.configPath)
	if err != nil {
		return nil, err
	}

	if name != "" {
		r, err := cfg.Lookup(name)
		if err != nil {
			return nil, err
		}
		stat, err := r.Stat(ctx)
		if err != nil {
			return nil, err
		}
		return []RealmStat{{Realm: name, Stat: stat}}, nil
	}

	results := s.aggregator.Collect(ctx, cfg)
	stats := make([]RealmStat, 0, len(results))
	for _, res := range results {
		stat := RealmStat{Realm: res.Realm, Stat: res.Stat}
		if res.Err != nil {
			stat.Error = res.Err.Error()
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// Push uploads exchangeDir/file to the named realm. With clean set, the local
// file is removed once the upload succeeded.
func (s *RealmService) Push(ctx context.Context, name, exchangeDir, file string, clean bool) (PushResult, error) {
	cfg, err := s.load(s.configPath)
	if err != nil {
		return PushResult{}, err
	}
	r, err := cfg.Lookup(name)
	if err != nil {
		return PushResult{}, err
	}

	localPath := filepath.Join(exchangeDir, file)
	size, err := r.Push(ctx, localPath)
	if err != nil {
		return PushResult{}, err
	}

	result := PushResult{Realm: name, File: localPath, Size: size}
	if clean {
		if err := os.Remove(localPath); err != nil {
			return result, &realm.IOError{Path: localPath, Err: fmt.Errorf("uploaded but not removed: %w", err)}
		}
		result.Removed = true
		log.Info().Str("realm", name).Str("path", localPath).Msg("local backup removed")
	}
	return result, nil
}

// Pull downloads the realm's backup into exchangeDir and returns its path.
// By default the last object in listing order is taken; newest selects by
// modification time instead.
func (s *RealmService) Pull(ctx context.Context, name, exchangeDir string, newest bool) (string, error) {
	cfg, err := s.load(s.configPath)
	if err != nil {
		return "", err
	}
	r, err := cfg.Lookup(name)
	if err != nil {
		return "", err
	}
	if newest {
		return r.PullNewest(ctx, exchangeDir)
	}
	return r.Pull(ctx, exchangeDir)
}

// Metrics collects every realm and renders the metrics text.
func (s *RealmService) Metrics(ctx context.Context) (string, error) {
	cfg, err := s.load(s.configPath)
	if err != nil {
		return "", err
	}
	return s.aggregator.Render(ctx, cfg)
}
