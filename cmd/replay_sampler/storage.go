package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dota-timeslice/replay-sampler/internal/config"
	"github.com/dota-timeslice/replay-sampler/internal/database"
	"github.com/dota-timeslice/replay-sampler/internal/influx"
	"github.com/dota-timeslice/replay-sampler/internal/storage"
	"github.com/dota-timeslice/replay-sampler/internal/storage/archive"
	"github.com/dota-timeslice/replay-sampler/internal/storage/jsonstream"
	"github.com/dota-timeslice/replay-sampler/internal/storage/timeline"
	wsstorage "github.com/dota-timeslice/replay-sampler/internal/storage/websocket"
)

// createStorageBackend assembles the snapshot sinks of a run. The JSON stream
// is always first; archive, timeline and live streaming follow when enabled.
func createStorageBackend(logger *slog.Logger, j job) (*storage.Multi, error) {
	backends := []storage.Backend{
		jsonstream.New(jsonstream.Config{
			Path:     j.output,
			Compress: config.GetOutputConfig().Compress,
		}, logger),
	}

	archiveCfg := config.GetArchiveConfig()
	switch archiveCfg.Type {
	case "", "none":
	case "sqlite", "postgres":
		logger.Info("Archive storage backend initialized", "type", archiveCfg.Type)
		backends = append(backends, archive.New(archive.Dependencies{
			Manager: database.NewManager(archiveCfg, j.zlog),
			Logger:  logger,
		}))
	default:
		return nil, fmt.Errorf("unknown archive type %q", archiveCfg.Type)
	}

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := influxBackupPath(influxCfg.BackupDir, j.replay)
		logger.Info("Timeline storage backend initialized", "bucket", influxCfg.Bucket, "backupPath", backupPath)
		backends = append(backends, timeline.New(influx.NewManager(influxCfg, j.zlog, backupPath), logger))
	}

	if wsCfg := config.GetWebsocketConfig(); wsCfg.Enabled {
		logger.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		backends = append(backends, wsstorage.New(wsstorage.Config{
			URL:    wsCfg.URL,
			Secret: wsCfg.Secret,
		}, logger))
	}

	return storage.NewMulti(backends...), nil
}

// influxBackupPath names the line protocol backup after the replay, without
// its compression and frame extensions.
func influxBackupPath(dir, replay string) string {
	name := filepath.Base(replay)
	for _, ext := range []string{".bz2", ".gz", ".frames", ".jsonl", ".dem"} {
		name = strings.TrimSuffix(name, ext)
	}
	return filepath.Join(dir, name+".lp.gz")
}
