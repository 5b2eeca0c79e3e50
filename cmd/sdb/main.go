// Package main implements the sdb server, a single-node in-memory
// key-value store with optional snapshot persistence and write-ahead
// logging.
//
// Startup sequence:
//  1. Load settings (defaults, then TOML file, then SDB_ environment)
//  2. Build the store, seeding it from the snapshot file when enabled
//  3. Replay the write-ahead log onto the store when enabled
//  4. Serve /rpc and /health until a shutdown signal arrives
//  5. On shutdown, write a snapshot when persistence is enabled
//
// Configuration:
//   - SDB_CONFIG: Path to TOML settings file (default: "sdb.toml")
//   - SDB_LISTEN: Listen address (default: ":8200")
//   - SDB_STORE_STRATEGY: "map" or "sharded" (default: "map")
//   - SDB_STORE_SHARDS: Stripe count for the sharded strategy
//   - SDB_DATA_SAVE_TO_DISK: Persist a snapshot on shutdown
//   - SDB_DATA_SAVE_PATH: Snapshot file location
//   - SDB_WAL_ENABLED: Log mutations and replay them on startup
//   - SDB_WAL_DIR: Write-ahead log directory
//   - SDB_DEBUG: Per-request envelope logging
//
// Example usage:
//
//	# Start with persistence
//	SDB_DATA_SAVE_TO_DISK=true \
//	SDB_DATA_SAVE_PATH=data/store.json \
//	./sdb
//
//	# Store a value
//	curl -X POST localhost:8200/rpc \
//	  -d '{"set":{"key":"user:1","value":"alice"}}'
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/sdb/internal/config"
	"github.com/dreamware/sdb/internal/server"
	"github.com/dreamware/sdb/internal/store"
	"github.com/dreamware/sdb/internal/wal"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

func main() {
	cfgPath := getenv("SDB_CONFIG", "sdb.toml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logFatal("config: %v", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		logFatal("store: %v", err)
	}

	var walLog *wal.Log
	if cfg.WAL.Enabled {
		replayed, err := replayLog(cfg.WAL.Dir, st)
		if err != nil {
			logFatal("wal replay: %v", err)
		}
		if replayed > 0 {
			log.Printf("replayed %d log entries", replayed)
		}
		walLog, err = wal.Open(cfg.WAL.Dir)
		if err != nil {
			logFatal("wal open: %v", err)
		}
	}

	dispatcher := server.NewDispatcher(st, walLog)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.NewServer(dispatcher, cfg.Debug).Handler(),
		ReadHeaderTimeout: 5 * time.Second, // Prevent slowloris attacks
	}

	go func() {
		log.Printf("sdb listening on %s (strategy %s)", cfg.Listen, cfg.Store.Strategy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logFatal("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if walLog != nil {
		if err := walLog.Close(); err != nil {
			log.Printf("wal close error: %v", err)
		}
	}
	if cfg.Data.SaveToDisk {
		if err := store.WriteStoreFile(st, cfg.Data.SavePath); err != nil {
			log.Printf("snapshot write error: %v", err)
		} else {
			log.Printf("snapshot written to %s", cfg.Data.SavePath)
		}
	}
	log.Println("sdb stopped")
}

// openStore builds the configured store, seeded from the snapshot file
// when persistence is enabled.
func openStore(cfg config.Settings) (store.Store, error) {
	opts := store.Options{
		Strategy: store.Strategy(cfg.Store.Strategy),
		Shards:   cfg.Store.Shards,
	}
	path := ""
	if cfg.Data.SaveToDisk {
		path = cfg.Data.SavePath
	}
	return store.Open(path, opts)
}

// replayLog applies logged mutations on top of whatever the snapshot
// seeded. Deletes of keys the snapshot never held are fine: the log may
// be ahead of the last snapshot.
func replayLog(dir string, st store.Store) (uint64, error) {
	return wal.Replay(dir, func(e wal.Entry) error {
		switch e.Op {
		case wal.OpSet:
			return st.SetOrInsert(e.Key, e.Value)
		case wal.OpDelete:
			if _, err := st.Delete(e.Key); err != nil && !errors.Is(err, store.ErrKeyNotFound) {
				return err
			}
			return nil
		default:
			return fmt.Errorf("unknown op %q", e.Op)
		}
	})
}

// getenv retrieves an environment variable with a default fallback.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
