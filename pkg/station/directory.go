// Package station maps radio-style station identifiers to TCP endpoints.
//
// The directory is a JSON file of the form
//
//	{ "EA4BAO": "bbs.example.org:6300", "GB7CIP-5": "127.0.0.1:8011" }
//
// Lookups are case-insensitive. A missing station is a normal, expected
// condition, not an error of the directory itself.
package station

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"tfemu/internal/logger"
)

// Directory is a reloadable station -> "host:port" mapping
type Directory struct {
	path string
	log  logger.Logger

	mu       sync.RWMutex
	stations map[string]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads the directory from a JSON file
func Load(path string, log logger.Logger) (*Directory, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	d := &Directory{
		path:     path,
		log:      log,
		stations: make(map[string]string),
	}

	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload re-reads the station file, replacing the mapping atomically.
// On error the previous mapping is kept.
func (d *Directory) Reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("failed to read stations file: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse stations file %s: %w", d.path, err)
	}

	stations := make(map[string]string, len(raw))
	for call, addr := range raw {
		stations[strings.ToUpper(call)] = addr
	}

	d.mu.Lock()
	d.stations = stations
	d.mu.Unlock()

	d.log.Info("Stations: loaded %d entries from %s", len(stations), d.path)
	return nil
}

// Lookup resolves a station identifier to a "host:port" address.
// The second return value is false when the station is unknown.
func (d *Directory) Lookup(call string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addr, ok := d.stations[strings.ToUpper(call)]
	return addr, ok
}

// Len returns the number of known stations
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.stations)
}

// Watch reloads the directory whenever the station file is rewritten.
// The watch runs until Close. Editors replace files rather than rewrite
// them in place, so the watcher is placed on the containing directory and
// filtered to the file name.
func (d *Directory) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	d.watcher = watcher
	d.done = make(chan struct{})

	go d.watchLoop()
	return nil
}

func (d *Directory) watchLoop() {
	name := filepath.Base(d.path)

	for {
		select {
		case <-d.done:
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := d.Reload(); err != nil {
				d.log.Warn("Stations: reload failed: %v", err)
			}

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn("Stations: watch error: %v", err)
		}
	}
}

// Close stops the watcher if one was started
func (d *Directory) Close() {
	if d.watcher != nil {
		close(d.done)
		d.watcher.Close()
		d.watcher = nil
	}
}
