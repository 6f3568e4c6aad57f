package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration whenever the .env file at path is written
// or replaced and passes the result to onChange. Reloads that fail to parse
// are logged and skipped. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, opts LoadOptions, onChange func(*Config)) error {
	if path == "" {
		return errors.New("no config file to watch")
	}
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often save by rename, which drops a
	// watch placed on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	opts.EnvPath = path
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			cfg, err := LoadWithOptions(opts)
			if err != nil {
				log.Printf("CONFIG: reload of %s failed: %v", path, err)
				continue
			}
			log.Printf("CONFIG: reloaded %s", path)
			onChange(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("CONFIG: watcher error: %v", err)
		}
	}
}
