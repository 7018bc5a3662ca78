package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/fablekeep/fablekeep/pkg/observability"
	"github.com/fablekeep/fablekeep/pkg/token"
)

// FileSecret is a signing secret read from a file, reloaded whenever the
// file changes. Secret mounts are typically updated by replacing the file,
// so the watch covers the parent directory rather than the file itself.
type FileSecret struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *observability.Logger

	mu     sync.RWMutex
	secret []byte

	done chan struct{}
}

// NewFileSecret loads the secret from path and starts watching for changes.
// The initial load must succeed and satisfy the minimum secret length.
func NewFileSecret(path string, logger *observability.Logger) (*FileSecret, error) {
	fs := &FileSecret{
		path:   path,
		logger: logger,
		done:   make(chan struct{}),
	}

	secret, err := readSecretFile(path)
	if err != nil {
		return nil, err
	}
	fs.secret = secret

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}
	fs.watcher = watcher

	go fs.watch()

	return fs, nil
}

// Secret implements token.SecretProvider.
func (f *FileSecret) Secret() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.secret
}

// Close stops watching the secret file.
func (f *FileSecret) Close() error {
	close(f.done)
	return f.watcher.Close()
}

func (f *FileSecret) watch() {
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			f.reload()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			if f.logger != nil {
				f.logger.WithError(err).Warn("secret file watcher error")
			}
		}
	}
}

// reload swaps in the new secret. A bad read or short secret keeps the
// previous one, since signing must never stop mid-rotation.
func (f *FileSecret) reload() {
	secret, err := readSecretFile(f.path)
	if err != nil {
		if f.logger != nil {
			f.logger.WithError(err).Warn("secret reload failed, keeping previous secret")
		}
		return
	}

	f.mu.Lock()
	changed := !bytes.Equal(f.secret, secret)
	f.secret = secret
	f.mu.Unlock()

	if changed && f.logger != nil {
		f.logger.Info("signing secret reloaded")
	}
}

func readSecretFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secret file: %w", err)
	}
	secret := bytes.TrimRight(raw, "\r\n")
	if len(secret) < token.MinSecretLen {
		return nil, fmt.Errorf("secret in %s is %d bytes, need at least %d", path, len(secret), token.MinSecretLen)
	}
	return secret, nil
}

// SecretProvider builds the signing secret source from auth configuration:
// a file-backed provider when SecretFile is set, otherwise the static
// environment secret.
func (a *AuthConfig) SecretProvider(logger *observability.Logger) (token.SecretProvider, error) {
	if a.SecretFile != "" {
		return NewFileSecret(a.SecretFile, logger)
	}
	return token.StaticSecret(a.Secret), nil
}
