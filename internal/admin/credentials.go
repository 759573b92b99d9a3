package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tienda-be/internal/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Credential struct {
	Username     string
	PasswordHash string
}

// CredentialProvider resolves an admin username to its stored hash.
type CredentialProvider interface {
	Lookup(ctx context.Context, username string) (Credential, bool, error)
}

// StaticProvider holds a fixed credential set built at start-up.
type StaticProvider struct {
	creds map[string]Credential
}

// NewStaticProvider parses "user:secret,user2:secret2". A secret is either a
// bcrypt hash or a plaintext password, which is hashed here.
func NewStaticProvider(list string) (*StaticProvider, error) {
	creds := make(map[string]Credential)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		user, secret, ok := strings.Cut(entry, ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" || secret == "" {
			return nil, fmt.Errorf("invalid admin entry %q: want user:password", user)
		}
		hash, err := hashIfPlain(secret)
		if err != nil {
			return nil, fmt.Errorf("hash password for %q: %w", user, err)
		}
		creds[user] = Credential{Username: user, PasswordHash: hash}
	}
	if len(creds) == 0 {
		return nil, ErrNoCredentials
	}
	return &StaticProvider{creds: creds}, nil
}

func (p *StaticProvider) Lookup(_ context.Context, username string) (Credential, bool, error) {
	c, ok := p.creds[username]
	return c, ok, nil
}

type credentialsFile struct {
	Admins []struct {
		Username     string `yaml:"usuario"`
		Password     string `yaml:"password"`
		PasswordHash string `yaml:"password_hash"`
	} `yaml:"admins"`
}

// FileProvider reads credentials from a YAML file and can follow edits to it.
//
//	admins:
//	  - usuario: admin
//	    password_hash: $2a$10$...
type FileProvider struct {
	path string

	mu    sync.RWMutex
	creds map[string]Credential
}

func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Lookup(_ context.Context, username string) (Credential, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.creds[username]
	return c, ok, nil
}

// Reload re-reads the file. On error the previous set stays active.
func (p *FileProvider) Reload() error {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}

	var f credentialsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse credentials file: %w", err)
	}

	creds := make(map[string]Credential, len(f.Admins))
	for _, a := range f.Admins {
		if a.Username == "" {
			continue
		}
		hash := a.PasswordHash
		if hash == "" {
			if a.Password == "" {
				return fmt.Errorf("admin %q has no password", a.Username)
			}
			if hash, err = HashPassword(a.Password); err != nil {
				return err
			}
		}
		creds[a.Username] = Credential{Username: a.Username, PasswordHash: hash}
	}
	if len(creds) == 0 {
		return ErrNoCredentials
	}

	p.mu.Lock()
	p.creds = creds
	p.mu.Unlock()
	return nil
}

// Watch starts following the file and returns once the watcher is armed.
// Reloading stops when ctx is done.
func (p *FileProvider) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files by rename.
	if err := w.Add(filepath.Dir(p.path)); err != nil {
		w.Close()
		return err
	}

	go p.watchLoop(ctx, w)
	return nil
}

func (p *FileProvider) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()
	log := logger.L().With(zap.String("component", "admin.FileProvider"), zap.String("path", p.path))
	target := filepath.Clean(p.path)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if err := p.Reload(); err != nil {
				log.Warn("credentials reload failed, keeping previous set", zap.Error(err))
				continue
			}
			log.Info("credentials reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Error("credentials watcher error", zap.Error(err))
		}
	}
}
