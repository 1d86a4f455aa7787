package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"halmon/internal/models"
)

// Backend persists the whole alarm list. Load returns an empty list, not an
// error, when nothing has been stored yet.
type Backend interface {
	Name() string
	Load(ctx context.Context) ([]models.Alarm, error)
	Save(ctx context.Context, alarms []models.Alarm) error
}

// FileBackend stores alarms as a JSON array of {type, threshold, active}
type FileBackend struct {
	Path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

func (b *FileBackend) Name() string {
	return "file:" + b.Path
}

func (b *FileBackend) Load(ctx context.Context) ([]models.Alarm, error) {
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var alarms []models.Alarm
	if err := json.Unmarshal(data, &alarms); err != nil {
		return nil, fmt.Errorf("corrupt alarm file %s: %w", b.Path, err)
	}
	return alarms, nil
}

// Save rewrites the file through a temporary file and rename
func (b *FileBackend) Save(ctx context.Context, alarms []models.Alarm) error {
	if alarms == nil {
		alarms = []models.Alarm{}
	}
	data, err := json.MarshalIndent(alarms, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.Path)
}

// MemoryBackend keeps alarms in process; used by tests and one-shot commands
type MemoryBackend struct {
	mu      sync.Mutex
	alarms  []models.Alarm
	saves   int
	SaveErr error
}

func NewMemoryBackend(alarms ...models.Alarm) *MemoryBackend {
	return &MemoryBackend{alarms: alarms}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Load(ctx context.Context) ([]models.Alarm, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Alarm, len(b.alarms))
	copy(out, b.alarms)
	return out, nil
}

func (b *MemoryBackend) Save(ctx context.Context, alarms []models.Alarm) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SaveErr != nil {
		return b.SaveErr
	}
	b.alarms = make([]models.Alarm, len(alarms))
	copy(b.alarms, alarms)
	b.saves++
	return nil
}

// Saves returns how many successful writes happened
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
