package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ConfigStore persists partial configurations. Implementations never see
// secret payloads, only references.
type ConfigStore interface {
	GetConnection(ctx context.Context, kind Kind, id uuid.UUID) (*Connection, error)
	PutConnection(ctx context.Context, conn *Connection) error
	ListConnections(ctx context.Context, kind Kind) ([]Connection, error)
	GetServiceAccount(ctx context.Context, workspaceID uuid.UUID) (*ServiceAccount, error)
	PutServiceAccount(ctx context.Context, sa *ServiceAccount) error
}

// FileConfigStore implements ConfigStore using the filesystem:
//
//	<dir>/sources/<id>.json
//	<dir>/destinations/<id>.json
//	<dir>/service_accounts/<workspace id>.json
type FileConfigStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileConfigStore creates a file-based config store rooted at baseDir.
func NewFileConfigStore(baseDir string) *FileConfigStore {
	return &FileConfigStore{baseDir: baseDir}
}

// Dir returns the root directory.
func (fs *FileConfigStore) Dir() string {
	return fs.baseDir
}

func (fs *FileConfigStore) kindDir(kind Kind) string {
	return filepath.Join(fs.baseDir, string(kind)+"s")
}

// GetConnection loads a connection.
func (fs *FileConfigStore) GetConnection(_ context.Context, kind Kind, id uuid.UUID) (*Connection, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var conn Connection
	if err := readJSON(filepath.Join(fs.kindDir(kind), id.String()+".json"), &conn); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, ErrConnectionNotFound)
		}
		return nil, fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}
	return &conn, nil
}

// PutConnection creates or replaces a connection.
func (fs *FileConfigStore) PutConnection(_ context.Context, conn *Connection) error {
	if _, err := ParseKind(string(conn.Kind)); err != nil {
		return err
	}
	if conn.ID == uuid.Nil {
		return fmt.Errorf("connection id is required")
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.kindDir(conn.Kind)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", conn.Kind, err)
	}
	return writeJSON(filepath.Join(dir, conn.ID.String()+".json"), conn)
}

// ListConnections returns every connection of kind ordered by name, then id.
func (fs *FileConfigStore) ListConnections(_ context.Context, kind Kind) ([]Connection, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	dir := fs.kindDir(kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Connection{}, nil
		}
		return nil, fmt.Errorf("failed to read %s directory: %w", kind, err)
	}

	conns := make([]Connection, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var conn Connection
		if err := readJSON(filepath.Join(dir, entry.Name()), &conn); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		conns = append(conns, conn)
	}

	sort.Slice(conns, func(i, j int) bool {
		if conns[i].Name != conns[j].Name {
			return conns[i].Name < conns[j].Name
		}
		return conns[i].ID.String() < conns[j].ID.String()
	})
	return conns, nil
}

// GetServiceAccount loads a workspace's service account.
func (fs *FileConfigStore) GetServiceAccount(_ context.Context, workspaceID uuid.UUID) (*ServiceAccount, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var sa ServiceAccount
	path := filepath.Join(fs.baseDir, "service_accounts", workspaceID.String()+".json")
	if err := readJSON(path, &sa); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workspace %s: %w", workspaceID, ErrServiceAccountNotFound)
		}
		return nil, fmt.Errorf("failed to read service account: %w", err)
	}
	return &sa, nil
}

// PutServiceAccount creates or replaces a workspace's service account.
func (fs *FileConfigStore) PutServiceAccount(_ context.Context, sa *ServiceAccount) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := filepath.Join(fs.baseDir, "service_accounts")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create service account directory: %w", err)
	}
	return writeJSON(filepath.Join(dir, sa.WorkspaceID.String()+".json"), sa)
}

// readJSON decodes numbers as json.Number so integer settings such as ports
// survive a round trip unchanged.
func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", strings.TrimSuffix(filepath.Base(path), ".json"), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
