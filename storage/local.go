package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"workflow-api/domain"
)

// Collection file names of the embedded store.
const (
	tasksFile         = "tasks.json"
	membersFile       = "members.json"
	notificationsFile = "notifications.json"
	configFile        = "config.json"
)

// Local is the embedded document store: one JSON file per collection under a
// data directory, guarded by a single lock. It backs the non-hosted variant.
type Local struct {
	dir string
	mu  sync.RWMutex
}

// NewLocal opens (or creates) the store at dir. A store created over an empty
// directory is seeded with the demo workspace inside the same lock section,
// so concurrent first access never observes a partial seed.
func NewLocal(dir string, seed func() (domain.SeedData, error)) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Local{dir: dir}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path(membersFile)); err == nil || seed == nil {
		return s, nil
	}
	data, err := seed()
	if err != nil {
		return nil, fmt.Errorf("build seed data: %w", err)
	}
	memberDocs := make([]memberDocument, 0, len(data.Members))
	for _, m := range data.Members {
		memberDocs = append(memberDocs, newMemberDocument(m))
	}
	if err := s.writeFile(membersFile, memberDocs); err != nil {
		return nil, err
	}
	if err := s.writeFile(tasksFile, data.Tasks); err != nil {
		return nil, err
	}
	if err := s.writeFile(configFile, []domain.BoardConfig{data.Config}); err != nil {
		return nil, err
	}
	if err := s.writeFile(notificationsFile, []domain.Notification{}); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"members": len(data.Members), "tasks": len(data.Tasks)}).Info("seeded empty local store")
	return s, nil
}

func (s *Local) path(name string) string { return filepath.Join(s.dir, name) }

// readFile decodes a whole collection. A missing file is an empty collection.
func readFile[T any](s *Local, name string) ([]T, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return items, nil
}

// writeFile replaces a collection via temp-file rename so readers never see a
// torn write. Callers hold the lock.
func (s *Local) writeFile(name string, items any) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func getByID[T any](s *Local, name string, id string, idOf func(T) string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, err := readFile[T](s, name)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if idOf(items[i]) == id {
			return &items[i], nil
		}
	}
	return nil, nil
}

func listAll[T any](s *Local, name string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return readFile[T](s, name)
}

// putItem upserts by id, replacing the whole document (last write wins).
func putItem[T any](s *Local, name string, item T, idOf func(T) string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := readFile[T](s, name)
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if idOf(items[i]) == idOf(item) {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	return s.writeFile(name, items)
}

func deleteItems[T any](s *Local, name string, ids map[string]struct{}, idOf func(T) string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := readFile[T](s, name)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if _, gone := ids[idOf(it)]; !gone {
			kept = append(kept, it)
		}
	}
	return s.writeFile(name, kept)
}

func (s *Local) clear(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeFile(name, []struct{}{})
}

func taskID(t domain.Task) string                 { return t.ID }
func memberDocID(m memberDocument) string         { return m.ID }
func notificationID(n domain.Notification) string { return n.ID }
func configID(c domain.BoardConfig) string        { return c.ID }

func (s *Local) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return getByID(s, tasksFile, id, taskID)
}

func (s *Local) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return listAll[domain.Task](s, tasksFile)
}

func (s *Local) PutTask(ctx context.Context, t domain.Task) error {
	return putItem(s, tasksFile, t, taskID)
}

func (s *Local) DeleteTask(ctx context.Context, id string) error {
	return deleteItems(s, tasksFile, map[string]struct{}{id: {}}, taskID)
}

func (s *Local) ClearTasks(ctx context.Context) error { return s.clear(tasksFile) }

func (s *Local) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	doc, err := getByID(s, membersFile, id, memberDocID)
	if err != nil || doc == nil {
		return nil, err
	}
	m := doc.toDomain()
	return &m, nil
}

func (s *Local) ListMembers(ctx context.Context) ([]domain.Member, error) {
	docs, err := listAll[memberDocument](s, membersFile)
	if err != nil {
		return nil, err
	}
	members := make([]domain.Member, 0, len(docs))
	for _, doc := range docs {
		members = append(members, doc.toDomain())
	}
	return members, nil
}

func (s *Local) PutMember(ctx context.Context, m domain.Member) error {
	return putItem(s, membersFile, newMemberDocument(m), memberDocID)
}

func (s *Local) DeleteMember(ctx context.Context, id string) error {
	return deleteItems(s, membersFile, map[string]struct{}{id: {}}, memberDocID)
}

func (s *Local) ClearMembers(ctx context.Context) error { return s.clear(membersFile) }

func (s *Local) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	return listAll[domain.Notification](s, notificationsFile)
}

func (s *Local) PutNotification(ctx context.Context, n domain.Notification) error {
	return putItem(s, notificationsFile, n, notificationID)
}

func (s *Local) DeleteNotification(ctx context.Context, id string) error {
	return deleteItems(s, notificationsFile, map[string]struct{}{id: {}}, notificationID)
}

func (s *Local) DeleteNotifications(ctx context.Context, ids []string) error {
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}
	return deleteItems(s, notificationsFile, gone, notificationID)
}

func (s *Local) ClearNotifications(ctx context.Context) error { return s.clear(notificationsFile) }

func (s *Local) GetConfig(ctx context.Context) (*domain.BoardConfig, error) {
	return getByID(s, configFile, domain.BoardConfigID, configID)
}

func (s *Local) PutConfig(ctx context.Context, c domain.BoardConfig) error {
	c.ID = domain.BoardConfigID
	return putItem(s, configFile, c, configID)
}
