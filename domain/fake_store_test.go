package domain

import (
	"context"
	"errors"
	"sync"
)

var errFakeStore = errors.New("fake store failure")

type fakeStore struct {
	mu            sync.Mutex
	tasks         map[string]Task
	members       map[string]Member
	notifications map[string]Notification
	config        *BoardConfig

	failPutTask bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:         map[string]Task{},
		members:       map[string]Member{},
		notifications: map[string]Notification{},
	}
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) ListTasks(ctx context.Context) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) PutTask(ctx context.Context, t Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPutTask {
		return errFakeStore
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) ClearTasks(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = map[string]Task{}
	return nil
}

func (f *fakeStore) GetMember(ctx context.Context, id string) (*Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeStore) ListMembers(ctx context.Context) ([]Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeStore) PutMember(ctx context.Context, m Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[m.ID] = m
	return nil
}

func (f *fakeStore) DeleteMember(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, id)
	return nil
}

func (f *fakeStore) ClearMembers(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = map[string]Member{}
	return nil
}

func (f *fakeStore) ListNotifications(ctx context.Context) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, 0, len(f.notifications))
	for _, n := range f.notifications {
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeStore) PutNotification(ctx context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications[n.ID] = n
	return nil
}

func (f *fakeStore) DeleteNotification(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notifications, id)
	return nil
}

func (f *fakeStore) DeleteNotifications(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.notifications, id)
	}
	return nil
}

func (f *fakeStore) ClearNotifications(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = map[string]Notification{}
	return nil
}

func (f *fakeStore) GetConfig(ctx context.Context) (*BoardConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config, nil
}

func (f *fakeStore) PutConfig(ctx context.Context, c BoardConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = &c
	return nil
}

// fakeBlobs keeps payloads in memory and records deletions.
type fakeBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: map[string][]byte{}}
}

func (f *fakeBlobs) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = append([]byte(nil), data...)
	return key, nil
}

func (f *fakeBlobs) Download(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// fakePurger records purge requests without touching the blob store.
type fakePurger struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakePurger) EnqueuePurge(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys...)
	return nil
}

func (f *fakePurger) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

// fakeBus records announced categories.
type fakeBus struct {
	mu         sync.Mutex
	categories []string
}

func (f *fakeBus) Announce(category string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = append(f.categories, category)
}

func (f *fakeBus) Announced(category string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.categories {
		if c == category {
			count++
		}
	}
	return count
}

// fakeDeduper is an in-memory SetNX-alike guard.
type fakeDeduper struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{keys: map[string]struct{}{}}
}

func (f *fakeDeduper) Add(ctx context.Context, recipientID, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	full := recipientID + "/" + key
	if _, ok := f.keys[full]; ok {
		return false, nil
	}
	f.keys[full] = struct{}{}
	return true, nil
}

func (f *fakeDeduper) Remove(ctx context.Context, recipientID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, recipientID+"/"+key)
	return nil
}
