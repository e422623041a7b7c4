package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"

	"workflow-api/domain"
)

// Partition keys of the hosted store. All collections share one table; the
// entity JSON lives in a Data column.
const (
	partTasks         = "tasks"
	partMembers       = "members"
	partNotifications = "notifications"
	partConfig        = "config"
	partMeta          = "meta"

	seedSentinelRow = "seeded"
)

// Tables is the hosted document store backed by Azure Table Storage.
type Tables struct {
	table *aztables.Client
}

type documentEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

// NewTables connects to the hosted store and seeds the demo workspace when
// the board table is empty. An insert-only sentinel row keeps two instances
// racing on first start from double-seeding.
func NewTables(connStr, tableName string, seed func() (domain.SeedData, error)) (*Tables, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	s := &Tables{table: svc.NewClient(tableName)}
	if seed != nil {
		if err := s.seedIfEmpty(context.Background(), seed); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Tables) seedIfEmpty(ctx context.Context, seed func() (domain.SeedData, error)) error {
	members, err := s.list(ctx, partMembers)
	if err != nil {
		return fmt.Errorf("probe members: %w", err)
	}
	if len(members) > 0 {
		return nil
	}

	sentinel := documentEntity{Entity: aztables.Entity{PartitionKey: partMeta, RowKey: seedSentinelRow}}
	payload, _ := json.Marshal(sentinel)
	if _, err := s.table.AddEntity(ctx, payload, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 409 {
			// Another instance won the seed race.
			return nil
		}
		return fmt.Errorf("claim seed sentinel: %w", err)
	}

	data, err := seed()
	if err != nil {
		return fmt.Errorf("build seed data: %w", err)
	}
	for _, m := range data.Members {
		if err := s.PutMember(ctx, m); err != nil {
			return err
		}
	}
	for _, t := range data.Tasks {
		if err := s.PutTask(ctx, t); err != nil {
			return err
		}
	}
	if err := s.PutConfig(ctx, data.Config); err != nil {
		return err
	}
	log.WithFields(log.Fields{"members": len(data.Members), "tasks": len(data.Tasks)}).Info("seeded empty hosted store")
	return nil
}

func (s *Tables) get(ctx context.Context, pk, rk string, out any) (bool, error) {
	ent, err := s.table.GetEntity(ctx, pk, rk, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	var doc documentEntity
	if err := json.Unmarshal(ent.Value, &doc); err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(doc.Data), out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Tables) list(ctx context.Context, pk string) ([][]byte, error) {
	filter := "PartitionKey eq '" + pk + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var docs [][]byte
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var doc documentEntity
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, err
			}
			docs = append(docs, []byte(doc.Data))
		}
	}
	return docs, nil
}

// put upserts a whole document, so hosted writes carry the same last-write-
// wins semantics as the embedded store.
func (s *Tables) put(ctx context.Context, pk, rk string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	doc := documentEntity{
		Entity: aztables.Entity{PartitionKey: pk, RowKey: rk},
		Data:   string(data),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.table.UpsertEntity(ctx, payload, nil)
	return err
}

// delete treats a missing row as already deleted.
func (s *Tables) delete(ctx context.Context, pk, rk string) error {
	if _, err := s.table.DeleteEntity(ctx, pk, rk, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return nil
		}
		return err
	}
	return nil
}

func (s *Tables) clear(ctx context.Context, pk string) error {
	filter := "PartitionKey eq '" + pk + "'"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, raw := range resp.Entities {
			var doc documentEntity
			if err := json.Unmarshal(raw, &doc); err != nil {
				return err
			}
			if err := s.delete(ctx, pk, doc.RowKey); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Tables) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	found, err := s.get(ctx, partTasks, id, &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

func (s *Tables) ListTasks(ctx context.Context) ([]domain.Task, error) {
	docs, err := s.list(ctx, partTasks)
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(docs))
	for _, doc := range docs {
		var t domain.Task
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Tables) PutTask(ctx context.Context, t domain.Task) error {
	return s.put(ctx, partTasks, t.ID, t)
}

func (s *Tables) DeleteTask(ctx context.Context, id string) error {
	return s.delete(ctx, partTasks, id)
}

func (s *Tables) ClearTasks(ctx context.Context) error { return s.clear(ctx, partTasks) }

func (s *Tables) GetMember(ctx context.Context, id string) (*domain.Member, error) {
	var m memberDocument
	found, err := s.get(ctx, partMembers, id, &m)
	if err != nil || !found {
		return nil, err
	}
	member := m.toDomain()
	return &member, nil
}

func (s *Tables) ListMembers(ctx context.Context) ([]domain.Member, error) {
	docs, err := s.list(ctx, partMembers)
	if err != nil {
		return nil, err
	}
	members := make([]domain.Member, 0, len(docs))
	for _, doc := range docs {
		var m memberDocument
		if err := json.Unmarshal(doc, &m); err != nil {
			return nil, err
		}
		members = append(members, m.toDomain())
	}
	return members, nil
}

func (s *Tables) PutMember(ctx context.Context, m domain.Member) error {
	return s.put(ctx, partMembers, m.ID, newMemberDocument(m))
}

func (s *Tables) DeleteMember(ctx context.Context, id string) error {
	return s.delete(ctx, partMembers, id)
}

func (s *Tables) ClearMembers(ctx context.Context) error { return s.clear(ctx, partMembers) }

func (s *Tables) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	docs, err := s.list(ctx, partNotifications)
	if err != nil {
		return nil, err
	}
	notes := make([]domain.Notification, 0, len(docs))
	for _, doc := range docs {
		var n domain.Notification
		if err := json.Unmarshal(doc, &n); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (s *Tables) PutNotification(ctx context.Context, n domain.Notification) error {
	return s.put(ctx, partNotifications, n.ID, n)
}

func (s *Tables) DeleteNotification(ctx context.Context, id string) error {
	return s.delete(ctx, partNotifications, id)
}

func (s *Tables) DeleteNotifications(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.DeleteNotification(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Tables) ClearNotifications(ctx context.Context) error {
	return s.clear(ctx, partNotifications)
}

func (s *Tables) GetConfig(ctx context.Context) (*domain.BoardConfig, error) {
	var c domain.BoardConfig
	found, err := s.get(ctx, partConfig, domain.BoardConfigID, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (s *Tables) PutConfig(ctx context.Context, c domain.BoardConfig) error {
	c.ID = domain.BoardConfigID
	return s.put(ctx, partConfig, c.ID, c)
}
