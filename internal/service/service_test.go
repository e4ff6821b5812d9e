package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pricewatch/ingestor/internal/domain/task"
	"pricewatch/ingestor/internal/queue"

	"github.com/redis/go-redis/v9"
)

type fakeObjectStore struct {
	objects map[string][]byte
	err     error
}

func (f *fakeObjectStore) FetchObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return data, nil
}

type fakeTaskQueue struct {
	added []task.Task
	acked []string
}

func (f *fakeTaskQueue) AddTask(ctx context.Context, t task.Task) (string, error) {
	f.added = append(f.added, t)
	return fmt.Sprintf("%d-0", len(f.added)), nil
}

func (f *fakeTaskQueue) GetTask(ctx context.Context, group, consumer, stream string) (*redis.XMessage, error) {
	return nil, nil
}

func (f *fakeTaskQueue) AckTask(ctx context.Context, stream, group, msgID string) error {
	f.acked = append(f.acked, msgID)
	return nil
}

func (f *fakeTaskQueue) CreateGroup(ctx context.Context, stream, group string) error { return nil }

func (f *fakeTaskQueue) AutoClaim(ctx context.Context, group, consumer, stream string, minIdleTime time.Duration) ([]redis.XMessage, error) {
	return nil, nil
}

func (f *fakeTaskQueue) EnsureStreamsExist(ctx context.Context) error { return nil }

type fakeStateManager struct {
	counts   map[string]int64
	lastKeys map[string]string
}

func newFakeStateManager() *fakeStateManager {
	return &fakeStateManager{counts: map[string]int64{}, lastKeys: map[string]string{}}
}

func (f *fakeStateManager) GetProcessedCount(ctx context.Context, bucket string) (int64, error) {
	return f.counts[bucket], nil
}

func (f *fakeStateManager) IncrProcessedCount(ctx context.Context, bucket string) (int64, error) {
	f.counts[bucket]++
	return f.counts[bucket], nil
}

func (f *fakeStateManager) GetLastObjectKey(ctx context.Context, bucket string) (string, error) {
	return f.lastKeys[bucket], nil
}

func (f *fakeStateManager) SetLastObjectKey(ctx context.Context, bucket, key string) error {
	f.lastKeys[bucket] = key
	return nil
}

const storedListing = `{
	"categories": ["Accueil", "Epicerie", "Petit dejeuner", "Confiture de fraises"],
	"url": "https://shop.example/p/confiture",
	"name": "Confiture de fraises",
	"availability": true,
	"s3_paths": {"item_path": "items/confiture.json", "image_path": "images/confiture.jpg"},
	"rating_people_count": null,
	"rating_value": null,
	"brand": "Bonne Maman",
	"currency": "EUR",
	"price": "2,35",
	"base_price": null,
	"shop": "ExampleShop",
	"img": {"alt": "confiture", "src": "https://cdn.example/confiture.jpg"},
	"additional_attributes": {
		"single_contenances": [{"unit": "g", "contenance": "370"}],
		"multiple_contenances": [],
		"unkown_contenances": [],
		"lots": [],
		"unknown": []
	},
	"variants": {}
}`

func newWorkerService(repo *fakeCatalogRepository, store *fakeObjectStore, q *fakeTaskQueue, sm *fakeStateManager) *Service {
	return &Service{
		repository:   repo,
		store:        store,
		queue:        q,
		stateManager: sm,
		groupName:    "ingestors",
		minIdleTime:  time.Minute,
	}
}

func objectCreatedMessage(tb testing.TB, bucket, key string) *redis.XMessage {
	tb.Helper()
	data, err := (&task.ObjectCreatedTask{Bucket: bucket, Key: key}).TaskValue()
	if err != nil {
		tb.Fatalf("TaskValue: %v", err)
	}
	return &redis.XMessage{
		ID: "1-0",
		Values: map[string]interface{}{
			"task_type": "ObjectCreatedTask",
			"task_data": string(data),
		},
	}
}

func TestProcessMessageIngestsAndAcks(t *testing.T) {
	repo := newFakeCatalogRepository()
	store := &fakeObjectStore{objects: map[string][]byte{
		"listings/items/confiture.json": []byte(storedListing),
	}}
	q := &fakeTaskQueue{}
	sm := newFakeStateManager()
	s := newWorkerService(repo, store, q, sm)

	msg := objectCreatedMessage(t, "listings", "items/confiture.json")
	if err := s.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("processMessage: %v", err)
	}

	if len(repo.snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(repo.snapshots))
	}
	if len(q.acked) != 1 || q.acked[0] != "1-0" {
		t.Fatalf("acked = %v, want [1-0]", q.acked)
	}
	if len(q.added) != 0 {
		t.Fatalf("retry tasks enqueued = %d, want 0", len(q.added))
	}
	if sm.counts["listings"] != 1 {
		t.Fatalf("processed count = %d, want 1", sm.counts["listings"])
	}
	if sm.lastKeys["listings"] != "items/confiture.json" {
		t.Fatalf("last key = %q", sm.lastKeys["listings"])
	}
}

func TestProcessMessageDivertsFailureToRetryStream(t *testing.T) {
	repo := newFakeCatalogRepository()
	store := &fakeObjectStore{err: errors.New("bucket unreachable")}
	q := &fakeTaskQueue{}
	sm := newFakeStateManager()
	s := newWorkerService(repo, store, q, sm)

	msg := objectCreatedMessage(t, "listings", "items/confiture.json")
	// The delivery itself succeeds: the failure is diverted, the message acked
	if err := s.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("processMessage: %v", err)
	}

	if len(q.added) != 1 {
		t.Fatalf("retry tasks enqueued = %d, want 1", len(q.added))
	}
	retry, ok := q.added[0].(*task.IngestRetryTask)
	if !ok {
		t.Fatalf("enqueued task is %T, want *IngestRetryTask", q.added[0])
	}
	if retry.Bucket != "listings" || retry.Key != "items/confiture.json" {
		t.Fatalf("retry task = %+v", retry)
	}
	if retry.Error == "" {
		t.Fatal("retry task is missing the original error")
	}
	if len(q.acked) != 1 {
		t.Fatalf("acked = %v, want the failed delivery acked", q.acked)
	}
	if sm.counts["listings"] != 0 {
		t.Fatalf("processed count = %d, want 0", sm.counts["listings"])
	}
}

func TestProcessMessageRetryReenqueuesOnFailure(t *testing.T) {
	repo := newFakeCatalogRepository()
	store := &fakeObjectStore{err: errors.New("still unreachable")}
	q := &fakeTaskQueue{}
	s := newWorkerService(repo, store, q, newFakeStateManager())

	data, err := (&task.IngestRetryTask{
		Bucket:     "listings",
		Key:        "items/confiture.json",
		RetryCount: 2,
		Error:      "bucket unreachable",
	}).TaskValue()
	if err != nil {
		t.Fatalf("TaskValue: %v", err)
	}
	msg := &redis.XMessage{
		ID: "7-0",
		Values: map[string]interface{}{
			"task_type": "IngestRetryTask",
			"task_data": string(data),
		},
	}

	if err := s.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("processMessage: %v", err)
	}

	if len(q.added) != 1 {
		t.Fatalf("re-enqueued tasks = %d, want 1", len(q.added))
	}
	retry := q.added[0].(*task.IngestRetryTask)
	if retry.RetryCount != 3 {
		t.Fatalf("retry count = %d, want 3", retry.RetryCount)
	}
}

func TestProcessMessageRetrySucceeds(t *testing.T) {
	repo := newFakeCatalogRepository()
	store := &fakeObjectStore{objects: map[string][]byte{
		"listings/items/confiture.json": []byte(storedListing),
	}}
	q := &fakeTaskQueue{}
	sm := newFakeStateManager()
	s := newWorkerService(repo, store, q, sm)

	data, err := (&task.IngestRetryTask{
		Bucket:     "listings",
		Key:        "items/confiture.json",
		RetryCount: 1,
		Error:      "bucket unreachable",
	}).TaskValue()
	if err != nil {
		t.Fatalf("TaskValue: %v", err)
	}
	msg := &redis.XMessage{
		ID: "9-0",
		Values: map[string]interface{}{
			"task_type": "IngestRetryTask",
			"task_data": string(data),
		},
	}

	if err := s.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if len(repo.snapshots) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(repo.snapshots))
	}
	if len(q.added) != 0 {
		t.Fatalf("re-enqueued tasks = %d, want 0", len(q.added))
	}
	if len(q.acked) != 1 || q.acked[0] != "9-0" {
		t.Fatalf("acked = %v", q.acked)
	}
}

func TestProcessMessageRejectsUnknownTaskType(t *testing.T) {
	s := newWorkerService(newFakeCatalogRepository(), &fakeObjectStore{}, &fakeTaskQueue{}, newFakeStateManager())
	msg := &redis.XMessage{
		ID: "3-0",
		Values: map[string]interface{}{
			"task_type": "SomethingElse",
			"task_data": "{}",
		},
	}
	if err := s.processMessage(context.Background(), msg); err == nil {
		t.Fatal("processMessage accepted an unknown task type")
	}
}

func TestProcessMessageRejectsMissingTaskFields(t *testing.T) {
	s := newWorkerService(newFakeCatalogRepository(), &fakeObjectStore{}, &fakeTaskQueue{}, newFakeStateManager())
	msg := &redis.XMessage{ID: "4-0", Values: map[string]interface{}{"init": "dummy"}}
	if err := s.processMessage(context.Background(), msg); err == nil {
		t.Fatal("processMessage accepted a message without task_type")
	}
}

func TestMalformedDocumentGoesToRetryStream(t *testing.T) {
	repo := newFakeCatalogRepository()
	store := &fakeObjectStore{objects: map[string][]byte{
		"listings/items/bad.json": []byte(`{"url": "https://shop.example/p/bad"}`),
	}}
	q := &fakeTaskQueue{}
	s := newWorkerService(repo, store, q, newFakeStateManager())

	msg := objectCreatedMessage(t, "listings", "items/bad.json")
	if err := s.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("processMessage: %v", err)
	}
	if len(repo.snapshots) != 0 {
		t.Fatalf("snapshots = %d, want 0", len(repo.snapshots))
	}
	if len(q.added) != 1 {
		t.Fatalf("retry tasks = %d, want 1", len(q.added))
	}
}

var _ queue.Queue = (*fakeTaskQueue)(nil)
