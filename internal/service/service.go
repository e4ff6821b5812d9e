package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pricewatch/ingestor/internal/domain"
	"pricewatch/ingestor/internal/domain/task"
	"pricewatch/ingestor/internal/queue"
	"pricewatch/ingestor/internal/repository"
	"pricewatch/ingestor/internal/state"
	"pricewatch/ingestor/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type Service struct {
	repository   repository.CatalogRepository
	store        storage.ObjectStore
	queue        queue.Queue
	stateManager state.StateManager
	groupName    string
	minIdleTime  time.Duration
}

func NewService(
	repository repository.CatalogRepository,
	store storage.ObjectStore,
	queue queue.Queue,
	stateManager state.StateManager,
	groupName string,
	minIdleTime int,
) *Service {
	return &Service{
		repository:   repository,
		store:        store,
		queue:        queue,
		stateManager: stateManager,
		groupName:    groupName,
		minIdleTime:  time.Duration(minIdleTime) * time.Second,
	}
}

func (s *Service) RunWorkers(ctx context.Context, numWorkers int) error {
	var wg sync.WaitGroup

	// Run workers for both fresh documents and retried ones
	s.runWorkersForStream(ctx, &wg, numWorkers, queue.StreamPrefix+"ObjectCreatedTask", "main")
	s.runWorkersForStream(ctx, &wg, max(1, numWorkers/2), queue.StreamPrefix+"IngestRetryTask", "retry")

	wg.Wait()
	return nil
}

func (s *Service) runWorkersForStream(ctx context.Context, wg *sync.WaitGroup, numWorkers int, streamName, workerType string) {
	// Auto-claimer for this stream
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.minIdleTime)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				consumer := fmt.Sprintf("autoclaimer-%s-%s", workerType, uuid.NewString())
				claimedMessages, err := s.queue.AutoClaim(ctx, s.groupName, consumer, streamName, s.minIdleTime)
				if err != nil {
					log.Errorf("❌ Failed to auto-claim messages for %s: %v", streamName, err)
					continue
				}
				if len(claimedMessages) > 0 {
					log.Infof("🔄 Auto-claimed %d messages from %s stream", len(claimedMessages), workerType)
					for _, msg := range claimedMessages {
						if err := s.processMessage(ctx, &msg); err != nil {
							log.Errorf("❌ Failed to process auto-claimed message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}
	}()

	// Regular workers for this stream
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			consumer := fmt.Sprintf("%s-worker-%d", workerType, workerID)
			log.Infof("🚀 Starting %s worker %d as consumer %s", workerType, workerID, consumer)
			for {
				select {
				case <-ctx.Done():
					log.Infof("🛑 %s worker %d stopping", workerType, workerID)
					return
				default:
					msg, err := s.queue.GetTask(ctx, s.groupName, consumer, streamName)
					if err != nil {
						log.Errorf("❌ Failed to get task from %s: %v", streamName, err)
						continue
					}

					if msg != nil {
						if err := s.processMessage(ctx, msg); err != nil {
							log.Errorf("❌ Failed to process message %s: %v", msg.ID, err)
						}
					}
				}
			}
		}(i + 1)
	}
}

func (s *Service) processMessage(ctx context.Context, msg *redis.XMessage) error {
	taskType, ok := msg.Values["task_type"].(string)
	if !ok {
		return fmt.Errorf("invalid task type in message %s", msg.ID)
	}

	taskData, ok := msg.Values["task_data"].(string)
	if !ok {
		return fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	var streamName string
	switch taskType {
	case "ObjectCreatedTask":
		streamName = queue.StreamPrefix + "ObjectCreatedTask"
		objTask, err := task.UnmarshalTask[*task.ObjectCreatedTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal object created task data: %w", err)
		}

		if err := s.ingestObject(ctx, objTask.Bucket, objTask.Key); err != nil {
			// Divert to the retry stream instead of failing the delivery
			retryTask := &task.IngestRetryTask{
				Bucket:     objTask.Bucket,
				Key:        objTask.Key,
				RetryCount: 0,
				Error:      err.Error(),
			}

			if _, addErr := s.queue.AddTask(ctx, retryTask); addErr != nil {
				log.Errorf("❌ Failed to add retry task for %s/%s: %v", objTask.Bucket, objTask.Key, addErr)
			} else {
				log.Warnf("🔄 Added %s/%s to retry queue due to error: %v", objTask.Bucket, objTask.Key, err)
			}
		}

	case "IngestRetryTask":
		streamName = queue.StreamPrefix + "IngestRetryTask"
		retryTask, err := task.UnmarshalTask[*task.IngestRetryTask]([]byte(taskData))
		if err != nil {
			return fmt.Errorf("failed to unmarshal retry task data: %w", err)
		}

		if err := s.retryIngest(ctx, retryTask); err != nil {
			return fmt.Errorf("failed to retry ingestion: %w", err)
		}

	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}

	if err := s.queue.AckTask(ctx, streamName, s.groupName, msg.ID); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, err)
	}

	return nil
}

// ingestObject is the full per-document flow: fetch from the blob store,
// decode, ingest, record progress.
func (s *Service) ingestObject(ctx context.Context, bucket, key string) error {
	data, err := s.store.FetchObject(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("failed to fetch listing %s/%s: %w", bucket, key, err)
	}

	listing, err := domain.DecodeListing(data)
	if err != nil {
		return fmt.Errorf("failed to decode listing %s/%s: %w", bucket, key, err)
	}

	snap, err := s.Ingest(ctx, listing)
	if err != nil {
		return fmt.Errorf("failed to ingest listing %s/%s: %w", bucket, key, err)
	}

	// Progress bookkeeping is best effort; the snapshot is already committed.
	if err := s.stateManager.SetLastObjectKey(ctx, bucket, key); err != nil {
		log.Warnf("⚠️ Failed to record last object key for bucket %s: %v", bucket, err)
	}
	count, err := s.stateManager.IncrProcessedCount(ctx, bucket)
	if err != nil {
		log.Warnf("⚠️ Failed to bump processed count for bucket %s: %v", bucket, err)
	}

	log.Infof("✅ Ingested %s as snapshot %d (category %d, %d documents from bucket %s)",
		listing.URL, snap.ID, snap.CategoryID, count, bucket)
	return nil
}

func (s *Service) retryIngest(ctx context.Context, retryTask *task.IngestRetryTask) error {
	retryTask.RetryCount++

	log.Infof("🔄 Retrying ingestion of %s/%s (attempt %d)",
		retryTask.Bucket, retryTask.Key, retryTask.RetryCount)

	if err := s.ingestObject(ctx, retryTask.Bucket, retryTask.Key); err != nil {
		// Re-enqueue with the incremented count - retry indefinitely
		newRetryTask := &task.IngestRetryTask{
			Bucket:     retryTask.Bucket,
			Key:        retryTask.Key,
			RetryCount: retryTask.RetryCount,
			Error:      err.Error(),
		}

		if _, addErr := s.queue.AddTask(ctx, newRetryTask); addErr != nil {
			log.Errorf("❌ Failed to re-add retry task for %s/%s: %v", retryTask.Bucket, retryTask.Key, addErr)
			return addErr
		}

		log.Warnf("🔄 Ingestion of %s/%s failed again, will retry (attempt %d): %v",
			retryTask.Bucket, retryTask.Key, retryTask.RetryCount, err)
		return nil
	}

	log.Infof("✅ Successfully ingested %s/%s after %d attempts",
		retryTask.Bucket, retryTask.Key, retryTask.RetryCount)
	return nil
}
