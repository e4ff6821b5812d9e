package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"pricewatch/ingestor/internal/config"

	gcs "cloud.google.com/go/storage"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"google.golang.org/api/option"
)

// ObjectStore fetches raw listing documents from the blob store. The
// ingestion only ever needs whole-object reads.
type ObjectStore interface {
	FetchObject(ctx context.Context, bucket, key string) ([]byte, error)
}

type gcsStore struct {
	rl           ratelimit.Limiter
	client       *gcs.Client
	fetchTimeout time.Duration
}

// NewGCSStore builds the blob store client. With EmulatorHost set it talks to
// a local fake-gcs-server without credentials.
func NewGCSStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	var opts []option.ClientOption
	if cfg.EmulatorHost != "" {
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		opts = append(opts, option.WithoutAuthentication())
		log.Infof("🔗 Using storage emulator at %s", endpoint)
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &gcsStore{
		rl:           ratelimit.New(cfg.MaxFetchesPerSecond),
		client:       client,
		fetchTimeout: time.Duration(cfg.FetchTimeout) * time.Second,
	}, nil
}

func (s *gcsStore) FetchObject(ctx context.Context, bucket, key string) ([]byte, error) {
	s.rl.Take()

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	reader, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s/%s: %w", bucket, key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}

	log.Debugf("Fetched object %s/%s (%d bytes)", bucket, key, len(data))
	return data, nil
}
