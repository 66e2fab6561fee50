package artifacts

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var contentTypes = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Publisher uploads run artifacts to an S3 compatible bucket.
type Publisher struct {
	client *minio.Client
	bucket string
}

func NewPublisher(cfg config.ObjectStore) (*Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &Publisher{client: client, bucket: cfg.Bucket}, nil
}

// ObjectKey is where an artifact file of a run is stored.
func ObjectKey(runID, file string) string {
	return path.Join(runID, filepath.Base(file))
}

// Publish uploads every artifact under <run_id>/<file name>, creating the
// bucket when it does not exist. It returns the object keys by kind.
func (p *Publisher) Publish(ctx context.Context, runID string, artifacts models.Artifacts) (map[models.ArtifactKind]string, error) {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", p.bucket, err)
	}

	if !exists {
		err = p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", p.bucket, err)
		}
	}

	kinds := make([]models.ArtifactKind, 0, len(artifacts))
	for kind := range artifacts {
		kinds = append(kinds, kind)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	published := make(map[models.ArtifactKind]string, len(kinds))

	for _, kind := range kinds {
		file := artifacts[kind]
		if file == "" || !fileExists(file) {
			continue
		}

		key := ObjectKey(runID, file)

		_, err := p.client.FPutObject(ctx, p.bucket, key, file, minio.PutObjectOptions{
			ContentType: contentTypes[filepath.Ext(file)],
		})
		if err != nil {
			return published, fmt.Errorf("failed to upload %s: %w", key, err)
		}

		published[kind] = key
	}

	return published, nil
}
