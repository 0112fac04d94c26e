package checks

import (
	"bytes"
	"context"
	"strings"

	"feed-merger/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// StorageReport describes the state of the feed bucket.
type StorageReport struct {
	Bucket  string   `json:"bucket"`
	Exists  bool     `json:"exists"`
	Missing []string `json:"missing"`
}

// CheckStorage reports whether the bucket and the given folders exist.
// When the bucket is missing every folder is reported missing.
func CheckStorage(ctx context.Context, client storage.Client, bucket string, folders []string) (*StorageReport, error) {
	report := &StorageReport{Bucket: bucket, Missing: []string{}}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	report.Exists = exists
	if !exists {
		report.Missing = append(report.Missing, folders...)
		return report, nil
	}

	for _, folder := range folders {
		opts := minio.ListObjectsOptions{
			Prefix:  folderPath(folder),
			MaxKeys: 1,
		}

		found := false
		for obj := range client.ListObjects(ctx, bucket, opts) {
			if obj.Err != nil {
				return nil, obj.Err
			}
			found = true
			break
		}

		if !found {
			report.Missing = append(report.Missing, folder)
		}
	}
	return report, nil
}

// FixStorage creates the bucket if needed and a marker object per missing folder.
func FixStorage(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger, missing []string) error {
	if err := storage.EnsureBucket(ctx, client, bucket, region); err != nil {
		return err
	}
	for _, folder := range missing {
		_, err := client.PutObject(ctx, bucket, folderPath(folder), bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", folder), zap.Error(err))
			return err
		}
		logger.Info("Created missing folder", zap.String("folder", folder))
	}
	return nil
}

func folderPath(folder string) string {
	if strings.HasSuffix(folder, "/") {
		return folder
	}
	return folder + "/"
}
