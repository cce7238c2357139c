package objectclient

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	cfg "github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
)

var _ core.ObjectClient = (*S3Client)(nil)

// s3API is the slice of the S3 client the source reader needs.
type s3API interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
}

type S3Client struct {
	client s3API
}

func NewS3Client(ctx context.Context, cfg *cfg.Config) (*S3Client, error) {
	if cfg.AwsAccessKey == "" || cfg.AwsSecretKey == "" {
		return nil, fmt.Errorf("%w: AWS credentials not set", core.ErrConfig)
	}
	if cfg.AwsRegion == "" {
		return nil, fmt.Errorf("%w: AWS_REGION not set", core.ErrConfig)
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.AwsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", core.ErrConfig, err)
	}

	slog.Default().Info("s3 client configured", "component", "object-storage", "region", cfg.AwsRegion)
	return newS3Client(s3.NewFromConfig(awsCfg)), nil
}

func newS3Client(api s3API) *S3Client {
	return &S3Client{client: api}
}

// ListObjects returns the keys directly under prefix. Keys in deeper
// "directories" are folded into common prefixes by the delimiter and skipped.
func (c *S3Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	ctxList, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	p := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctxList)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// GetFile downloads a whole object into memory with the ranged, concurrent
// s3 manager downloader.
func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	buf := manager.NewWriteAtBuffer(nil)
	_, err := manager.NewDownloader(c.client).Download(ctxGet, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	return buf.Bytes(), nil
}
