// Package s3 archives scrubbed gateway transcripts to S3-compatible
// object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrTranscriptNotFound indicates the transcript object was not found.
var ErrTranscriptNotFound = errors.New("transcript not found")

// Config holds object storage configuration. Endpoint is optional; leave it
// empty for AWS, set it for R2 or MinIO.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
}

// TranscriptArchive stores one object per transaction under
// <prefix>/<gateway>/<transaction-id>.log.
type TranscriptArchive struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates a transcript archive.
func New(cfg Config) (*TranscriptArchive, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, errors.New("incomplete object storage configuration")
	}

	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // R2 and MinIO require path-style URLs
		}
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "transcripts"
	}

	return &TranscriptArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

// Store uploads a scrubbed transcript. The caller is responsible for
// scrubbing; nothing here inspects the payload.
func (a *TranscriptArchive) Store(ctx context.Context, gatewayName, transactionID, transcript string) error {
	key := a.key(gatewayName, transactionID)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          strings.NewReader(transcript),
		ContentLength: aws.Int64(int64(len(transcript))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put transcript: %w", err)
	}
	return nil
}

// Fetch downloads a stored transcript.
func (a *TranscriptArchive) Fetch(ctx context.Context, gatewayName, transactionID string) (string, error) {
	key := a.key(gatewayName, transactionID)

	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", ErrTranscriptNotFound
		}
		return "", fmt.Errorf("get transcript: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

func (a *TranscriptArchive) key(gatewayName, transactionID string) string {
	return a.prefix + "/" + gatewayName + "/" + transactionID + ".log"
}
