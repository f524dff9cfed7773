// Package s3 publishes generated reports to an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

const keyTimeLayout = "20060102T150405Z"

// PutObjectAPI is the subset of the S3 client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

type Publisher struct {
	client PutObjectAPI
	bucket string
	prefix string
}

func NewPublisher(client PutObjectAPI, bucket, prefix string) *Publisher {
	return &Publisher{client: client, bucket: bucket, prefix: prefix}
}

// NewFromConfig builds a publisher on the default AWS credential chain.
func NewFromConfig(ctx context.Context, bucket, prefix, region string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return NewPublisher(awss3.NewFromConfig(cfg), bucket, prefix), nil
}

// Key is the object key doc is stored under.
func (p *Publisher) Key(doc *domain.Document) string {
	name := doc.GeneratedAt.UTC().Format(keyTimeLayout) + "-" + doc.FileName
	return path.Join(p.prefix, name)
}

// Publish uploads doc and returns its s3:// URL.
func (p *Publisher) Publish(ctx context.Context, doc *domain.Document) (string, error) {
	key := p.Key(doc)
	_, err := p.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(doc.Content),
		ContentType:   aws.String(doc.MimeType),
		ContentLength: aws.Int64(int64(len(doc.Content))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report to s3://%s/%s: %w", p.bucket, key, err)
	}

	url := fmt.Sprintf("s3://%s/%s", p.bucket, key)
	zerolog.Ctx(ctx).Info().Str("url", url).Msg("report published")
	return url, nil
}
