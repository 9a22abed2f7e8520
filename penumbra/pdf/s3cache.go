package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

var ErrNotCached = errors.New("pdf not found in cache")

// S3Cache stores downloaded pdfs under pdfs/<name>.pdf in a shared bucket.
type S3Cache struct {
	bucket string
	client *s3.Client
}

func NewS3Cache(ctx context.Context, bucket string) (*S3Cache, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Cache{bucket: bucket, client: s3.NewFromConfig(cfg)}, nil
}

func (c *S3Cache) key(name string) string {
	return fmt.Sprintf("pdfs/%s.pdf", name)
}

// Get copies the cached pdf to target. Returns ErrNotCached on a miss.
func (c *S3Cache) Get(ctx context.Context, name, target string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return ErrNotCached
		}
		return fmt.Errorf("error retrieving file from S3 cache: %w", err)
	}
	defer resp.Body.Close()

	file, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(target)
		return fmt.Errorf("failed to write data to file: %w", err)
	}

	return nil
}

// Put uploads the pdf at path unless the key already exists; existing cache
// entries are never overwritten.
func (c *S3Cache) Put(ctx context.Context, name, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
	})
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "NotFound" {
		return fmt.Errorf("failed to check if object exists in S3: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed reading file to upload to S3 cache: %w", err)
	}
	defer file.Close()

	_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
		Body:   file,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3 cache: %w", err)
	}

	return nil
}

// Delete removes a cached pdf. Used by tests and manual cleanup.
func (c *S3Cache) Delete(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(name)),
	})
	if err != nil {
		return fmt.Errorf("error deleting key %s from cache: %v", c.key(name), err)
	}
	return nil
}
