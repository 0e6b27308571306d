// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type S3Client struct {
	C      *s3.Client
	Bucket *string
}

// S3Config holds the connection settings of the avatar bucket. Endpoint is
// only set for S3 compatible services and switches to path style addressing.
type S3Config struct {
	AccessKey       string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string
}

// NewClient builds an S3 client without contacting the service
func NewClient(ctx context.Context, c S3Config) (*S3Client, error) {
	if c.Bucket == "" {
		return nil, errors.New("no bucket provided")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config, %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		C:      client,
		Bucket: aws.String(c.Bucket),
	}, nil
}

// NewS3 builds a client and makes sure the bucket exists
func NewS3(ctx context.Context, c S3Config) (*S3Client, error) {
	client, err := NewClient(ctx, c)
	if err != nil {
		return nil, err
	}

	_, err = client.C.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: client.Bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", c.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return client, nil
}
