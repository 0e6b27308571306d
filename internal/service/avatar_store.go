package service

import (
	a "bitwise74/task-api/aws"
	"bitwise74/task-api/internal/store"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// AvatarStore keeps the normalized avatar of each user. Load returns
// store.ErrNotFound when the user has no avatar.
type AvatarStore interface {
	Save(ctx context.Context, userID string, png []byte) error
	Load(ctx context.Context, userID string) ([]byte, error)
	Delete(ctx context.Context, userID string) error
}

// DBAvatarStore keeps avatars in the users table
type DBAvatarStore struct {
	Store *store.Store
}

func (d *DBAvatarStore) Save(ctx context.Context, userID string, png []byte) error {
	return d.Store.SetAvatar(ctx, userID, png)
}

func (d *DBAvatarStore) Load(ctx context.Context, userID string) ([]byte, error) {
	return d.Store.AvatarOf(ctx, userID)
}

func (d *DBAvatarStore) Delete(ctx context.Context, userID string) error {
	return d.Store.SetAvatar(ctx, userID, nil)
}

// S3AvatarStore keeps avatars as avatars/<userID>.png objects in a bucket
type S3AvatarStore struct {
	S3       *a.S3Client
	Uploader *manager.Uploader
}

func NewS3AvatarStore(c *a.S3Client) *S3AvatarStore {
	return &S3AvatarStore{
		S3:       c,
		Uploader: manager.NewUploader(c.C),
	}
}

func avatarKey(userID string) *string {
	return aws.String("avatars/" + userID + ".png")
}

func (s *S3AvatarStore) Save(ctx context.Context, userID string, png []byte) error {
	_, err := s.Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        s.S3.Bucket,
		Key:           avatarKey(userID),
		Body:          bytes.NewReader(png),
		ContentLength: aws.Int64(int64(len(png))),
		ContentType:   aws.String("image/png"),
		CacheControl:  aws.String("public, max-age=300"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload avatar to s3, %w", err)
	}

	return nil
}

func (s *S3AvatarStore) Load(ctx context.Context, userID string) ([]byte, error) {
	out, err := s.S3.C.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.S3.Bucket,
		Key:    avatarKey(userID),
	})
	if err != nil {
		if isMissingObject(err) {
			return nil, store.ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch avatar from s3, %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar from s3, %w", err)
	}

	return data, nil
}

// Delete removes the object. A missing object is not an error.
func (s *S3AvatarStore) Delete(ctx context.Context, userID string) error {
	_, err := s.S3.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.S3.Bucket,
		Key:    avatarKey(userID),
	})
	if err != nil && !isMissingObject(err) {
		return fmt.Errorf("failed to delete avatar from s3, %w", err)
	}

	return nil
}

func isMissingObject(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}

	return false
}
