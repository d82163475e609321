package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-kit/log/level"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/types"
)

// S3Service stores vault blobs in a single bucket
type S3Service struct {
	env    *types.Environment
	bucket string
}

func NewS3Service(env *types.Environment, bucket string) *S3Service {
	if env == nil || env.S3Client == nil || env.S3Uploader == nil {
		panic("s3 client not configured")
	}
	return &S3Service{
		env:    env,
		bucket: bucket,
	}
}

// Upload stores content under key and returns its s3:// location
func (s3s *S3Service) Upload(ctx context.Context, key string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", types.ErrBadRequest
	}
	_, uErr := s3s.env.S3Uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if uErr != nil {
		level.Error(global.Logger).Log("msg", "failed to upload vault blob", "key", key, "error", uErr)
		return "", uErr
	}
	return fmt.Sprintf("s3://%s/%s", s3s.bucket, key), nil
}

// Download returns the object behind an s3:// location
func (s3s *S3Service) Download(ctx context.Context, location string) ([]byte, error) {
	key, err := s3s.keyFromLocation(location)
	if err != nil {
		return nil, err
	}
	out, gErr := s3s.env.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	if gErr != nil {
		return nil, mapS3Error(gErr, key)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete removes the object behind an s3:// location
func (s3s *S3Service) Delete(ctx context.Context, location string) error {
	key, err := s3s.keyFromLocation(location)
	if err != nil {
		return err
	}
	_, dErr := s3s.env.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3s.bucket),
		Key:    aws.String(key),
	})
	if dErr != nil {
		return mapS3Error(dErr, key)
	}
	return nil
}

func (s3s *S3Service) keyFromLocation(location string) (string, error) {
	prefix := "s3://" + s3s.bucket + "/"
	if !strings.HasPrefix(location, prefix) || len(location) == len(prefix) {
		return "", types.ErrBadRequest
	}
	return strings.TrimPrefix(location, prefix), nil
}

func mapS3Error(err error, key string) error {
	var noKey *s3Types.NoSuchKey
	var apiErr smithy.APIError
	if errors.As(err, &noKey) {
		level.Warn(global.Logger).Log("msg", "object does not exist", "objectKey", key)
		return types.ErrNotFound
	}
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return types.ErrNotFound
		case "AccessDenied":
			level.Warn(global.Logger).Log("msg", "access denied", "objectKey", key)
			return types.ErrNotAuthorized
		}
	}
	level.Error(global.Logger).Log("msg", "s3 request failed", "objectKey", key, "error", err)
	return err
}
