package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Config configures an S3 (or S3-compatible) bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicURL is the base URL objects are publicly reachable under.
	// Defaults to https://<bucket>.s3.<region>.amazonaws.com.
	PublicURL string
}

// S3 stores files as public-read objects in a bucket.
type S3 struct {
	client    s3iface.S3API
	bucket    string
	publicURL string
}

// NewS3 creates an S3 store from cfg. Static credentials are used when given,
// otherwise the SDK's default credential chain applies.
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return NewS3WithClient(s3.New(sess), cfg.Bucket, publicURL), nil
}

// NewS3WithClient creates an S3 store around an existing client.
func NewS3WithClient(client s3iface.S3API, bucket, publicURL string) *S3 {
	return &S3{client: client, bucket: bucket, publicURL: publicURL}
}

// Put uploads data as a public-read object.
func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           aws.String(s3.ObjectCannedACLPublicRead),
	})
	if err != nil {
		return fmt.Errorf("uploading %s to s3: %w", key, err)
	}
	return nil
}

// Delete removes the object. S3 treats deleting a missing key as success.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s from s3: %w", key, err)
	}
	return nil
}

// URL returns the public URL of the object.
func (s *S3) URL(key string) string {
	return joinURL(s.publicURL, key)
}
