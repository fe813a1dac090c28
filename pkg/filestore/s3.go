package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Store struct {
	Endpoint string
	Region   string
	Bucket   string
	Prefix   string
	ak       string
	sk       string
	cli      *s3.Client
}

func NewS3Store(endpoint, region, bucket, prefix, ak, sk string) *S3Store {
	store := &S3Store{
		Endpoint: endpoint,
		Region:   region,
		Bucket:   bucket,
		Prefix:   prefix,
		ak:       ak,
		sk:       sk,
	}

	if err := store.setupClient(context.Background()); err != nil {
		panic(err)
	}

	return store
}

func (s *S3Store) setupClient(ctx context.Context) error {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: s.ak, SecretAccessKey: s.sk,
			},
		}),
		config.WithRegion(s.Region),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           s.Endpoint,
				SigningRegion: s.Region,
			}, nil
		})))
	if err != nil {
		return err
	}

	s.cli = s3.NewFromConfig(cfg)
	return nil
}

func (s *S3Store) key(fileID string) string {
	return strings.TrimPrefix(path.Join(s.Prefix, fileID), "/")
}

func (s *S3Store) GetFile(ctx context.Context, fileID string) (*File, error) {
	resp, err := s.cli.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(fileID)),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Error reading object body: %w", err)
	}

	return &File{
		OriginalName: path.Base(fileID),
		MimeType:     detectMime(content),
		Size:         int64(len(content)),
		Buffer:       content,
	}, nil
}

func (s *S3Store) SaveFile(ctx context.Context, fileID string, content []byte) error {
	uploader := manager.NewUploader(s.cli)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(fileID)),
		Body:   bytes.NewReader(content),
	})
	return err
}

func (s *S3Store) DeleteFile(ctx context.Context, fileID string) error {
	_, err := s.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(fileID)),
	})
	return err
}

func detectMime(content []byte) string {
	buffer := content
	if len(buffer) > 512 {
		buffer = buffer[:512]
	}
	return http.DetectContentType(buffer)
}
