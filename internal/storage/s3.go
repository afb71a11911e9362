package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/flowmetrics/semgraph/internal/util"
	"github.com/flowmetrics/semgraph/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client builds an S3 client from AWS_* environment configuration.
// Returns nil when the config cannot be loaded; artifact upload is optional
// and callers treat a nil client as "disabled".
func NewS3Client(ctx context.Context) *s3.Client {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}

// PutFile uploads a blob under the given key, inferring the content type
// from the key's extension.
func PutFile(ctx context.Context, client *s3.Client, key string, body io.ReadSeeker) error {
	bucket := util.GetEnvString("AWS_BUCKET", "semgraph")
	mimeType := mime.TypeByExtension(filepath.Ext(key))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	return nil
}

// GetFile downloads the object stored under key.
func GetFile(ctx context.Context, client *s3.Client, key string) ([]byte, error) {
	bucket := util.GetEnvString("AWS_BUCKET", "semgraph")
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from S3: %w", key, err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, result.Body); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// UploadGraphArtifacts pushes the build artifacts for graph name from dir
// to S3 under prefix. A nil client disables the upload silently.
func UploadGraphArtifacts(ctx context.Context, client *s3.Client, dir, name, prefix string) error {
	if client == nil {
		return nil
	}

	artifacts := []string{
		name + "_nodes.json",
		name + "_edges.json",
		name + ".edgelist",
		"graph_summary.json",
	}
	for _, artifact := range artifacts {
		path := filepath.Join(dir, artifact)
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open artifact %s: %w", path, err)
		}
		key := prefix + "/" + artifact
		err = PutFile(ctx, client, key, f)
		f.Close()
		if err != nil {
			return err
		}
	}

	logger.Info("[Storage] Artifacts uploaded", "prefix", prefix, "count", len(artifacts))
	return nil
}

// GenerateDownloadLink presigns a 15 minute GET link for the given key.
func GenerateDownloadLink(ctx context.Context, client *s3.Client, key string) (string, error) {
	bucket := util.GetEnvString("AWS_BUCKET", "semgraph")

	presigner := s3.NewPresignClient(client)
	out, err := presigner.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		s3.WithPresignExpires(15*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate download link: %w", err)
	}
	return out.URL, nil
}
