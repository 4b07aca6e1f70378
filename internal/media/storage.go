// Package media はメディアファイルの外部ストレージへの保存を提供する。
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Storage はメディアファイルの保存先インターフェース。
// アップロードは公開URLとホスト上の識別子（キー）を返す。
// 削除はベストエフォートで呼び出される前提のため冪等であること。
type Storage interface {
	// Upload はファイルを保存し、公開URLを返す。
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)

	// Delete は指定キーのファイルを削除する。存在しないキーはエラーにしない。
	Delete(ctx context.Context, key string) error

	// ThumbnailURL は動画キーからサムネイル画像の公開URLを導出する。
	ThumbnailURL(key string) string
}

// S3Config はS3互換ストレージ（Cloudflare R2等）の設定。
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	// PublicURL は配信用のベースURL。アップロード結果のURLに使用する。
	PublicURL string
}

// S3Storage はS3互換APIを使用したStorage実装。
type S3Storage struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Storage はS3互換ストレージのクライアントを初期化する。
func NewS3Storage(ctx context.Context, config S3Config) (*S3Storage, error) {
	endpoint := strings.TrimSuffix(config.Endpoint, "/")

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:    client,
		bucket:    config.Bucket,
		publicURL: strings.TrimSuffix(config.PublicURL, "/"),
	}, nil
}

// Upload はファイルを保存し、公開URLを返す。
func (s *S3Storage) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return s.publicURL + "/" + key, nil
}

// Delete は指定キーのファイルを削除する。
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ThumbnailURL は動画キーの拡張子をjpgに差し替えたサムネイルの公開URLを返す。
// サムネイル画像は配信ホスト側が動画キーと同じ場所に生成する。
func (s *S3Storage) ThumbnailURL(key string) string {
	base := strings.TrimSuffix(key, path.Ext(key))
	return s.publicURL + "/" + base + ".jpg"
}

// compile-time interface check
var _ Storage = (*S3Storage)(nil)
