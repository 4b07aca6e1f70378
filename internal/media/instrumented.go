package media

import (
	"context"
	"io"
	"strings"
)

// UploadRecorder はアップロード結果のメトリクス記録インターフェース。
type UploadRecorder interface {
	RecordUpload(kind string, success bool)
}

// InstrumentedStorage はStorageをラップし、アップロード結果を
// メディア種別ごとにメトリクスへ記録する。
type InstrumentedStorage struct {
	next     Storage
	recorder UploadRecorder
}

// NewInstrumentedStorage はInstrumentedStorageを生成する。
func NewInstrumentedStorage(next Storage, recorder UploadRecorder) *InstrumentedStorage {
	return &InstrumentedStorage{next: next, recorder: recorder}
}

// Upload は委譲して結果を記録する。種別はキーのプレフィックスから判定する。
func (s *InstrumentedStorage) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	url, err := s.next.Upload(ctx, key, contentType, body)
	s.recorder.RecordUpload(kindFromKey(key), err == nil)
	return url, err
}

// Delete は委譲する。削除はメトリクスの対象外。
func (s *InstrumentedStorage) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}

// ThumbnailURL は委譲する。
func (s *InstrumentedStorage) ThumbnailURL(key string) string {
	return s.next.ThumbnailURL(key)
}

// kindFromKey はオブジェクトキーのプレフィックス（avatars, reels, stories）を
// メディア種別として返す。
func kindFromKey(key string) string {
	prefix, _, found := strings.Cut(key, "/")
	if !found || prefix == "" {
		return "unknown"
	}
	return prefix
}

// compile-time interface check
var _ Storage = (*InstrumentedStorage)(nil)
