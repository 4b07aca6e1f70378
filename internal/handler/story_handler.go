package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/feastverse/backend/internal/model"
)

// StoryServiceInterface はストーリーハンドラーが必要とするサービスインターフェース。
type StoryServiceInterface interface {
	// ListActive は失効していないストーリーを投稿者情報付きで返す。
	ListActive(ctx context.Context) ([]model.StoryWithAuthor, error)
	// Upload は画像をアップロードしてからストーリーを作成する。
	Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (*model.Story, error)
}

// StoryHandler はストーリーのHTTPハンドラー。
type StoryHandler struct {
	service       StoryServiceInterface
	uploadMaxSize int64
}

// NewStoryHandler はStoryHandlerを生成する。
func NewStoryHandler(service StoryServiceInterface, uploadMaxSize int64) *StoryHandler {
	return &StoryHandler{
		service:       service,
		uploadMaxSize: uploadMaxSize,
	}
}

// storyResponse はストーリーのAPIレスポンス。
type storyResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ImageURL  string    `json:"image_url"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// storyWithAuthorResponse は投稿者情報付きストーリーのAPIレスポンス。
type storyWithAuthorResponse struct {
	storyResponse
	UserName     string `json:"user_name"`
	UserUsername string `json:"user_username"`
	UserPicture  string `json:"user_picture,omitempty"`
}

// toStoryResponse はドメインのStoryをAPIレスポンスに変換する。
func toStoryResponse(story *model.Story) storyResponse {
	return storyResponse{
		ID:        story.ID,
		UserID:    story.UserID,
		ImageURL:  story.ImageURL,
		ExpiresAt: story.ExpiresAt,
		CreatedAt: story.CreatedAt,
	}
}

// ListActive は有効なストーリー一覧を返す。
// GET /api/stories
func (h *StoryHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	stories, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]storyWithAuthorResponse, len(stories))
	for i, story := range stories {
		resp[i] = storyWithAuthorResponse{
			storyResponse: toStoryResponse(&story.Story),
			UserName:      story.UserName,
			UserUsername:  story.UserUsername,
			UserPicture:   story.UserPicture,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Upload はストーリーの投稿を処理する。
// POST /api/stories (multipart/form-data, field: file)
func (h *StoryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	file, header, ok := openUploadedFile(w, r, h.uploadMaxSize)
	if !ok {
		return
	}
	defer file.Close()

	story, err := h.service.Upload(r.Context(), userID,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStoryResponse(story))
}
