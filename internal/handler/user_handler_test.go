package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feastverse/backend/internal/model"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	updateProfileFn         func(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error)
	setAvatarFn             func(ctx context.Context, userID, filename, contentType string, body io.Reader) (*model.User, error)
	getByUsernameFn         func(ctx context.Context, username string) (*model.User, error)
	followRestaurantFn      func(ctx context.Context, userID, restaurantID string) error
	unfollowRestaurantFn    func(ctx context.Context, userID, restaurantID string) error
	subscribeRestaurantFn   func(ctx context.Context, userID, restaurantID string) error
	unsubscribeRestaurantFn func(ctx context.Context, userID, restaurantID string) error
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, patch)
	}
	return nil, nil
}

func (m *mockUserService) SetAvatar(ctx context.Context, userID, filename, contentType string, body io.Reader) (*model.User, error) {
	if m.setAvatarFn != nil {
		return m.setAvatarFn(ctx, userID, filename, contentType, body)
	}
	return nil, nil
}

func (m *mockUserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserService) FollowRestaurant(ctx context.Context, userID, restaurantID string) error {
	if m.followRestaurantFn != nil {
		return m.followRestaurantFn(ctx, userID, restaurantID)
	}
	return nil
}

func (m *mockUserService) UnfollowRestaurant(ctx context.Context, userID, restaurantID string) error {
	if m.unfollowRestaurantFn != nil {
		return m.unfollowRestaurantFn(ctx, userID, restaurantID)
	}
	return nil
}

func (m *mockUserService) SubscribeRestaurant(ctx context.Context, userID, restaurantID string) error {
	if m.subscribeRestaurantFn != nil {
		return m.subscribeRestaurantFn(ctx, userID, restaurantID)
	}
	return nil
}

func (m *mockUserService) UnsubscribeRestaurant(ctx context.Context, userID, restaurantID string) error {
	if m.unsubscribeRestaurantFn != nil {
		return m.unsubscribeRestaurantFn(ctx, userID, restaurantID)
	}
	return nil
}

// mockCurrentUserGetter はCurrentUserGetterのモック実装。
type mockCurrentUserGetter struct {
	currentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockCurrentUserGetter) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return nil, nil
}

const testUploadMaxSize = 10 << 20

// newMultipartRequest はテスト用のmultipart/form-dataリクエストを組み立てるヘルパー。
func newMultipartRequest(t *testing.T, method, target, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(uploadFileField, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// --- GET /api/me テスト ---

func TestUserHandler_Me_Success(t *testing.T) {
	getter := &mockCurrentUserGetter{
		currentUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return testUser(), nil
		},
	}
	h := NewUserHandler(&mockUserService{}, getter, testUploadMaxSize)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["email"] != "taro@example.com" {
		t.Errorf("email = %v, want %q", result["email"], "taro@example.com")
	}
}

func TestUserHandler_Me_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockCurrentUserGetter{}, testUploadMaxSize)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- PATCH /api/me テスト ---

func TestUserHandler_UpdateMe_PartialPatch(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error) {
			if patch.Username == nil || *patch.Username != "hanako" {
				t.Errorf("patch.Username = %v, want %q", patch.Username, "hanako")
			}
			if patch.Bio != nil {
				t.Errorf("patch.Bio = %v, want nil", patch.Bio)
			}
			u := testUser()
			u.Username = "hanako"
			return u, nil
		},
	}
	h := NewUserHandler(svc, &mockCurrentUserGetter{}, testUploadMaxSize)

	body := `{"username": "hanako"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/me", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUserHandler_UpdateMe_UsernameTaken_ReturnsConflict(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error) {
			return nil, model.NewUsernameTakenError("hanako")
		},
	}
	h := NewUserHandler(svc, &mockCurrentUserGetter{}, testUploadMaxSize)

	body := `{"username": "hanako"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/me", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeUsernameTaken {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeUsernameTaken)
	}
}

// --- POST /api/me/avatar テスト ---

func TestUserHandler_UploadAvatar_Success(t *testing.T) {
	svc := &mockUserService{
		setAvatarFn: func(ctx context.Context, userID, filename, contentType string, body io.Reader) (*model.User, error) {
			if filename != "avatar.png" {
				t.Errorf("filename = %q, want %q", filename, "avatar.png")
			}
			content, _ := io.ReadAll(body)
			if string(content) != "png-bytes" {
				t.Errorf("content = %q, want %q", content, "png-bytes")
			}
			u := testUser()
			u.Picture = "https://media.example.com/avatars/new.png"
			return u, nil
		},
	}
	h := NewUserHandler(svc, &mockCurrentUserGetter{}, testUploadMaxSize)

	req := newMultipartRequest(t, http.MethodPost, "/api/me/avatar", "avatar.png", []byte("png-bytes"), nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UploadAvatar(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestUserHandler_UploadAvatar_MissingFile_ReturnsBadRequest(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockCurrentUserGetter{}, testUploadMaxSize)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "no file here")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UploadAvatar(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_UploadAvatar_TooLarge_ReturnsEntityTooLarge(t *testing.T) {
	h := NewUserHandler(&mockUserService{}, &mockCurrentUserGetter{}, 16)

	req := newMultipartRequest(t, http.MethodPost, "/api/me/avatar", "avatar.png", bytes.Repeat([]byte("x"), 1024), nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UploadAvatar(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

// --- GET /api/users/{username} テスト ---

func TestUserHandler_PublicProfile_HidesPrivateFields(t *testing.T) {
	svc := &mockUserService{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			u := testUser()
			u.Phone = "090-0000-0000"
			return u, nil
		},
	}
	h := NewUserHandler(svc, &mockCurrentUserGetter{}, testUploadMaxSize)

	req := httptest.NewRequest(http.MethodGet, "/api/users/taro", nil)
	req = withChiURLParam(req, "username", "taro")
	w := httptest.NewRecorder()

	h.PublicProfile(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := result["email"]; ok {
		t.Error("email should not be exposed in public profile")
	}
	if _, ok := result["phone"]; ok {
		t.Error("phone should not be exposed in public profile")
	}
	if result["username"] != "taro" {
		t.Errorf("username = %v, want %q", result["username"], "taro")
	}
}

func TestUserHandler_PublicProfile_NotFound(t *testing.T) {
	svc := &mockUserService{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(svc, &mockCurrentUserGetter{}, testUploadMaxSize)

	req := httptest.NewRequest(http.MethodGet, "/api/users/ghost", nil)
	req = withChiURLParam(req, "username", "ghost")
	w := httptest.NewRecorder()

	h.PublicProfile(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- フォロー・購読テスト ---

func TestUserHandler_FollowRestaurant_ReturnsNoContent(t *testing.T) {
	called := false
	svc := &mockUserService{
		followRestaurantFn: func(ctx context.Context, userID, restaurantID string) error {
			called = true
			if restaurantID != "rest-1" {
				t.Errorf("restaurantID = %q, want %q", restaurantID, "rest-1")
			}
			return nil
		},
	}
	h := NewUserHandler(svc, &mockCurrentUserGetter{}, testUploadMaxSize)

	req := httptest.NewRequest(http.MethodPost, "/api/restaurants/rest-1/follow", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "rest-1")
	w := httptest.NewRecorder()

	h.FollowRestaurant(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if !called {
		t.Error("FollowRestaurant was not called")
	}
}

func TestUserHandler_UnsubscribeRestaurant_NotFound(t *testing.T) {
	svc := &mockUserService{
		unsubscribeRestaurantFn: func(ctx context.Context, userID, restaurantID string) error {
			return model.NewRestaurantNotFoundError(restaurantID)
		},
	}
	h := NewUserHandler(svc, &mockCurrentUserGetter{}, testUploadMaxSize)

	req := httptest.NewRequest(http.MethodDelete, "/api/restaurants/rest-x/subscribe", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "rest-x")
	w := httptest.NewRecorder()

	h.UnsubscribeRestaurant(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
