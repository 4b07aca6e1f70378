// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/feastverse/backend/internal/auth"
	"github.com/feastverse/backend/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Signup は資格情報を検証し、希望ユーザー名で新規ユーザーを登録して
	// トークンを発行する。
	Signup(ctx context.Context, credential, username string) (*auth.LoginResult, error)
	// Login は資格情報を検証し、登録済みユーザーのトークンを発行する。
	Login(ctx context.Context, credential string) (*auth.LoginResult, error)
	// CheckRegistered は資格情報を検証し、登録済みかどうかを返す。
	CheckRegistered(ctx context.Context, credential string) (bool, *model.User, error)
	// CheckUsername はユーザー名の可用性を調べる。
	CheckUsername(ctx context.Context, username string) (*auth.UsernameCheck, error)
}

// AuthHandler は連合認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// credentialRequest はGoogle資格情報を運ぶリクエストボディ。
type credentialRequest struct {
	Credential string `json:"credential"`
}

// loginResponse はサインアップ・ログイン成功時のレスポンス。
type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// signupRequest はサインアップリクエストのボディ。
type signupRequest struct {
	Credential string `json:"credential"`
	Username   string `json:"username"`
}

// Signup は連合認証によるサインアップを処理する。
// POST /auth/google-signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.Credential == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("credentialが空です"))
		return
	}

	result, err := h.service.Signup(r.Context(), req.Credential, req.Username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

// Login は連合認証によるログインを処理する。
// POST /auth/google-login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	credential, ok := decodeCredential(w, r)
	if !ok {
		return
	}

	result, err := h.service.Login(r.Context(), credential)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

// checkRegisteredResponse は登録状態チェックのレスポンス。
type checkRegisteredResponse struct {
	Registered bool          `json:"registered"`
	User       *userResponse `json:"user,omitempty"`
}

// CheckRegistered は資格情報の登録状態を返す。
// サインアップとログインのどちらへ誘導するかをクライアントが判断するために使う。
// POST /auth/check-google-user
func (h *AuthHandler) CheckRegistered(w http.ResponseWriter, r *http.Request) {
	credential, ok := decodeCredential(w, r)
	if !ok {
		return
	}

	registered, user, err := h.service.CheckRegistered(r.Context(), credential)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := checkRegisteredResponse{Registered: registered}
	if user != nil {
		u := toUserResponse(user)
		resp.User = &u
	}
	writeJSON(w, http.StatusOK, resp)
}

// checkUsernameResponse はユーザー名可用性チェックのレスポンス。
type checkUsernameResponse struct {
	Available   bool     `json:"available"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CheckUsername はユーザー名の可用性と候補を返す。
// GET /auth/check-username?username=xxx
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	check, err := h.service.CheckUsername(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkUsernameResponse{
		Available:   check.Available,
		Suggestions: check.Suggestions,
	})
}

// decodeCredential はリクエストボディから資格情報を取り出す。
// 不正なボディの場合はエラーレスポンスを書き込んでfalseを返す。
func decodeCredential(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return "", false
	}
	if req.Credential == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("credentialが空です"))
		return "", false
	}
	return req.Credential, true
}
