package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const testClientID = "test-client-id.apps.googleusercontent.com"

// newTestKeyAndJWKS はテスト用のRSA鍵と対応するJWKSサーバーを生成する。
func newTestKeyAndJWKS(t *testing.T, kid string) (*rsa.PrivateKey, *httptest.Server) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}

	jwks := map[string]interface{}{
		"keys": []map[string]string{
			{
				"kid": kid,
				"kty": "RSA",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(jwks)
	}))
	t.Cleanup(server.Close)

	return key, server
}

// signTestIDToken はテスト用のGoogle IDトークンを署名する。
func signTestIDToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func googleClaims(overrides map[string]interface{}) jwt.MapClaims {
	claims := jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testClientID,
		"sub":            "google-sub-1",
		"email":          "taro@example.com",
		"email_verified": true,
		"name":           "Taro",
		"picture":        "https://example.com/taro.png",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range overrides {
		claims[k] = v
	}
	return claims
}

// TestGoogleVerifier_IDToken は署名付きIDトークン経路での正規化を確認する。
func TestGoogleVerifier_IDToken(t *testing.T) {
	key, jwksServer := newTestKeyAndJWKS(t, "test-kid")

	verifier := NewGoogleVerifier(GoogleVerifierConfig{
		ClientID: testClientID,
		CertsURL: jwksServer.URL,
		// userinfo経路へのフォールバックが発生しないことを保証する
		UserInfoURL: "http://127.0.0.1:0/unreachable",
	})

	credential := signTestIDToken(t, key, "test-kid", googleClaims(nil))

	claims, err := verifier.Normalize(context.Background(), credential)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if claims.SubjectID != "google-sub-1" {
		t.Errorf("expected subject google-sub-1, got %s", claims.SubjectID)
	}
	if claims.Email != "taro@example.com" {
		t.Errorf("expected email taro@example.com, got %s", claims.Email)
	}
	if !claims.EmailVerified {
		t.Error("expected email_verified to be true")
	}
}

// TestGoogleVerifier_IDToken_WrongAudience はaudience不一致のIDトークンが
// 拒否されることを確認する。
func TestGoogleVerifier_IDToken_WrongAudience(t *testing.T) {
	key, jwksServer := newTestKeyAndJWKS(t, "test-kid")

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer userInfoServer.Close()

	verifier := NewGoogleVerifier(GoogleVerifierConfig{
		ClientID:    testClientID,
		CertsURL:    jwksServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	credential := signTestIDToken(t, key, "test-kid",
		googleClaims(map[string]interface{}{"aud": "other-client-id"}))

	_, err := verifier.Normalize(context.Background(), credential)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredential)
}

// TestGoogleVerifier_IDToken_WrongIssuer は発行者不一致のIDトークンが
// 拒否されることを確認する。
func TestGoogleVerifier_IDToken_WrongIssuer(t *testing.T) {
	key, jwksServer := newTestKeyAndJWKS(t, "test-kid")

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer userInfoServer.Close()

	verifier := NewGoogleVerifier(GoogleVerifierConfig{
		ClientID:    testClientID,
		CertsURL:    jwksServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	credential := signTestIDToken(t, key, "test-kid",
		googleClaims(map[string]interface{}{"iss": "https://evil.example.com"}))

	_, err := verifier.Normalize(context.Background(), credential)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredential)
}

// TestGoogleVerifier_AccessTokenFallback はIDトークンとして解釈できない
// 資格情報がuserinfo経路で正規化されることを確認する。
func TestGoogleVerifier_AccessTokenFallback(t *testing.T) {
	_, jwksServer := newTestKeyAndJWKS(t, "test-kid")

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer opaque-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": "invalid_token"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "google-sub-2",
			"email":          "hanako@example.com",
			"verified_email": true,
			"name":           "Hanako",
			"picture":        "https://example.com/hanako.png",
		})
	}))
	defer userInfoServer.Close()

	verifier := NewGoogleVerifier(GoogleVerifierConfig{
		ClientID:    testClientID,
		CertsURL:    jwksServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	claims, err := verifier.Normalize(context.Background(), "opaque-access-token")
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if claims.SubjectID != "google-sub-2" {
		t.Errorf("expected subject google-sub-2, got %s", claims.SubjectID)
	}
	if claims.Name != "Hanako" {
		t.Errorf("expected name Hanako, got %s", claims.Name)
	}
}

// TestGoogleVerifier_BothPathsFail は両経路の失敗がINVALID_CREDENTIALに
// 集約されることを確認する。
func TestGoogleVerifier_BothPathsFail(t *testing.T) {
	_, jwksServer := newTestKeyAndJWKS(t, "test-kid")

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "invalid_token"}`)
	}))
	defer userInfoServer.Close()

	verifier := NewGoogleVerifier(GoogleVerifierConfig{
		ClientID:    testClientID,
		CertsURL:    jwksServer.URL,
		UserInfoURL: userInfoServer.URL,
	})

	_, err := verifier.Normalize(context.Background(), "garbage-credential")
	assertAPIErrorCode(t, err, model.ErrCodeInvalidCredential)
}

// TestGoogleVerifier_KeyCache はJWKSの取得が初回のみ行われることを確認する。
func TestGoogleVerifier_KeyCache(t *testing.T) {
	key, _ := newTestKeyAndJWKS(t, "test-kid")

	var fetchCount int
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetchCount++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{
				{
					"kid": "test-kid",
					"kty": "RSA",
					"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
				},
			},
		})
	}))
	defer jwksServer.Close()

	verifier := NewGoogleVerifier(GoogleVerifierConfig{
		ClientID:    testClientID,
		CertsURL:    jwksServer.URL,
		UserInfoURL: "http://127.0.0.1:0/unreachable",
	})

	for i := 0; i < 3; i++ {
		credential := signTestIDToken(t, key, "test-kid", googleClaims(nil))
		if _, err := verifier.Normalize(context.Background(), credential); err != nil {
			t.Fatalf("Normalize %d failed: %v", i, err)
		}
	}

	if fetchCount != 1 {
		t.Errorf("expected 1 JWKS fetch, got %d", fetchCount)
	}
}
