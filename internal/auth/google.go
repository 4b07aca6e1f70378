package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultGoogleCertsURL    = "https://www.googleapis.com/oauth2/v3/certs"
	defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	googleIssuer    = "https://accounts.google.com"
	googleIssuerAlt = "accounts.google.com"

	// certsCacheTTL はGoogle署名鍵のキャッシュ保持時間。
	certsCacheTTL = 1 * time.Hour
)

// GoogleVerifierConfig はGoogle IdPアダプタの設定。
type GoogleVerifierConfig struct {
	ClientID string

	// テスト用にオーバーライド可能なURL
	CertsURL    string
	UserInfoURL string

	// HTTPClient は外部呼び出しに使用するクライアント。
	// 未指定の場合はタイムアウト付きのデフォルトクライアントを使用する。
	HTTPClient *http.Client
}

// GoogleVerifier はGoogleの資格情報を正規化済みクレームに変換する。
// IDトークン（署名付きアサーション）とアクセストークンの両方を受け付け、
// どちらの経路で検証されても同じIdentityClaimsを返す。
type GoogleVerifier struct {
	config GoogleVerifierConfig
	client *http.Client

	mu           sync.Mutex
	cachedKeys   map[string]*rsa.PublicKey
	keysFetchedAt time.Time
}

// NewGoogleVerifier はGoogleVerifierを生成する。
func NewGoogleVerifier(config GoogleVerifierConfig) *GoogleVerifier {
	if config.CertsURL == "" {
		config.CertsURL = defaultGoogleCertsURL
	}
	if config.UserInfoURL == "" {
		config.UserInfoURL = defaultGoogleUserInfoURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleVerifier{
		config: config,
		client: client,
	}
}

// Normalize は資格情報を検証し、正規化済みクレームを返す。
// 1. IDトークンとして署名・発行者・audienceを検証する。
// 2. 構造・署名起因で失敗した場合はアクセストークンとみなし、
//    userinfoエンドポイントからプロフィールを取得する。
// どちらの経路も失敗した場合はInvalidCredentialを返す。
func (v *GoogleVerifier) Normalize(ctx context.Context, credential string) (*model.IdentityClaims, error) {
	claims, idTokenErr := v.verifyIDToken(ctx, credential)
	if idTokenErr == nil {
		return claims, nil
	}

	claims, userInfoErr := v.fetchUserInfo(ctx, credential)
	if userInfoErr == nil {
		return claims, nil
	}

	return nil, model.NewInvalidCredentialError(
		fmt.Errorf("id token verification failed (%w); userinfo lookup failed (%w)", idTokenErr, userInfoErr),
	)
}

// googleIDTokenClaims はGoogle IDトークンのペイロード。
type googleIDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// verifyIDToken は資格情報をGoogle署名付きIDトークンとして検証する。
func (v *GoogleVerifier) verifyIDToken(ctx context.Context, credential string) (*model.IdentityClaims, error) {
	claims := &googleIDTokenClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.signingKey(ctx, kid)
	},
		jwt.WithAudience(v.config.ClientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid id token")
	}

	if claims.Issuer != googleIssuer && claims.Issuer != googleIssuerAlt {
		return nil, fmt.Errorf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, errors.New("empty sub claim")
	}

	return &model.IdentityClaims{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		Picture:       claims.Picture,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// googleUserInfo はGoogleのuserinfoエンドポイント（v2）のレスポンス。
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	VerifiedEmail bool   `json:"verified_email"`
}

// fetchUserInfo は資格情報をアクセストークンとしてプロフィールを取得する。
func (v *GoogleVerifier) fetchUserInfo(ctx context.Context, accessToken string) (*model.IdentityClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info response: %w", err)
	}

	if userInfo.ID == "" {
		return nil, errors.New("empty id in user info response")
	}

	return &model.IdentityClaims{
		SubjectID:     userInfo.ID,
		Email:         userInfo.Email,
		Name:          userInfo.Name,
		Picture:       userInfo.Picture,
		EmailVerified: userInfo.VerifiedEmail,
	}, nil
}

// signingKey はkidに対応するGoogleの公開鍵を返す。
// 鍵セットはcertsCacheTTLの間キャッシュし、未知のkidの場合は再取得する。
func (v *GoogleVerifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.cachedKeys[kid]; ok && time.Since(v.keysFetchedAt) < certsCacheTTL {
		return key, nil
	}

	keys, err := v.fetchSigningKeys(ctx)
	if err != nil {
		return nil, err
	}
	v.cachedKeys = keys
	v.keysFetchedAt = time.Now()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("no signing key for kid %q", kid)
	}
	return key, nil
}

// jwksResponse はGoogleのJWKSエンドポイントのレスポンス。
type jwksResponse struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// fetchSigningKeys はGoogleのJWKSエンドポイントからRSA公開鍵を取得する。
func (v *GoogleVerifier) fetchSigningKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.CertsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create certs request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("certs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("certs fetch failed with status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to parse certs response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kty != "RSA" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("failed to decode modulus for kid %q: %w", k.Kid, err)
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("failed to decode exponent for kid %q: %w", k.Kid, err)
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(nBytes),
			E: int(new(big.Int).SetBytes(eBytes).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no RSA keys in certs response")
	}

	return keys, nil
}

// compile-time interface check
var _ IdentityVerifier = (*GoogleVerifier)(nil)
