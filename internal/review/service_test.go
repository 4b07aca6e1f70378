package review

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/rating"
	"github.com/feastverse/backend/internal/repository"
	"github.com/feastverse/backend/internal/security"
)

// mockReviewRepo はテスト用のレビューリポジトリモック。
type mockReviewRepo struct {
	repository.ReviewRepository
	findByIDFunc                func(ctx context.Context, id string) (*model.Review, error)
	findByUserAndRestaurantFunc func(ctx context.Context, userID, restaurantID string) (*model.Review, error)
	listByRestaurantFunc        func(ctx context.Context, restaurantID string, limit int) ([]model.ReviewWithAuthor, error)
	listByUserFunc              func(ctx context.Context, userID string, limit int) ([]*model.Review, error)
	listRatingsFunc             func(ctx context.Context, restaurantID string) ([]int, error)
	createFunc                  func(ctx context.Context, review *model.Review) error
	deleteFunc                  func(ctx context.Context, id string) error
}

func (m *mockReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockReviewRepo) FindByUserAndRestaurant(ctx context.Context, userID, restaurantID string) (*model.Review, error) {
	return m.findByUserAndRestaurantFunc(ctx, userID, restaurantID)
}

func (m *mockReviewRepo) ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]model.ReviewWithAuthor, error) {
	return m.listByRestaurantFunc(ctx, restaurantID, limit)
}

func (m *mockReviewRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Review, error) {
	return m.listByUserFunc(ctx, userID, limit)
}

func (m *mockReviewRepo) ListRatingsByRestaurant(ctx context.Context, restaurantID string) ([]int, error) {
	return m.listRatingsFunc(ctx, restaurantID)
}

func (m *mockReviewRepo) Create(ctx context.Context, review *model.Review) error {
	return m.createFunc(ctx, review)
}

func (m *mockReviewRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

// mockRestaurantRepo はテスト用のレストランリポジトリモック。
type mockRestaurantRepo struct {
	repository.RestaurantRepository
	findByIDFunc     func(ctx context.Context, id string) (*model.Restaurant, error)
	updateRatingFunc func(ctx context.Context, restaurantID string, rating float64) error
}

func (m *mockRestaurantRepo) FindByID(ctx context.Context, id string) (*model.Restaurant, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockRestaurantRepo) UpdateRating(ctx context.Context, restaurantID string, rating float64) error {
	return m.updateRatingFunc(ctx, restaurantID, rating)
}

func newTestService(reviews *mockReviewRepo, restaurants *mockRestaurantRepo) *Service {
	agg := rating.NewAggregator(reviews, restaurants)
	svc := NewService(reviews, restaurants, agg, security.NewContentSanitizer(), slog.Default())
	svc.newID = func() string { return "review-id" }
	return svc
}

func foundRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	return &model.Restaurant{ID: id}, nil
}

// TestService_Create はレビュー投稿後に評価が再計算されることを確認する。
func TestService_Create(t *testing.T) {
	var created *model.Review
	reviews := &mockReviewRepo{
		findByUserAndRestaurantFunc: func(ctx context.Context, userID, restaurantID string) (*model.Review, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, review *model.Review) error {
			created = review
			return nil
		},
		listRatingsFunc: func(ctx context.Context, restaurantID string) ([]int, error) {
			return []int{4, 5, 3}, nil
		},
	}
	var savedRating float64
	restaurants := &mockRestaurantRepo{
		findByIDFunc: foundRestaurant,
		updateRatingFunc: func(ctx context.Context, restaurantID string, rating float64) error {
			savedRating = rating
			return nil
		},
	}

	svc := newTestService(reviews, restaurants)

	review, err := svc.Create(context.Background(), "user-1", "restaurant-1", 4,
		`雰囲気が良い<script>alert("xss")</script>お店でした`)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created == nil {
		t.Fatal("expected review to be created")
	}
	if review.Text != "雰囲気が良いお店でした" {
		t.Errorf("expected sanitized text, got %q", review.Text)
	}
	if savedRating != 4.0 {
		t.Errorf("expected recomputed rating 4.0, got %v", savedRating)
	}
}

// TestService_Create_Duplicate は同一レストランへの2件目の投稿が
// DUPLICATE_REVIEWになることを確認する。
func TestService_Create_Duplicate(t *testing.T) {
	reviews := &mockReviewRepo{
		findByUserAndRestaurantFunc: func(ctx context.Context, userID, restaurantID string) (*model.Review, error) {
			return &model.Review{ID: "existing"}, nil
		},
	}
	restaurants := &mockRestaurantRepo{findByIDFunc: foundRestaurant}

	svc := newTestService(reviews, restaurants)

	_, err := svc.Create(context.Background(), "user-1", "restaurant-1", 4, "2回目")
	assertAPIErrorCode(t, err, model.ErrCodeDuplicateReview)
}

// TestService_Create_InvalidRating は範囲外の評価がINVALID_REQUESTになることを確認する。
func TestService_Create_InvalidRating(t *testing.T) {
	svc := newTestService(&mockReviewRepo{}, &mockRestaurantRepo{})

	for _, ratingValue := range []int{0, 6, -1} {
		_, err := svc.Create(context.Background(), "user-1", "restaurant-1", ratingValue, "text")
		assertAPIErrorCode(t, err, model.ErrCodeInvalidRequest)
	}
}

// TestService_Create_RestaurantNotFound は存在しないレストランへの投稿が
// RESTAURANT_NOT_FOUNDになることを確認する。
func TestService_Create_RestaurantNotFound(t *testing.T) {
	restaurants := &mockRestaurantRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Restaurant, error) {
			return nil, nil
		},
	}

	svc := newTestService(&mockReviewRepo{}, restaurants)

	_, err := svc.Create(context.Background(), "user-1", "missing", 4, "text")
	assertAPIErrorCode(t, err, model.ErrCodeRestaurantNotFound)
}

// TestService_Delete は削除後に評価が再計算されることを確認する。
func TestService_Delete(t *testing.T) {
	deleted := false
	reviews := &mockReviewRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Review, error) {
			return &model.Review{ID: id, UserID: "user-1", RestaurantID: "restaurant-1", Rating: 3}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
		listRatingsFunc: func(ctx context.Context, restaurantID string) ([]int, error) {
			return []int{4, 5}, nil
		},
	}
	var savedRating float64
	restaurants := &mockRestaurantRepo{
		findByIDFunc: foundRestaurant,
		updateRatingFunc: func(ctx context.Context, restaurantID string, rating float64) error {
			savedRating = rating
			return nil
		},
	}

	svc := newTestService(reviews, restaurants)

	if err := svc.Delete(context.Background(), "user-1", "review-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !deleted {
		t.Error("expected review to be deleted")
	}
	if savedRating != 4.5 {
		t.Errorf("expected recomputed rating 4.5, got %v", savedRating)
	}
}

// TestService_Delete_Forbidden は他人のレビュー削除がFORBIDDENになることを確認する。
func TestService_Delete_Forbidden(t *testing.T) {
	reviews := &mockReviewRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Review, error) {
			return &model.Review{ID: id, UserID: "user-2"}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			t.Fatal("review should not be deleted")
			return nil
		},
	}

	svc := newTestService(reviews, &mockRestaurantRepo{})

	err := svc.Delete(context.Background(), "user-1", "review-1")
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

// TestService_Delete_NotFound は存在しないレビューの削除が
// REVIEW_NOT_FOUNDになることを確認する。
func TestService_Delete_NotFound(t *testing.T) {
	reviews := &mockReviewRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Review, error) {
			return nil, nil
		},
	}

	svc := newTestService(reviews, &mockRestaurantRepo{})

	err := svc.Delete(context.Background(), "user-1", "missing")
	assertAPIErrorCode(t, err, model.ErrCodeReviewNotFound)
}

// TestService_ListByRestaurant はレビュー一覧取得を確認する。
func TestService_ListByRestaurant(t *testing.T) {
	reviews := &mockReviewRepo{
		listByRestaurantFunc: func(ctx context.Context, restaurantID string, limit int) ([]model.ReviewWithAuthor, error) {
			return []model.ReviewWithAuthor{
				{Review: model.Review{ID: "review-1"}, UserName: "Taro"},
			}, nil
		},
	}
	restaurants := &mockRestaurantRepo{findByIDFunc: foundRestaurant}

	svc := newTestService(reviews, restaurants)

	list, err := svc.ListByRestaurant(context.Background(), "restaurant-1")
	if err != nil {
		t.Fatalf("ListByRestaurant failed: %v", err)
	}
	if len(list) != 1 || list[0].UserName != "Taro" {
		t.Errorf("unexpected list result: %+v", list)
	}
}

// TestService_ListMine はユーザー自身のレビュー一覧取得を確認する。
func TestService_ListMine(t *testing.T) {
	reviews := &mockReviewRepo{
		listByUserFunc: func(ctx context.Context, userID string, limit int) ([]*model.Review, error) {
			if userID != "user-1" {
				t.Errorf("unexpected userID %q", userID)
			}
			return []*model.Review{{ID: "review-1", UserID: userID}}, nil
		},
	}

	svc := newTestService(reviews, &mockRestaurantRepo{})

	list, err := svc.ListMine(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListMine failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "review-1" {
		t.Errorf("unexpected list result: %+v", list)
	}
}

// TestService_Create_RecomputeFailure は再計算の失敗が
// サーバーエラーとして伝播することを確認する。
func TestService_Create_RecomputeFailure(t *testing.T) {
	reviews := &mockReviewRepo{
		findByUserAndRestaurantFunc: func(ctx context.Context, userID, restaurantID string) (*model.Review, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, review *model.Review) error {
			return nil
		},
		listRatingsFunc: func(ctx context.Context, restaurantID string) ([]int, error) {
			return nil, errors.New("connection reset")
		},
	}
	restaurants := &mockRestaurantRepo{findByIDFunc: foundRestaurant}

	svc := newTestService(reviews, restaurants)

	if _, err := svc.Create(context.Background(), "user-1", "restaurant-1", 4, "text"); err == nil {
		t.Fatal("expected recompute failure to propagate, got nil")
	}
}

// TestService_Create_ConcurrentRecomputeLastWriterWins は同時投稿時の
// 再計算が後勝ちで収束することを確認する。再計算はロックを取らないため、
// 先行する再計算は相手の投稿を含まない古いスナップショットを読むことが
// あるが、最後に完了した再計算が全レビューの平均で上書きする。
func TestService_Create_ConcurrentRecomputeLastWriterWins(t *testing.T) {
	// user-1の再計算が走る前にuser-2の投稿が確定した状況を模す。
	// 1回目の読み取りはuser-1の投稿しか見えない古いスナップショット。
	snapshots := [][]int{{5}, {5, 3}}
	calls := 0
	reviews := &mockReviewRepo{
		findByUserAndRestaurantFunc: func(ctx context.Context, userID, restaurantID string) (*model.Review, error) {
			return nil, nil
		},
		createFunc: func(ctx context.Context, review *model.Review) error {
			return nil
		},
		listRatingsFunc: func(ctx context.Context, restaurantID string) ([]int, error) {
			snapshot := snapshots[calls]
			calls++
			return snapshot, nil
		},
	}
	var saved []float64
	restaurants := &mockRestaurantRepo{
		findByIDFunc: foundRestaurant,
		updateRatingFunc: func(ctx context.Context, restaurantID string, rating float64) error {
			saved = append(saved, rating)
			return nil
		},
	}

	svc := newTestService(reviews, restaurants)

	for i, input := range []struct {
		userID string
		rating int
	}{
		{"user-1", 5},
		{"user-2", 3},
	} {
		if _, err := svc.Create(context.Background(), input.userID, "restaurant-1", input.rating, "text"); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	if len(saved) != 2 {
		t.Fatalf("expected 2 rating writes, got %d", len(saved))
	}
	// 先行の書き込みは古いスナップショットに基づく
	if saved[0] != 5.0 {
		t.Errorf("expected first write 5.0 from stale snapshot, got %v", saved[0])
	}
	// 最後の書き込みが全レビューの平均を反映する
	if saved[1] != 4.0 {
		t.Errorf("expected final write 4.0 over all reviews, got %v", saved[1])
	}
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを確認する。
func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s", code, apiErr.Code)
	}
}
