package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/license-store/internal/app"
	"github.com/cimillas/license-store/internal/domain"
)

var testGame = domain.Game{
	ID:                "9aa2fd1e-8b9b-4d15-a258-71e043a4c1ee",
	Name:              "PuzzleManía",
	Category:          domain.CategoryPuzzle,
	SizeKB:            512,
	Price:             decimal.RequireFromString("10.00"),
	AvailableLicenses: 30,
	SoldLicenses:      5,
	MinStock:          5,
	CreatedAt:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
}

func TestHandleGames_List(t *testing.T) {
	t.Parallel()

	svc := &stubCatalogService{games: []domain.Game{testGame}}
	req := httptest.NewRequest(http.MethodGet, "/games?category=puzzle&sort_by=price", nil)
	rec := httptest.NewRecorder()

	HandleGames(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.lastFilter.Category != domain.CategoryPuzzle || svc.lastFilter.SortBy != "price" {
		t.Fatalf("filter not forwarded: %+v", svc.lastFilter)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"price":"10.00"`) {
		t.Fatalf("expected fixed-point price, got %q", body)
	}
	if strings.Contains(body, "sold_licenses") {
		t.Fatalf("public listing must not expose sold counters, got %q", body)
	}
}

func TestHandleGames_Create(t *testing.T) {
	t.Parallel()

	validBody := `{"name":"PuzzleManía","category":"puzzle","size_kb":512,"price":"10.00","available_licenses":30}`

	tests := []struct {
		name           string
		role           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			role:           "admin",
			body:           validBody,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"sold_licenses":5`,
		},
		{
			name:           "not admin",
			role:           "shopper",
			body:           validBody,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "invalid json",
			role:           "admin",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown field",
			role:           "admin",
			body:           `{"name":"x","stock":1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid category",
			role:           "admin",
			body:           validBody,
			serviceErr:     domain.ErrInvalidCategory,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate name",
			role:           "admin",
			body:           validBody,
			serviceErr:     domain.ErrDuplicateName,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "internal error",
			role:           "admin",
			body:           validBody,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubCatalogService{game: testGame, err: tt.serviceErr}
			req := httptest.NewRequest(http.MethodPost, "/games", bytes.NewBufferString(tt.body))
			req.Header.Set(headerUserID, "admin-1")
			req.Header.Set(headerUserRole, tt.role)
			rec := httptest.NewRecorder()

			HandleGames(svc).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestHandleGameByID(t *testing.T) {
	t.Parallel()

	t.Run("get returns detail shape", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{game: testGame}
		req := httptest.NewRequest(http.MethodGet, "/games/"+testGame.ID, nil)
		rec := httptest.NewRecorder()

		HandleGameByID(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"sold_licenses":5`) {
			t.Fatalf("expected detail fields, got %q", rec.Body.String())
		}
	})

	t.Run("get unknown game", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{err: domain.ErrGameNotFound}
		req := httptest.NewRequest(http.MethodGet, "/games/"+testGame.ID, nil)
		rec := httptest.NewRecorder()

		HandleGameByID(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("update requires admin", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{game: testGame}
		req := httptest.NewRequest(http.MethodPut, "/games/"+testGame.ID, bytes.NewBufferString(`{"price":"12.00"}`))
		req.Header.Set(headerUserID, "user-1")
		rec := httptest.NewRecorder()

		HandleGameByID(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected status 403, got %d", rec.Code)
		}
	})

	t.Run("update rejects category change", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{err: domain.ErrCategoryImmutable}
		req := httptest.NewRequest(http.MethodPut, "/games/"+testGame.ID, bytes.NewBufferString(`{"category":"action"}`))
		req.Header.Set(headerUserID, "admin-1")
		req.Header.Set(headerUserRole, roleAdmin)
		rec := httptest.NewRecorder()

		HandleGameByID(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		if svc.lastUpdate.Category == nil || *svc.lastUpdate.Category != domain.CategoryAction {
			t.Fatalf("category not forwarded: %+v", svc.lastUpdate)
		}
	})

	t.Run("delete archives", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{}
		req := httptest.NewRequest(http.MethodDelete, "/games/"+testGame.ID, nil)
		req.Header.Set(headerUserID, "admin-1")
		req.Header.Set(headerUserRole, roleAdmin)
		rec := httptest.NewRecorder()

		HandleGameByID(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status 204, got %d", rec.Code)
		}
		if svc.deletedID != testGame.ID {
			t.Fatalf("expected delete of %s, got %q", testGame.ID, svc.deletedID)
		}
	})

	t.Run("delete with sold licenses", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{err: domain.ErrGameHasSoldLicenses}
		req := httptest.NewRequest(http.MethodDelete, "/games/"+testGame.ID, nil)
		req.Header.Set(headerUserID, "admin-1")
		req.Header.Set(headerUserRole, roleAdmin)
		rec := httptest.NewRecorder()

		HandleGameByID(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("malformed path", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/games/a/b", nil)
		rec := httptest.NewRecorder()

		HandleGameByID(&stubCatalogService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandleLowStock(t *testing.T) {
	t.Parallel()

	t.Run("requires admin", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/admin/low-stock", nil)
		req.Header.Set(headerUserID, "user-1")
		rec := httptest.NewRecorder()

		HandleLowStock(&stubCatalogService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected status 403, got %d", rec.Code)
		}
	})

	t.Run("returns detail rows", func(t *testing.T) {
		t.Parallel()
		svc := &stubCatalogService{games: []domain.Game{testGame}}
		req := httptest.NewRequest(http.MethodGet, "/admin/low-stock", nil)
		req.Header.Set(headerUserID, "admin-1")
		req.Header.Set(headerUserRole, roleAdmin)
		rec := httptest.NewRecorder()

		HandleLowStock(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"min_stock":5`) {
			t.Fatalf("expected min_stock in response, got %q", rec.Body.String())
		}
	})
}

type stubCatalogService struct {
	game       domain.Game
	games      []domain.Game
	err        error
	lastFilter app.GameFilter
	lastUpdate app.UpdateGameInput
	deletedID  string
}

func (s *stubCatalogService) CreateGame(_ context.Context, _ app.CreateGameInput) (domain.Game, error) {
	return s.game, s.err
}

func (s *stubCatalogService) GetGame(_ context.Context, _ string) (domain.Game, error) {
	return s.game, s.err
}

func (s *stubCatalogService) ListGames(_ context.Context, filter app.GameFilter) ([]domain.Game, error) {
	s.lastFilter = filter
	return s.games, s.err
}

func (s *stubCatalogService) ListLowStock(_ context.Context) ([]domain.Game, error) {
	return s.games, s.err
}

func (s *stubCatalogService) UpdateGame(_ context.Context, _ string, in app.UpdateGameInput) (domain.Game, error) {
	s.lastUpdate = in
	return s.game, s.err
}

func (s *stubCatalogService) DeleteGame(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deletedID = id
	return nil
}
