package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cimillas/license-store/internal/app"
	"github.com/cimillas/license-store/internal/domain"
)

// CatalogService is the surface the game endpoints need from the app layer.
type CatalogService interface {
	CreateGame(ctx context.Context, in app.CreateGameInput) (domain.Game, error)
	GetGame(ctx context.Context, id string) (domain.Game, error)
	ListGames(ctx context.Context, filter app.GameFilter) ([]domain.Game, error)
	ListLowStock(ctx context.Context) ([]domain.Game, error)
	UpdateGame(ctx context.Context, id string, in app.UpdateGameInput) (domain.Game, error)
	DeleteGame(ctx context.Context, id string) error
}

// HandleGames serves the /games collection: public listing and admin creation.
func HandleGames(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			filter := app.GameFilter{
				Search:    r.URL.Query().Get("search"),
				Category:  domain.Category(r.URL.Query().Get("category")),
				SortBy:    r.URL.Query().Get("sort_by"),
				SortOrder: r.URL.Query().Get("sort_order"),
			}
			games, err := svc.ListGames(r.Context(), filter)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]gameResponse, 0, len(games))
			for _, game := range games {
				resp = append(resp, toGameResponse(game))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			if _, ok := requireAdmin(w, r); !ok {
				return
			}
			var req createGameRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			game, err := svc.CreateGame(r.Context(), app.CreateGameInput{
				Name:              req.Name,
				Category:          domain.Category(req.Category),
				SizeKB:            req.SizeKB,
				Price:             req.Price,
				AvailableLicenses: req.AvailableLicenses,
				ImageURL:          req.ImageURL,
				MinStock:          req.MinStock,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toGameDetailResponse(game))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleGameByID serves /games/{id}: public detail, admin update and delete.
func HandleGameByID(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseGamePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			game, err := svc.GetGame(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toGameDetailResponse(game))
		case http.MethodPut:
			if _, ok := requireAdmin(w, r); !ok {
				return
			}
			var req updateGameRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			in := app.UpdateGameInput{
				SizeKB:            req.SizeKB,
				Price:             req.Price,
				AvailableLicenses: req.AvailableLicenses,
				ImageURL:          req.ImageURL,
				MinStock:          req.MinStock,
			}
			if req.Category != nil {
				category := domain.Category(*req.Category)
				in.Category = &category
			}

			game, err := svc.UpdateGame(r.Context(), id, in)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toGameDetailResponse(game))
		case http.MethodDelete:
			if _, ok := requireAdmin(w, r); !ok {
				return
			}
			if err := svc.DeleteGame(r.Context(), id); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleLowStock serves the admin restock view.
func HandleLowStock(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		games, err := svc.ListLowStock(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]gameDetailResponse, 0, len(games))
		for _, game := range games {
			resp = append(resp, toGameDetailResponse(game))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createGameRequest struct {
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	SizeKB            int             `json:"size_kb"`
	Price             decimal.Decimal `json:"price"`
	AvailableLicenses int             `json:"available_licenses"`
	ImageURL          string          `json:"image_url"`
	MinStock          *int            `json:"min_stock,omitempty"`
}

type updateGameRequest struct {
	Category          *string          `json:"category,omitempty"`
	SizeKB            *int             `json:"size_kb,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	AvailableLicenses *int             `json:"available_licenses,omitempty"`
	ImageURL          *string          `json:"image_url,omitempty"`
	MinStock          *int             `json:"min_stock,omitempty"`
}

// gameResponse is the public listing shape; sold licenses stay internal.
type gameResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	SizeKB            int    `json:"size_kb"`
	Price             string `json:"price"`
	AvailableLicenses int    `json:"available_licenses"`
	ImageURL          string `json:"image_url,omitempty"`
}

type gameDetailResponse struct {
	gameResponse
	SoldLicenses int       `json:"sold_licenses"`
	MinStock     int       `json:"min_stock"`
	CreatedAt    time.Time `json:"created_at"`
}

func toGameResponse(game domain.Game) gameResponse {
	return gameResponse{
		ID:                game.ID,
		Name:              game.Name,
		Category:          string(game.Category),
		SizeKB:            game.SizeKB,
		Price:             game.Price.StringFixed(2),
		AvailableLicenses: game.AvailableLicenses,
		ImageURL:          game.ImageURL,
	}
}

func toGameDetailResponse(game domain.Game) gameDetailResponse {
	return gameDetailResponse{
		gameResponse: toGameResponse(game),
		SoldLicenses: game.SoldLicenses,
		MinStock:     game.MinStock,
		CreatedAt:    game.CreatedAt,
	}
}

func parseGamePath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "games" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
