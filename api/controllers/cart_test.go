package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmoreno-dev/mesa-backend/api/middleware"
	cartsvc "github.com/rmoreno-dev/mesa-backend/internal/cart"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	pkgerrors "github.com/rmoreno-dev/mesa-backend/pkg/errors"
)

type stubCartService struct {
	gotToken string
	gotLines []cartsvc.Line
	view     *cartsvc.View
	err      error
}

func (s *stubCartService) Attach(ctx context.Context, token string, userID uuid.UUID) (*cartsvc.AttachResult, error) {
	return nil, nil
}

func (s *stubCartService) Submit(ctx context.Context, token string, incoming []cartsvc.Line) (*cartsvc.View, error) {
	s.gotToken = token
	s.gotLines = incoming
	return s.view, s.err
}

func (s *stubCartService) Get(ctx context.Context, token string) (*cartsvc.View, error) {
	s.gotToken = token
	return s.view, s.err
}

func cartTestConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Env: "test"},
		Cart: config.CartConfig{TokenBytes: 32, AnonymousTTL: 168 * time.Hour},
	}
}

func TestCartFetchEchoesToken(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{
		CartID:     uuid.New(),
		Token:      "current-token",
		Lines:      []cartsvc.Line{},
		TotalCents: 1080,
	}}
	handler := CartFetch(svc, cartTestConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req = req.WithContext(middleware.WithCartToken(req.Context(), "presented-token"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotToken != "presented-token" {
		t.Fatalf("expected service to receive presented token, got %q", svc.gotToken)
	}
	if got := rec.Header().Get(middleware.CartTokenHeader); got != "current-token" {
		t.Fatalf("expected token echo, got %q", got)
	}
}

func TestCartSubmitForwardsLinesAndRotatedToken(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCartService{view: &cartsvc.View{
		CartID: uuid.New(),
		Token:  "rotated-token",
		Lines: []cartsvc.Line{{
			ItemID:         itemID,
			Quantity:       2,
			UnitPriceCents: 500,
			LineTotalCents: 1000,
		}},
		SubtotalCents: 1000,
		TaxCents:      80,
		TotalCents:    1080,
	}}
	handler := CartSubmit(svc, cartTestConfig(), nil)

	body := `{"lines":[{"item_id":"` + itemID.String() + `","quantity":2,"notes":"no onions"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithCartToken(req.Context(), "old-token"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotToken != "old-token" {
		t.Fatalf("expected old token forwarded, got %q", svc.gotToken)
	}
	if len(svc.gotLines) != 1 || svc.gotLines[0].ItemID != itemID || svc.gotLines[0].Quantity != 2 {
		t.Fatalf("unexpected forwarded lines %+v", svc.gotLines)
	}
	if svc.gotLines[0].Notes != "no onions" {
		t.Fatalf("expected notes forwarded, got %q", svc.gotLines[0].Notes)
	}
	if got := rec.Header().Get(middleware.CartTokenHeader); got != "rotated-token" {
		t.Fatalf("expected rotated token echo, got %q", got)
	}

	var payload struct {
		Data cartsvc.View `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.TotalCents != 1080 {
		t.Fatalf("expected total 1080, got %d", payload.Data.TotalCents)
	}
}

func TestCartSubmitRejectsEmptyLines(t *testing.T) {
	svc := &stubCartService{}
	handler := CartSubmit(svc, cartTestConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart", strings.NewReader(`{"lines":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCartFetchWithoutTokenReturnsValidationError(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeValidation, "cart token is required")}
	handler := CartFetch(svc, cartTestConfig(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
