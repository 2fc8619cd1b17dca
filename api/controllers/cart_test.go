package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCartService struct {
	view      *cart.View
	result    *cart.LineResult
	err       error
	addInput  cart.AddItemInput
	update    cart.UpdateItemInput
	gotItemID uuid.UUID
}

func (s *stubCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cart.View, error) {
	return s.view, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, userID uuid.UUID, input cart.AddItemInput) (*cart.LineResult, error) {
	s.addInput = input
	return s.result, s.err
}

func (s *stubCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input cart.UpdateItemInput) (*cart.LineResult, error) {
	s.gotItemID = itemID
	s.update = input
	return s.result, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cart.LineResult, error) {
	s.gotItemID = itemID
	return s.result, s.err
}

func (s *stubCartService) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	return 0, s.err
}

func TestCartFetchSuccess(t *testing.T) {
	cartID := uuid.New()
	svc := &stubCartService{view: &cart.View{ID: cartID}}

	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, newRequest(http.MethodGet, "/api/v1/cart", nil, uuid.New(), nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var view cart.View
	decodeData(t, resp, &view)
	if view.ID != cartID {
		t.Fatalf("unexpected cart id %s", view.ID)
	}
}

func TestCartFetchMissingUserContext(t *testing.T) {
	resp := httptest.NewRecorder()
	CartFetch(&stubCartService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCartAddItemDefaultsQuantity(t *testing.T) {
	svc := &stubCartService{result: &cart.LineResult{CartCount: 1}}
	productID := uuid.New()
	body := `{"product_id":"` + productID.String() + `"}`

	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body), uuid.New(), nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.addInput.ProductID != productID || svc.addInput.Quantity != 1 {
		t.Fatalf("unexpected input %+v", svc.addInput)
	}
}

func TestCartAddItemSurfacesStockCeiling(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeInsufficient, "Not enough stock. Only 3 left.").
		WithDetails(map[string]any{"remaining": 3})}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":5}`

	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, newRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body), uuid.New(), nil))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	env := decodeError(t, resp)
	if env.Error.Code != string(pkgerrors.CodeInsufficient) {
		t.Fatalf("unexpected code %s", env.Error.Code)
	}
	if !strings.Contains(string(env.Error.Details), `"remaining":3`) {
		t.Fatalf("expected remaining detail, got %s", env.Error.Details)
	}
}

func TestCartUpdateItemParsesPathAndBody(t *testing.T) {
	svc := &stubCartService{result: &cart.LineResult{Removed: true}}
	itemID := uuid.New()

	resp := httptest.NewRecorder()
	req := newRequest(http.MethodPatch, "/api/v1/cart/items/"+itemID.String(), strings.NewReader(`{"quantity":0,"remove":true}`), uuid.New(), map[string]string{"itemId": itemID.String()})
	CartUpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotItemID != itemID || !svc.update.Remove {
		t.Fatalf("unexpected update item=%s input=%+v", svc.gotItemID, svc.update)
	}
}

func TestCartRemoveItemRejectsBadID(t *testing.T) {
	resp := httptest.NewRecorder()
	req := newRequest(http.MethodDelete, "/api/v1/cart/items/nope", nil, uuid.New(), map[string]string{"itemId": "nope"})
	CartRemoveItem(&stubCartService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
