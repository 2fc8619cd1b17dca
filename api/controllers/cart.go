package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity,omitempty" validate:"omitempty,min=1,max=1000"`
	Size      *string   `json:"size,omitempty" validate:"omitempty,max=32"`
}

// input defaults the quantity to one unit.
func (b addCartItemRequest) input() cart.AddItemInput {
	in := cart.AddItemInput{ProductID: b.ProductID, Quantity: 1, Size: b.Size}
	if b.Quantity != nil {
		in.Quantity = *b.Quantity
	}
	return in
}

type updateCartItemRequest struct {
	Quantity int     `json:"quantity" validate:"min=0,max=1000"`
	Size     *string `json:"size,omitempty" validate:"omitempty,max=32"`
	Remove   bool    `json:"remove"`
}

// CartFetch returns the caller's cart, creating it on first access.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "cart", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		return svc.GetCart(r.Context(), userID)
	})
}

// CartAddItem adds units of a product, merging into an existing line.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "cart", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		body, err := bind[addCartItemRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), userID, body.input())
	})
}

func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "cart", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, itemID, err := owned(r, "itemId", "item id")
		if err != nil {
			return nil, err
		}
		body, err := bind[updateCartItemRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.UpdateItem(r.Context(), userID, itemID, cart.UpdateItemInput{
			Quantity: body.Quantity,
			Size:     body.Size,
			Remove:   body.Remove,
		})
	})
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "cart", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, itemID, err := owned(r, "itemId", "item id")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), userID, itemID)
	})
}
