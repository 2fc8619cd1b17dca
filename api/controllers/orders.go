package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type placeOrderRequest struct {
	AddressID uuid.UUID             `json:"address_id" validate:"required"`
	BuyNow    *checkout.BuyNowInput `json:"buy_now,omitempty"`
}

// CheckoutPreview renders the checkout page: the cart, or a single product
// when product_id is supplied, plus the caller's addresses.
func CheckoutPreview(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "checkout", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		buyNow, err := buyNowQuery(r)
		if err != nil {
			return nil, err
		}
		return svc.Preview(r.Context(), checkout.PreviewInput{UserID: userID, BuyNow: buyNow})
	})
}

// buyNowQuery reads ?product_id=&quantity=&size=. It is nil without a
// product_id, which previews the cart instead.
func buyNowQuery(r *http.Request) (*checkout.BuyNowInput, error) {
	productID, err := validators.ParseQueryUUID(r, "product_id")
	if err != nil || productID == nil {
		return nil, err
	}
	quantity, err := validators.ParseQueryInt(r, "quantity", validators.IntRange{Default: 1, Min: 1, Max: 1000})
	if err != nil {
		return nil, err
	}
	buyNow := &checkout.BuyNowInput{ProductID: *productID, Quantity: quantity}
	if size := validators.SanitizeString(r.URL.Query().Get("size"), 32); size != "" {
		buyNow.Size = &size
	}
	return buyNow, nil
}

// PlaceOrder converts the cart, or a buy-now selection, into an order.
func PlaceOrder(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "checkout", svc != nil, http.StatusCreated, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		body, err := bind[placeOrderRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.PlaceOrder(r.Context(), checkout.PlaceOrderInput{
			UserID:    userID,
			AddressID: body.AddressID,
			BuyNow:    body.BuyNow,
		})
	})
}

func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "orders", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), userID, params)
	})
}

// OrderDetail returns the order with its items, address, payment and timeline.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "orders", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, orderID, err := owned(r, "orderId", "order id")
		if err != nil {
			return nil, err
		}
		return svc.Detail(r.Context(), userID, orderID)
	})
}

func OrderSuccess(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "orders", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, orderID, err := owned(r, "orderId", "order id")
		if err != nil {
			return nil, err
		}
		order, err := svc.Success(r.Context(), userID, orderID)
		return wrap("order", order, err)
	})
}
