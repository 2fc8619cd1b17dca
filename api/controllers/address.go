package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "address", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		addresses, err := svc.List(r.Context(), userID)
		return wrap("addresses", addresses, err)
	})
}

func AddressCreate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "address", svc != nil, http.StatusCreated, func(r *http.Request) (any, error) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			return nil, err
		}
		body, err := bind[address.Input](r)
		if err != nil {
			return nil, err
		}
		return svc.Create(r.Context(), userID, body)
	})
}

// AddressUpdate replaces an address owned by the caller. Addresses owned by
// anyone else are reported as not found.
func AddressUpdate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "address", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, addressID, err := owned(r, "addressId", "address id")
		if err != nil {
			return nil, err
		}
		body, err := bind[address.Input](r)
		if err != nil {
			return nil, err
		}
		return svc.Update(r.Context(), userID, addressID, body)
	})
}

func AddressDelete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "address", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, addressID, err := owned(r, "addressId", "address id")
		if err != nil {
			return nil, err
		}
		if err := svc.Delete(r.Context(), userID, addressID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "deleted"}, nil
	})
}
