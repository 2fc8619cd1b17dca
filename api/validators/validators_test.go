package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type addressBody struct {
	Phone   string `json:"phone_number" validate:"required,max=15,phone"`
	Pincode string `json:"pincode" validate:"required,max=10,pincode"`
}

func postBody(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyValidatesCustomTags(t *testing.T) {
	var dest addressBody
	require.NoError(t, DecodeJSONBody(postBody(`{"phone_number":"+91 98765-43210","pincode":"560001"}`), &dest))
	assert.Equal(t, "560001", dest.Pincode)

	err := DecodeJSONBody(postBody(`{"phone_number":"call me","pincode":"#1"}`), &addressBody{})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "must be a phone number", details["phone_number"])
	assert.Equal(t, "must be a postal code", details["pincode"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"syntax":   `{"phone_number":`,
		"unknown":  `{"phone_number":"1","pincode":"1","extra":true}`,
		"trailing": `{"phone_number":"1","pincode":"1"}{}`,
		"type":     `{"phone_number":1,"pincode":"1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := DecodeJSONBody(postBody(body), &addressBody{})
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	err := DecodeJSONBody(postBody(`{"phone_number":"1","pincode":"1","extra":true}`), &addressBody{})
	assert.Equal(t, map[string]string{"extra": "is not allowed"}, pkgerrors.As(err).Details())
}

func TestParseQueryIntAndUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?quantity=3&bad=x&product_id=not-a-uuid", nil)
	bounds := IntRange{Default: 1, Min: 1, Max: 10}

	v, err := ParseQueryInt(req, "quantity", bounds)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = ParseQueryInt(req, "missing", bounds)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = ParseQueryInt(req, "bad", bounds)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	id, err := ParseQueryUUID(req, "category_id")
	require.NoError(t, err)
	assert.Nil(t, id)
	_, err = ParseQueryUUID(req, "product_id")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "red shoes", SanitizeString("  red \t  shoes ", 0))
	assert.Equal(t, "héllo", SanitizeString("héllo wörld", 5))
}
