package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderJSON = `{"id":"%s","chain_symbol":"TSLA","state":"filled","created_at":"2025-01-0%dT10:00:00Z","direction":"credit","processed_premium":"1.00","legs":[{"side":"sell","position_effect":"open","option_type":"call","strike_price":"250.0000","expiration_date":"2025-06-20"}]}`

func TestClientFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ordersPath, r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("cursor") {
		case "":
			assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
			assert.Equal(t, "2025-01-01T00:00:00Z", r.URL.Query().Get("updated_at[gte]"))
			fmt.Fprintf(w, `{"results":[%s,%s,{"state":"filled"}],"next":"%s%s?cursor=p2"}`,
				fmt.Sprintf(orderJSON, "o1", 1), fmt.Sprintf(orderJSON, "o2", 2), srv.URL, ordersPath)
		case "p2":
			fmt.Fprintf(w, `{"results":[%s],"next":null}`, fmt.Sprintf(orderJSON, "o3", 3))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), ClientOptions{BaseURL: srv.URL + "/", Token: "tkn"})
	records, err := c.FetchOrders(context.Background(), "u1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "o3", records[2].Order.ID)
	assert.Equal(t, "250.0000", string(records[0].Order.Legs[0].StrikePrice))
	assert.Contains(t, string(records[1].Payload), `"id":"o2"`)
	assert.Len(t, RawOrders(records), 3)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), ClientOptions{BaseURL: srv.URL}).FetchOrders(context.Background(), "u1", time.Time{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.True(t, apiErr.Temporary())
}

func TestClientPageLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[],"next":"%s%s?cursor=again"}`, srv.URL, ordersPath)
	}))
	defer srv.Close()

	_, err := NewClient(srv.Client(), ClientOptions{BaseURL: srv.URL, MaxPages: 3}).FetchOrders(context.Background(), "", time.Time{})
	assert.ErrorIs(t, err, ErrTooManyPages)
}
