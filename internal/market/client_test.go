package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestFetchNames(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getItemsNames", r.URL.Query().Get("command"))
		w.Write([]byte(`[["USP «Ghost»"],["AKR Necromancer"],[]]`))
	})

	names, err := client.FetchNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"USP «Ghost»", "AKR Necromancer"}, names)
}

func TestFetchModelInfos(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getModelInfo", r.URL.Query().Get("command"))
		w.Write([]byte(`[{"name":"USP «Ghost»","type":"gun","rarity":"rare","collection":"Origin","image":"https://cdn/usp.png"}]`))
	})

	infos, err := client.FetchModelInfos(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "USP «Ghost»", infos[0].Name)
	assert.Equal(t, "Origin", infos[0].Collection)
	assert.Equal(t, "https://cdn/usp.png", infos[0].ImageURL)
}

func TestFetchPriceHistoryEncodesName(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getStat", r.URL.Query().Get("command"))
		assert.Equal(t, "USP «Ghost»", r.URL.Query().Get("name"))
		w.Write([]byte(`[{"date":"2026-08-27 12:00:00","purchase_price":"10,50"},{"date":"2026-08-28 12:00:00","purchase_price":"11.25"}]`))
	})

	points, err := client.FetchPriceHistory(context.Background(), "USP «Ghost»")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "10,50", points[0].PurchasePrice)
}

func TestFetchPriceHistoryServerError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchPriceHistory(context.Background(), "USP")
	assert.Error(t, err)
}

func TestParsePrice(t *testing.T) {
	comma, err := ParsePrice("1234,56")
	require.NoError(t, err)
	dot, err2 := ParsePrice("1234.56")
	require.NoError(t, err2)
	assert.True(t, comma.Equal(dot))
	assert.True(t, comma.Equal(decimal.RequireFromString("1234.56")))

	_, err = ParsePrice("")
	assert.Error(t, err)
	_, err = ParsePrice("abc")
	assert.Error(t, err)
}
