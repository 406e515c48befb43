package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradesPage_QueryAndDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "0xabc", q.Get("user"))
		assert.Equal(t, "500", q.Get("limit"))
		assert.Equal(t, "1000", q.Get("offset"))
		assert.Equal(t, "false", q.Get("takerOnly"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"t-1"},{"id":"t-2"}]`))
	}))
	defer server.Close()

	c := NewDataClient(server.URL)
	page, err := c.TradesPage(context.Background(), "0xabc", 500, 1000, false)

	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "t-1", page[0]["id"])
}

func TestTradesPage_WrappedShapes(t *testing.T) {
	cases := map[string]string{
		"data wrapper":    `{"data":[{"id":"t-1"}]}`,
		"trades wrapper":  `{"trades":[{"id":"t-1"}]}`,
		"results wrapper": `{"results":[{"id":"t-1"}]}`,
		"items wrapper":   `{"items":[{"id":"t-1"}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			page, err := NewDataClient(server.URL).TradesPage(context.Background(), "0xabc", 10, 0, false)
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, "t-1", page[0]["id"])
		})
	}
}

func TestTradesPage_UnrecognizedShapeIsEmptyPage(t *testing.T) {
	for name, body := range map[string]string{
		"scalar":        `42`,
		"unknown key":   `{"stuff":[{"id":"t-1"}]}`,
		"null":          `null`,
		"broken":        `{not json`,
		"non-object el": `["just","strings"]`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			page, err := NewDataClient(server.URL).TradesPage(context.Background(), "0xabc", 10, 0, false)
			require.NoError(t, err)
			assert.Empty(t, page)
		})
	}
}

func TestTradesPage_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewDataClient(server.URL).TradesPage(context.Background(), "0xabc", 10, 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHeadTrade(t *testing.T) {
	t.Run("returns first record", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			w.Write([]byte(`[{"id":"head"}]`))
		}))
		defer server.Close()

		head, err := NewDataClient(server.URL).HeadTrade(context.Background(), "0xabc")
		require.NoError(t, err)
		require.NotNil(t, head)
		assert.Equal(t, "head", head["id"])
	})

	t.Run("nil when user has no trades", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		head, err := NewDataClient(server.URL).HeadTrade(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Nil(t, head)
	})
}

func TestMarketsByIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "m-1,m-2", r.URL.Query().Get("ids"))
		w.Write([]byte(`{"markets":[{"id":"m-1"},{"id":"m-2"}]}`))
	}))
	defer server.Close()

	markets, err := NewDataClient(server.URL).MarketsByIDs(context.Background(), []string{"m-1", "m-2"})
	require.NoError(t, err)
	assert.Len(t, markets, 2)
}

func TestPortfolioValue(t *testing.T) {
	t.Run("reads first value", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/value", r.URL.Path)
			assert.Equal(t, "0xabc", r.URL.Query().Get("user"))
			w.Write([]byte(`[{"user":"0xabc","value":1234.56}]`))
		}))
		defer server.Close()

		v, err := NewDataClient(server.URL).PortfolioValue(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Equal(t, 1234.56, v)
	})

	t.Run("empty history values at zero", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		v, err := NewDataClient(server.URL).PortfolioValue(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Zero(t, v)
	})
}

func TestPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/positions", r.URL.Path)
		w.Write([]byte(`[{"asset":"tok-1","size":12}]`))
	}))
	defer server.Close()

	positions, err := NewDataClient(server.URL).Positions(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "tok-1", positions[0]["asset"])
}

func TestMarketsByIDs_NoIDsNoRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty id set")
	}))
	defer server.Close()

	markets, err := NewDataClient(server.URL).MarketsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, markets)
}
