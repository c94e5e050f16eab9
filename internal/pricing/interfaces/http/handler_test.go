package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	opts := application.DefaultOptions()
	chains := infrastructure.NewStaticChainProvider(map[string]infrastructure.StaticUnderlying{
		"AAPL": {Spot: 190, Volatility: 0.25},
	})
	svc := application.NewPricingService(
		application.NewPricingCommandService(nil, nil, nil, node, nil, opts),
		application.NewPricingQueryService(nil, nil, chains, nil, nil, opts),
	)

	r := gin.New()
	NewPricingHandler(svc).RegisterRoutes(&r.RouterGroup)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestPriceOption(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/pricing/option/price", map[string]any{
		"option_type":      "call",
		"underlying_price": 120,
		"strike_price":     100,
		"time_to_expiry":   1,
		"risk_free_rate":   0.08,
		"volatility":       0.1,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)

	var dto application.PriceResultDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	require.NotNil(t, dto.Price)
	assert.InDelta(t, 27.702656386181, *dto.Price, 1e-6)
	assert.InDelta(t, 0.014291024845, dto.PutPrice, 1e-6)
	assert.False(t, dto.Persisted)
}

func TestPriceOptionRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/pricing/option/price", map[string]any{
		"underlying_price": -120,
		"strike_price":     100,
		"time_to_expiry":   1,
		"volatility":       0.1,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, http.StatusBadRequest, env.Code)
	assert.Contains(t, env.Message, "invalid input")

	code, env = do(t, r, http.MethodPost, "/api/v1/pricing/option/price", map[string]any{"strike_price": 100})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "invalid input: S=0")

	code, env = do(t, r, http.MethodPost, "/api/v1/pricing/option/price", map[string]any{
		"underlying_price": 120,
		"strike_price":     100,
		"time_to_expiry":   1,
		"volatility":       0,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid input: V=0: must be > 0", env.Message)
}

func TestGenerateSurface(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/pricing/surface", map[string]any{
		"min_spot":       80,
		"max_spot":       120,
		"min_vol":        0.1,
		"max_vol":        0.3,
		"strike_price":   100,
		"time_to_expiry": 1,
		"risk_free_rate": 0.08,
		"samples":        3,
	})
	require.Equal(t, http.StatusOK, code)

	var dto struct {
		Spots       []float64   `json:"spots"`
		Vols        []float64   `json:"vols"`
		Calls       [][]float64 `json:"calls"`
		Puts        [][]float64 `json:"puts"`
		BatchID     string      `json:"batch_id"`
		Samples     int         `json:"samples"`
		Orientation string      `json:"orientation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, []float64{80, 100, 120}, dto.Spots)
	assert.Equal(t, 3, dto.Samples)
	assert.Equal(t, application.SurfaceOrientation, dto.Orientation)
	assert.NotEmpty(t, dto.BatchID)
	require.Len(t, dto.Calls, 3)
	assert.InDelta(t, 0.293658857699, dto.Calls[0][0], 1e-6)
	assert.InDelta(t, 3.299996582055, dto.Puts[2][2], 1e-6)
}

func TestGenerateSurfaceRejectsTooManySamples(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/pricing/surface", map[string]any{
		"min_spot": 80, "max_spot": 120, "min_vol": 0.1, "max_vol": 0.3,
		"strike_price": 100, "time_to_expiry": 1, "samples": 100000,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "samples")
}

func TestPayoffEndpoints(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodPost, "/api/v1/pricing/payoff/long-call", map[string]any{
		"strike_price": 100,
		"premium":      5,
		"spots":        []float64{90, 100, 110},
	})
	require.Equal(t, http.StatusOK, code)
	var curve application.PayoffCurveDTO
	require.NoError(t, json.Unmarshal(env.Data, &curve))
	assert.Equal(t, []float64{-5, -5, 5}, curve.Payoffs)

	code, _ = do(t, r, http.MethodPost, "/api/v1/pricing/payoff/straddle", map[string]any{
		"strike_price": 100, "premium": 5, "spots": []float64{100},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, r, http.MethodPost, "/api/v1/pricing/payoff", map[string]any{
		"underlying_price": 120, "strike_price": 100, "time_to_expiry": 1,
		"risk_free_rate": 0.08, "volatility": 0.1, "points": 11,
	})
	require.Equal(t, http.StatusOK, code)
	var profile struct {
		Spots  []float64            `json:"spots"`
		Curves map[string][]float64 `json:"curves"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	require.Len(t, profile.Spots, 11)
	assert.InDelta(t, 60.0, profile.Spots[0], 1e-9)
	assert.InDelta(t, 180.0, profile.Spots[10], 1e-9)
	assert.Len(t, profile.Curves, 4)
}

func TestGetOptionChain(t *testing.T) {
	r := newTestRouter(t)

	code, env := do(t, r, http.MethodGet, "/api/v1/pricing/chain/aapl", nil)
	require.Equal(t, http.StatusOK, code)
	var chain struct {
		Symbol      string                     `json:"symbol"`
		Expirations map[string]json.RawMessage `json:"expirations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &chain))
	assert.Equal(t, "AAPL", chain.Symbol)
	assert.Len(t, chain.Expirations, 3)

	code, env = do(t, r, http.MethodGet, "/api/v1/pricing/chain/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, http.StatusNotFound, env.Code)
}

func TestResultsEndpoints(t *testing.T) {
	r := newTestRouter(t)

	code, _ := do(t, r, http.MethodGet, "/api/v1/pricing/results/AAPL/latest", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env := do(t, r, http.MethodGet, "/api/v1/pricing/results/AAPL/history?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Symbol  string            `json:"symbol"`
		Results []json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, "AAPL", page.Symbol)
	assert.Empty(t, page.Results)

	code, _ = do(t, r, http.MethodGet, "/api/v1/pricing/results/AAPL/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodGet, "/api/v1/pricing/results/AAPL/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
