package mcpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/meal-basket/internal/basket"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/planner"
	"github.com/foxxcyber/meal-basket/internal/scenario"
	"github.com/foxxcyber/meal-basket/internal/sequential"
	"github.com/foxxcyber/meal-basket/internal/testutil"
)

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func newServer(t *testing.T) *Server {
	t.Helper()

	emb := embedding.NewHashingEmbedder(64)
	library, err := scenario.Default()
	require.NoError(t, err)

	p, err := planner.New(
		planner.StaticPool(testutil.Catalog(emb)),
		nil,
		basket.NewRepairer(emb, nil),
		planner.WithStrategy(basket.NewScenarioStrategy(library, scenario.NewSelector(scenario.WithSeed(3)), basket.NewAssembler(nil, emb, nil))),
		planner.WithStrategy(sequential.NewStrategy()),
	)
	require.NoError(t, err)

	return New(p, library, time.Second, nil)
}

func call(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeText(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result toolResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), target))
}

func TestTools(t *testing.T) {
	assert.Equal(t, []string{"build_basket", "get_scenario", "list_scenarios"}, newServer(t).Tools())
}

func TestListScenarios(t *testing.T) {
	s := newServer(t)

	var all []models.ScenarioSummary
	decodeText(t, call(t, s, `{"name":"list_scenarios","arguments":{}}`), &all)
	assert.Len(t, all, 16)

	var breakfasts []models.ScenarioSummary
	decodeText(t, call(t, s, `{"name":"list_scenarios","arguments":{"meal_type":"breakfast"}}`), &breakfasts)
	require.Len(t, breakfasts, 4)
	for _, b := range breakfasts {
		assert.Equal(t, "breakfast", b.MealType)
		assert.Equal(t, b.SlotsTotal, b.SlotsRequired+b.SlotsOptional)
	}
}

func TestGetScenario(t *testing.T) {
	s := newServer(t)

	var scaled models.ScaledScenario
	decodeText(t, call(t, s, `{"name":"get_scenario","arguments":{"id":"snack_tea_cookies","people":4}}`), &scaled)
	assert.Equal(t, "snack_tea_cookies", scaled.ID)
	assert.Equal(t, 4, scaled.People)
	assert.Len(t, scaled.Slots, 2)

	assert.Equal(t, http.StatusNotFound, call(t, s, `{"name":"get_scenario","arguments":{"id":"nope"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, s, `{"name":"get_scenario","arguments":{}}`).Code)
}

func TestBuildBasket(t *testing.T) {
	s := newServer(t)

	var result models.BasketResult
	decodeText(t, call(t, s, `{"name":"build_basket","arguments":{"meal_types":["dinner"],"people":2,"budget":2500}}`), &result)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "scenario", result.Strategy)
	assert.NotEmpty(t, result.Basket.Items)
	assert.Equal(t, len(result.Basket.Items), result.Summary.ItemsCount)

	var seq models.BasketResult
	decodeText(t, call(t, s, `{"name":"build_basket","arguments":{"strategy":"sequential","meal_types":["breakfast"],"budget":1500}}`), &seq)
	assert.Equal(t, "sequential", seq.Strategy)
}

func TestBuildBasketRejectsBadInput(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusBadRequest, call(t, s, `{"name":"build_basket","arguments":{"people":500}}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, s, `{"name":"build_basket","arguments":{"meal_types":["brunch"]}}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, s, `{"name":"build_basket","arguments":{"people":"two"}}`).Code)
}

func TestServeHTTPErrors(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusNotFound, call(t, s, `{"name":"log_meal","arguments":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, s, `{not json`).Code)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
