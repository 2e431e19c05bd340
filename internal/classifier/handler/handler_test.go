package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicledger/internal/classifier"
	"civicledger/pkg/testutil"
)

func newRouter() http.Handler {
	r := chi.NewRouter()
	New(classifier.New(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil).Register(r)
	return r
}

func TestHandleAnalyze(t *testing.T) {
	router := newRouter()

	testutil.Given(t, "a description mentioning a power cut", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/ai/analyze", map[string]string{
			"description": "power outage on main street",
		})

		testutil.When(t, "it is analysed", func(t *testing.T) {
			rr := testutil.DoRequest(router, req)

			testutil.Then(t, "it is critical electricity", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				resp := testutil.UnmarshalResponse[AnalyzeResponse](t, rr)
				require.True(t, resp.Success)
				assert.Equal(t, "Electricity", resp.Data.Category)
				assert.Equal(t, "Critical", resp.Data.Urgency)
				assert.InDelta(t, 0.95, resp.Data.Confidence, 1e-9)
			})
		})
	})

	t.Run("empty description classifies as general", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/ai/analyze", map[string]string{}))
		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[AnalyzeResponse](t, rr)
		assert.Equal(t, "General", resp.Data.Category)
		assert.Equal(t, "Low", resp.Data.Urgency)
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/ai/analyze", "{"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}
