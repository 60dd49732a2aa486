package watchlist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(rt roundTripFunc) *Client {
	client := NewClient(Config{BaseURL: "https://screening.example.test/", APIKey: "test-key"}, zap.NewNop())
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func individual() *entities.Customer {
	return &entities.Customer{
		ID: uuid.New(),
		CustomerIdentity: entities.CustomerIdentity{
			CustomerType: entities.CustomerTypeIndividual,
			FullName:     "Sara Al-Qahtani",
			NationalID:   "1012345678",
			Nationality:  "SA",
		},
	}
}

func TestScreen_SendsCustomerAndParsesMatch(t *testing.T) {
	customer := individual()
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "https://screening.example.test/v1/screenings", r.URL.String())
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		var body screeningRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, customer.ID.String(), body.Reference)
		assert.Equal(t, "pep", body.ScreeningType)
		assert.Equal(t, "Sara Al-Qahtani", body.Name)
		assert.Equal(t, "1012345678", body.NationalID)

		return respond(http.StatusOK, `{"status":"possible_match","matched_lists":["PEP Register"],"match_score":0.81}`), nil
	})

	match, err := client.Screen(context.Background(), customer, entities.ScreeningTypePEP)
	require.NoError(t, err)
	assert.Equal(t, entities.ScreeningStatusPossibleMatch, match.Status)
	assert.Equal(t, []string{"PEP Register"}, match.MatchedLists)
	assert.InDelta(t, 0.81, match.MatchScore, 1e-9)
	assert.Contains(t, match.RawResponse, "PEP Register")
}

func TestScreen_ClearWithoutLists(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"status":"clear"}`), nil
	})

	match, err := client.Screen(context.Background(), individual(), entities.ScreeningTypeSanctions)
	require.NoError(t, err)
	assert.Equal(t, entities.ScreeningStatusClear, match.Status)
	assert.NotNil(t, match.MatchedLists)
}

func TestScreen_TypedErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
		temporary   bool
		message     string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"code":"bad_key","message":"invalid API key"}`, false, false, "invalid API key"},
		{"rate limited", http.StatusTooManyRequests, `{"message":"slow down"}`, true, true, "slow down"},
		{"html gateway error", http.StatusBadGateway, `<html>502</html>`, false, true, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(func(r *http.Request) (*http.Response, error) {
				return respond(tt.status, tt.body), nil
			})

			_, err := client.Screen(context.Background(), individual(), entities.ScreeningTypeSanctions)
			require.Error(t, err)

			var apiErr *ErrorResponse
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.rateLimited, apiErr.IsRateLimited())
			assert.Equal(t, tt.temporary, apiErr.Temporary())
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestScreen_RejectsUnknownStatus(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, `{"status":"maybe"}`), nil
	})

	_, err := client.Screen(context.Background(), individual(), entities.ScreeningTypeSanctions)
	assert.ErrorContains(t, err, "unexpected screening status")
}
