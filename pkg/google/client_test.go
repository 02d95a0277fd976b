package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aidiscovery-cli/internal/resilience"
)

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, SearchFieldMask, r.Header.Get("X-Goog-FieldMask"))

		var body textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Clinica Sorriso, Campinas, Brasil", body.TextQuery)
		assert.Equal(t, "pt-BR", body.LanguageCode)
		assert.Equal(t, "BR", body.RegionCode)
		assert.Equal(t, 1, body.MaxResultCount)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Places: []Place{
				{
					ID:              "ChIJ-sorriso",
					DisplayName:     LocalizedText{Text: "Clinica Sorriso"},
					Rating:          ptrFloat(4.7),
					UserRatingCount: ptrInt(212),
					BusinessStatus:  "OPERATIONAL",
					Photos:          []Photo{{Name: "places/ChIJ-sorriso/photos/1"}},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), "Clinica Sorriso, Campinas, Brasil", 1)

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	p := resp.Places[0]
	assert.Equal(t, "ChIJ-sorriso", p.ID)
	assert.Equal(t, "Clinica Sorriso", p.DisplayName.Text)
	require.NotNil(t, p.Rating)
	assert.InDelta(t, 4.7, *p.Rating, 0.001)
	require.NotNil(t, p.UserRatingCount)
	assert.Equal(t, 212, *p.UserRatingCount)
	assert.Len(t, p.Photos, 1)
}

func TestTextSearch_Locale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pt-PT", body.LanguageCode)
		assert.Equal(t, "PT", body.RegionCode)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL), WithLocale("pt-PT", "PT"))
	resp, err := client.TextSearch(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearch_MissingFieldsStayNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"places":[{"id":"p1","displayName":{"text":"Sem Nota"}}]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), "q", 1)
	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Nil(t, resp.Places[0].Rating)
	assert.Nil(t, resp.Places[0].UserRatingCount)
	assert.Nil(t, resp.Places[0].Location)
}

func TestTextSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), "test query", 1)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "403")
	assert.False(t, resilience.IsTransient(err))
}

func TestTextSearch_TransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.TextSearch(context.Background(), "q", 1)

	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(ctx, "test", 1)

	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestSearchNearby_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchNearby", r.URL.Path)
		assert.Equal(t, NearbyFieldMask, r.Header.Get("X-Goog-FieldMask"))

		var body nearbySearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"dentist"}, body.IncludedTypes)
		assert.InDelta(t, -22.9, body.LocationRestriction.Circle.Center.Latitude, 0.0001)
		assert.InDelta(t, -47.06, body.LocationRestriction.Circle.Center.Longitude, 0.0001)
		assert.InDelta(t, 5000.0, body.LocationRestriction.Circle.Radius, 0.001)
		assert.Equal(t, "POPULARITY", body.RankPreference)
		assert.Equal(t, 8, body.MaxResultCount)

		_, _ = w.Write([]byte(`{"places":[{"id":"c1","displayName":{"text":"OdontoTop"},"rating":4.9,"userRatingCount":300}]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.SearchNearby(context.Background(), NearbyRequest{
		Latitude:      -22.9,
		Longitude:     -47.06,
		RadiusMeters:  5000,
		IncludedTypes: []string{"dentist"},
		MaxResults:    8,
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "OdontoTop", resp.Places[0].DisplayName.Text)
}

func TestPlaceDetails_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/places/ChIJ-sorriso", r.URL.Path)
		assert.Equal(t, DetailFieldMask, r.Header.Get("X-Goog-FieldMask"))
		assert.Empty(t, r.Header.Get("Content-Type"))

		_, _ = w.Write([]byte(`{
			"id": "ChIJ-sorriso",
			"displayName": {"text": "Clinica Sorriso"},
			"reviews": [
				{"rating": 5, "text": {"text": "Atendimento excelente"}, "authorAttribution": {"displayName": "Ana"}, "publishTime": "2026-01-10T12:00:00Z"},
				{"rating": 2, "text": {"text": "Demorou muito"}, "authorAttribution": {"displayName": "Bruno"}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	p, err := client.PlaceDetails(context.Background(), "places/ChIJ-sorriso")

	require.NoError(t, err)
	require.Len(t, p.Reviews, 2)
	assert.Equal(t, "Ana", p.Reviews[0].AuthorAttribution.DisplayName)
	assert.Equal(t, "Atendimento excelente", p.Reviews[0].Text.Text)
	assert.InDelta(t, 2.0, p.Reviews[1].Rating, 0.001)
}

func TestPlaceDetails_EmptyID(t *testing.T) {
	client := NewClient("k", WithBaseURL("http://unused.invalid"))
	_, err := client.PlaceDetails(context.Background(), "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty place id")
}

func TestAddressComponent_HasType(t *testing.T) {
	c := AddressComponent{Types: []string{"political", "administrative_area_level_2"}}
	assert.True(t, c.HasType("administrative_area_level_2"))
	assert.False(t, c.HasType("administrative_area_level_1"))
}

func TestCategoryToType(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"Dentista", "dentist"},
		{"Clínica Odontológica Infantil", "dentist"},
		{"Médico", "doctor"},
		{"Farmácia de manipulação", "pharmacy"},
		{"Restaurante italiano", "restaurant"},
		{"Escritório de Advocacia", "lawyer"},
		{"Salão de Beleza", "beauty_salon"},
		{"Barbearia", "hair_care"},
		{"Clínica Veterinária", "veterinary_care"},
		{"Imobiliária", "real_estate_agency"},
		{"Pet Shop", "pet_store"},
		{"Ótica", "optician"},
		{"Hotel fazenda", "lodging"},
		{"Padaria", FallbackType},
		{"", FallbackType},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryToType(tt.category))
		})
	}
}
