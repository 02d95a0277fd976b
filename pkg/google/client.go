package google

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aidiscovery-cli/internal/resilience"
)

const (
	defaultBaseURL  = "https://places.googleapis.com/v1"
	defaultLanguage = "pt-BR"
	defaultRegion   = "BR"
)

// Field masks. Each one bounds the SKU the request is billed at.
const (
	SearchFieldMask = "places.id,places.displayName,places.formattedAddress,places.addressComponents," +
		"places.location,places.rating,places.userRatingCount,places.websiteUri," +
		"places.nationalPhoneNumber,places.primaryType,places.primaryTypeDisplayName," +
		"places.businessStatus,places.currentOpeningHours,places.photos," +
		"places.editorialSummary,places.googleMapsUri"

	DetailFieldMask = "id,displayName,formattedAddress,addressComponents,location,rating," +
		"userRatingCount,websiteUri,nationalPhoneNumber,primaryType," +
		"primaryTypeDisplayName,businessStatus,currentOpeningHours,photos," +
		"editorialSummary,googleMapsUri,reviews"

	NearbyFieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
		"places.rating,places.userRatingCount,places.websiteUri,places.photos," +
		"places.primaryType,places.primaryTypeDisplayName,places.googleMapsUri"
)

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, query string, maxResults int) (*SearchResponse, error)
	SearchNearby(ctx context.Context, req NearbyRequest) (*SearchResponse, error)
	PlaceDetails(ctx context.Context, placeID string) (*Place, error)
}

// SearchResponse is the response from Text Search and Nearby Search.
type SearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API. Pointer fields are absent
// when the API omits them.
type Place struct {
	ID                     string             `json:"id"`
	DisplayName            LocalizedText      `json:"displayName"`
	FormattedAddress       string             `json:"formattedAddress,omitempty"`
	AddressComponents      []AddressComponent `json:"addressComponents,omitempty"`
	Location               *LatLng            `json:"location,omitempty"`
	Rating                 *float64           `json:"rating,omitempty"`
	UserRatingCount        *int               `json:"userRatingCount,omitempty"`
	WebsiteURI             string             `json:"websiteUri,omitempty"`
	NationalPhoneNumber    string             `json:"nationalPhoneNumber,omitempty"`
	PrimaryType            string             `json:"primaryType,omitempty"`
	PrimaryTypeDisplayName LocalizedText      `json:"primaryTypeDisplayName,omitempty"`
	BusinessStatus         string             `json:"businessStatus,omitempty"`
	CurrentOpeningHours    *OpeningHours      `json:"currentOpeningHours,omitempty"`
	Photos                 []Photo            `json:"photos,omitempty"`
	EditorialSummary       LocalizedText      `json:"editorialSummary,omitempty"`
	GoogleMapsURI          string             `json:"googleMapsUri,omitempty"`
	Reviews                []Review           `json:"reviews,omitempty"`
}

// LocalizedText holds a text value and its language.
type LocalizedText struct {
	Text         string `json:"text,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// AddressComponent is one part of a structured address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// HasType reports whether the component carries the given type.
func (a AddressComponent) HasType(t string) bool {
	for _, v := range a.Types {
		if v == t {
			return true
		}
	}
	return false
}

// LatLng is a geographic coordinate.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OpeningHours carries the human-readable weekly schedule.
type OpeningHours struct {
	OpenNow             *bool    `json:"openNow,omitempty"`
	WeekdayDescriptions []string `json:"weekdayDescriptions,omitempty"`
}

// Photo is a photo reference. Name is the resource name used to fetch media.
type Photo struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx,omitempty"`
	HeightPx int    `json:"heightPx,omitempty"`
}

// Review is a user review returned by Place Details.
type Review struct {
	Name              string            `json:"name,omitempty"`
	Rating            float64           `json:"rating"`
	Text              LocalizedText     `json:"text"`
	OriginalText      LocalizedText     `json:"originalText,omitempty"`
	AuthorAttribution AuthorAttribution `json:"authorAttribution"`
	PublishTime       string            `json:"publishTime,omitempty"`
}

// AuthorAttribution identifies a review author.
type AuthorAttribution struct {
	DisplayName string `json:"displayName"`
	URI         string `json:"uri,omitempty"`
}

// NearbyRequest describes a Nearby Search within a circle.
type NearbyRequest struct {
	Latitude      float64
	Longitude     float64
	RadiusMeters  float64
	IncludedTypes []string
	MaxResults    int
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLocale sets the languageCode and regionCode sent with searches.
func WithLocale(language, region string) Option {
	return func(c *httpClient) {
		if language != "" {
			c.language = language
		}
		if region != "" {
			c.region = region
		}
	}
}

type httpClient struct {
	apiKey   string
	baseURL  string
	language string
	region   string
	http     *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: defaultLanguage,
		region:   defaultRegion,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery      string `json:"textQuery"`
	LanguageCode   string `json:"languageCode,omitempty"`
	RegionCode     string `json:"regionCode,omitempty"`
	MaxResultCount int    `json:"maxResultCount,omitempty"`
}

type nearbySearchRequest struct {
	IncludedTypes       []string            `json:"includedTypes,omitempty"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
	RankPreference      string              `json:"rankPreference"`
	MaxResultCount      int                 `json:"maxResultCount,omitempty"`
	LanguageCode        string              `json:"languageCode,omitempty"`
	RegionCode          string              `json:"regionCode,omitempty"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

func (c *httpClient) TextSearch(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	body := textSearchRequest{
		TextQuery:      query,
		LanguageCode:   c.language,
		RegionCode:     c.region,
		MaxResultCount: maxResults,
	}
	var result SearchResponse
	if err := c.do(ctx, http.MethodPost, "/places:searchText", SearchFieldMask, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) SearchNearby(ctx context.Context, req NearbyRequest) (*SearchResponse, error) {
	body := nearbySearchRequest{
		IncludedTypes: req.IncludedTypes,
		LocationRestriction: locationRestriction{Circle: circle{
			Center: LatLng{Latitude: req.Latitude, Longitude: req.Longitude},
			Radius: req.RadiusMeters,
		}},
		RankPreference: "POPULARITY",
		MaxResultCount: req.MaxResults,
		LanguageCode:   c.language,
		RegionCode:     c.region,
	}
	var result SearchResponse
	if err := c.do(ctx, http.MethodPost, "/places:searchNearby", NearbyFieldMask, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID string) (*Place, error) {
	if strings.TrimSpace(placeID) == "" {
		return nil, eris.New("google: empty place id")
	}
	var result Place
	path := "/places/" + url.PathEscape(strings.TrimPrefix(placeID, "places/"))
	if err := c.do(ctx, http.MethodGet, path, DetailFieldMask, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) do(ctx context.Context, method, path, fieldMask string, in, out any) error {
	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "google: marshal request")
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}

var categoryTypes = []struct {
	keyword string
	placeTy string
}{
	{"dentista", "dentist"},
	{"clínica odontológica", "dentist"},
	{"odontologia", "dentist"},
	{"médico", "doctor"},
	{"clínica médica", "doctor"},
	{"hospital", "hospital"},
	{"farmácia", "pharmacy"},
	{"restaurante", "restaurant"},
	{"advogado", "lawyer"},
	{"escritório de advocacia", "lawyer"},
	{"academia", "gym"},
	{"salão de beleza", "beauty_salon"},
	{"barbearia", "hair_care"},
	{"veterinário", "veterinary_care"},
	{"clínica veterinária", "veterinary_care"},
	{"imobiliária", "real_estate_agency"},
	{"hotel", "lodging"},
	{"escola", "school"},
	{"pet shop", "pet_store"},
	{"ótica", "optician"},
}

// FallbackType is used when a category matches no known keyword.
const FallbackType = "establishment"

// CategoryToType maps a Portuguese category name to a Places type by
// substring match on the lower-cased category.
func CategoryToType(category string) string {
	cat := strings.ToLower(category)
	for _, m := range categoryTypes {
		if strings.Contains(cat, m.keyword) {
			return m.placeTy
		}
	}
	return FallbackType
}
