package model

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
)

// BusinessSignal is the normalized place record of the business under audit.
// Numeric fields are optional; a nil pointer reads as zero.
type BusinessSignal struct {
	ID            string   `json:"id,omitempty"`
	PlaceID       string   `json:"place_id"`
	Name          string   `json:"name"`
	Address       string   `json:"address,omitempty"`
	City          string   `json:"city,omitempty"`
	State         string   `json:"state,omitempty"`
	Category      string   `json:"category,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	TotalReviews  *int     `json:"total_reviews,omitempty"`
	Description   string   `json:"description,omitempty"`
	Website       string   `json:"website,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Claimed       bool     `json:"claimed"`
	Photos        []string `json:"photos,omitempty"`
	PhotosCount   *int     `json:"photos_count,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	GoogleMapsURL string   `json:"google_maps_url,omitempty"`
}

// RatingValue returns the rating, or 0 when absent.
func (b BusinessSignal) RatingValue() float64 {
	if b.Rating == nil {
		return 0
	}
	return *b.Rating
}

// ReviewCount returns the review total, or 0 when absent or negative.
func (b BusinessSignal) ReviewCount() int {
	if b.TotalReviews == nil || *b.TotalReviews < 0 {
		return 0
	}
	return *b.TotalReviews
}

// PhotoCount prefers the explicit count reported by the place API and falls
// back to the number of photo references carried.
func (b BusinessSignal) PhotoCount() int {
	if b.PhotosCount != nil && *b.PhotosCount >= 0 {
		return *b.PhotosCount
	}
	return len(b.Photos)
}

// HasWebsite reports whether a non-blank website is set.
func (b BusinessSignal) HasWebsite() bool { return strings.TrimSpace(b.Website) != "" }

// HasDescription reports whether a non-blank description is set.
func (b BusinessSignal) HasDescription() bool { return strings.TrimSpace(b.Description) != "" }

// HasPhone reports whether a non-blank phone is set.
func (b BusinessSignal) HasPhone() bool { return strings.TrimSpace(b.Phone) != "" }

// HasLocation reports whether coordinates are known.
func (b BusinessSignal) HasLocation() bool { return b.Lat != nil && b.Lng != nil }

// UnmarshalJSON decodes leniently: wrongly typed fields degrade to absent
// instead of failing the whole record.
func (b *BusinessSignal) UnmarshalJSON(data []byte) error {
	if !validJSON(data) {
		return eris.New("model: invalid business json")
	}
	r := gjson.ParseBytes(data)
	*b = BusinessSignal{
		ID:            r.Get("id").String(),
		PlaceID:       r.Get("place_id").String(),
		Name:          r.Get("name").String(),
		Address:       r.Get("address").String(),
		City:          r.Get("city").String(),
		State:         r.Get("state").String(),
		Category:      r.Get("category").String(),
		Rating:        optFloat(r.Get("rating")),
		TotalReviews:  optInt(r.Get("total_reviews")),
		Description:   scalarString(r.Get("description")),
		Website:       scalarString(r.Get("website")),
		Phone:         scalarString(r.Get("phone")),
		Claimed:       r.Get("claimed").Bool(),
		Photos:        stringList(r.Get("photos")),
		PhotosCount:   optInt(r.Get("photos_count")),
		Lat:           optFloat(r.Get("lat")),
		Lng:           optFloat(r.Get("lng")),
		GoogleMapsURL: r.Get("google_maps_url").String(),
	}
	return nil
}

// CompetitorRecord is a nearby business used for comparison.
type CompetitorRecord struct {
	Name          string   `json:"name"`
	PlaceID       string   `json:"place_id,omitempty"`
	Address       string   `json:"address,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	TotalReviews  *int     `json:"total_reviews,omitempty"`
	PhotosCount   *int     `json:"photos_count,omitempty"`
	Category      string   `json:"category,omitempty"`
	Website       string   `json:"website,omitempty"`
	GoogleMapsURL string   `json:"google_maps_url,omitempty"`
}

// RatingValue returns the rating, or 0 when absent.
func (c CompetitorRecord) RatingValue() float64 {
	if c.Rating == nil {
		return 0
	}
	return *c.Rating
}

// ReviewCount returns the review total, or 0 when absent or negative.
func (c CompetitorRecord) ReviewCount() int {
	if c.TotalReviews == nil || *c.TotalReviews < 0 {
		return 0
	}
	return *c.TotalReviews
}

// PhotoCount returns the photo total, or 0 when absent or negative.
func (c CompetitorRecord) PhotoCount() int {
	if c.PhotosCount == nil || *c.PhotosCount < 0 {
		return 0
	}
	return *c.PhotosCount
}

// HasWebsite reports whether a non-blank website is set.
func (c CompetitorRecord) HasWebsite() bool { return strings.TrimSpace(c.Website) != "" }

// UnmarshalJSON decodes leniently, like BusinessSignal.
func (c *CompetitorRecord) UnmarshalJSON(data []byte) error {
	if !validJSON(data) {
		return eris.New("model: invalid competitor json")
	}
	r := gjson.ParseBytes(data)
	*c = CompetitorRecord{
		Name:          r.Get("name").String(),
		PlaceID:       r.Get("place_id").String(),
		Address:       r.Get("address").String(),
		Rating:        optFloat(r.Get("rating")),
		TotalReviews:  optInt(r.Get("total_reviews")),
		PhotosCount:   optInt(r.Get("photos_count")),
		Category:      r.Get("category").String(),
		Website:       scalarString(r.Get("website")),
		GoogleMapsURL: r.Get("google_maps_url").String(),
	}
	return nil
}

// Review is a single customer review attached to a place.
type Review struct {
	PlaceID     string  `json:"place_id"`
	Author      string  `json:"author"`
	Rating      float64 `json:"rating"`
	Text        string  `json:"text"`
	Language    string  `json:"language,omitempty"`
	PublishedAt string  `json:"published_at,omitempty"`
}

// scalarString reads a text field; null, booleans and nested values read as
// empty.
func scalarString(r gjson.Result) string {
	switch r.Type {
	case gjson.String, gjson.Number:
		return r.String()
	default:
		return ""
	}
}
