package audit

import (
	"strings"

	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/pkg/google"
)

// maxPhotoRefs caps the photo resource names kept on a business record.
// The full count is still reported in PhotosCount.
const maxPhotoRefs = 20

// claimedStatus is the businessStatus Places reports for a live listing.
const claimedStatus = "OPERATIONAL"

// BusinessFromPlace normalizes a Places record into the audited business.
func BusinessFromPlace(p google.Place) model.BusinessSignal {
	b := model.BusinessSignal{
		PlaceID:       p.ID,
		Name:          strings.TrimSpace(p.DisplayName.Text),
		Address:       p.FormattedAddress,
		Category:      p.PrimaryTypeDisplayName.Text,
		Rating:        p.Rating,
		TotalReviews:  p.UserRatingCount,
		Description:   p.EditorialSummary.Text,
		Website:       p.WebsiteURI,
		Phone:         p.NationalPhoneNumber,
		Claimed:       p.BusinessStatus == claimedStatus,
		GoogleMapsURL: p.GoogleMapsURI,
	}
	b.City, b.State = cityState(p.AddressComponents)

	count := len(p.Photos)
	b.PhotosCount = &count
	for i, ph := range p.Photos {
		if i == maxPhotoRefs {
			break
		}
		b.Photos = append(b.Photos, ph.Name)
	}

	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		b.Lat, b.Lng = &lat, &lng
	}
	return b
}

// CompetitorFromPlace normalizes a nearby place into a competitor record.
func CompetitorFromPlace(p google.Place) model.CompetitorRecord {
	count := len(p.Photos)
	return model.CompetitorRecord{
		Name:          strings.TrimSpace(p.DisplayName.Text),
		PlaceID:       p.ID,
		Address:       p.FormattedAddress,
		Rating:        p.Rating,
		TotalReviews:  p.UserRatingCount,
		PhotosCount:   &count,
		Category:      p.PrimaryTypeDisplayName.Text,
		Website:       p.WebsiteURI,
		GoogleMapsURL: p.GoogleMapsURI,
	}
}

// CompetitorsFromPlaces converts search results, dropping the audited place
// and anything without a name, and keeps at most limit records.
func CompetitorsFromPlaces(places []google.Place, selfID string, limit int) []model.CompetitorRecord {
	var out []model.CompetitorRecord
	for _, p := range places {
		if limit > 0 && len(out) == limit {
			break
		}
		if p.ID == selfID || strings.TrimSpace(p.DisplayName.Text) == "" {
			continue
		}
		out = append(out, CompetitorFromPlace(p))
	}
	return out
}

// ReviewsFromPlace converts the reviews embedded in a details response,
// keeping at most limit. Reviews without an author or text are skipped.
func ReviewsFromPlace(p google.Place, limit int) []model.Review {
	var out []model.Review
	for _, r := range p.Reviews {
		if limit > 0 && len(out) == limit {
			break
		}
		text := r.Text
		if text.Text == "" {
			text = r.OriginalText
		}
		author := strings.TrimSpace(r.AuthorAttribution.DisplayName)
		if author == "" && text.Text == "" {
			continue
		}
		out = append(out, model.Review{
			PlaceID:     p.ID,
			Author:      author,
			Rating:      r.Rating,
			Text:        text.Text,
			Language:    text.LanguageCode,
			PublishedAt: r.PublishTime,
		})
	}
	return out
}

// cityState reads the municipality and state abbreviation from structured
// address parts. Locality wins over the level 2 area when both exist.
func cityState(parts []google.AddressComponent) (city, state string) {
	var area2 string
	for _, c := range parts {
		switch {
		case c.HasType("locality"):
			city = c.LongText
		case c.HasType("administrative_area_level_2"):
			area2 = c.LongText
		case c.HasType("administrative_area_level_1"):
			state = c.ShortText
		}
	}
	if city == "" {
		city = area2
	}
	return city, state
}
