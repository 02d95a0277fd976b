package competitor

import (
	"sort"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

// Rank orders competitors by rating x reviews, highest first, keeping input
// order on ties, and returns the top three with 1-based ranks.
func Rank(competitors []model.CompetitorRecord, mentions model.AIMentionMap) []model.RankedCompetitor {
	sorted := make([]model.CompetitorRecord, len(competitors))
	copy(sorted, competitors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strength(sorted[i]) > strength(sorted[j])
	})

	n := len(sorted)
	if n > topCompetitorsN {
		n = topCompetitorsN
	}
	out := make([]model.RankedCompetitor, 0, n)
	for i, c := range sorted[:n] {
		out = append(out, model.RankedCompetitor{
			Rank:          i + 1,
			Name:          c.Name,
			PlaceID:       c.PlaceID,
			Address:       c.Address,
			Rating:        c.Rating,
			TotalReviews:  c.ReviewCount(),
			PhotosCount:   c.PhotoCount(),
			Category:      c.Category,
			Website:       c.Website,
			GoogleMapsURL: c.GoogleMapsURL,
			AIMentioned:   mentions.Mentioned(c.Name),
		})
	}
	return out
}

func strength(c model.CompetitorRecord) float64 {
	return c.RatingValue() * float64(c.ReviewCount())
}

// MentionCandidates lists the names to ask the AI recommender about: the
// business first, then each competitor, skipping blanks and duplicates.
func MentionCandidates(business model.BusinessSignal, competitors []model.CompetitorRecord) []string {
	seen := make(map[string]bool, len(competitors)+1)
	var out []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	add(business.Name)
	for _, c := range competitors {
		add(c.Name)
	}
	return out
}
