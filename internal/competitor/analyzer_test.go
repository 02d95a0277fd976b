package competitor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aidiscovery-cli/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

func sampleBusiness() model.BusinessSignal {
	return model.BusinessSignal{
		PlaceID:      "ChIJabc123",
		Name:         "Clinica Sorriso",
		City:         "Sao Paulo",
		Category:     "Dentista",
		Website:      "https://clinicasorriso.com.br",
		Rating:       ptrFloat64(4.5),
		TotalReviews: ptrInt(120),
		Claimed:      true,
		Photos:       []string{"photo1", "photo2", "photo3"},
		PhotosCount:  ptrInt(3),
	}
}

func sampleCompetitors() []model.CompetitorRecord {
	return []model.CompetitorRecord{
		{Name: "OdontoTop", PlaceID: "ChIJcomp1", Website: "https://odontotop.com.br", Rating: ptrFloat64(4.8), TotalReviews: ptrInt(250), PhotosCount: ptrInt(5)},
		{Name: "DentalCare", PlaceID: "ChIJcomp2", Rating: ptrFloat64(4.2), TotalReviews: ptrInt(80), PhotosCount: ptrInt(1)},
		{Name: "SorrirMais", PlaceID: "ChIJcomp3", Website: "https://sorrirmais.com.br", Rating: ptrFloat64(4.0), TotalReviews: ptrInt(40), PhotosCount: ptrInt(3)},
	}
}

func gapsOfType(gaps []model.GapRecord, typ string) []model.GapRecord {
	var out []model.GapRecord
	for _, g := range gaps {
		if g.Type == typ {
			out = append(out, g)
		}
	}
	return out
}

func TestAnalyze_EmptyCompetitors(t *testing.T) {
	got := Analyze(sampleBusiness(), nil, model.AIMentionMap{"Clinica Sorriso": true})

	assert.InDelta(t, 50.0, got.CompetitiveScore, 1e-9)
	assert.Empty(t, got.Gaps)
	assert.NotNil(t, got.Gaps)
	assert.True(t, got.ComparisonMatrix.IsEmpty())
	assert.Empty(t, got.Competitors)
}

func TestAnalyze_Full(t *testing.T) {
	mentions := model.AIMentionMap{"Clinica Sorriso": true, "OdontoTop": true}
	got := Analyze(sampleBusiness(), sampleCompetitors(), mentions)

	require.NotNil(t, got.ComparisonMatrix.Business)
	assert.Equal(t, "Clinica Sorriso", got.ComparisonMatrix.Business.Name)
	assert.Len(t, got.Competitors, 3)
	assert.Equal(t, "OdontoTop", got.Competitors[0].Name)
	assert.True(t, got.Competitors[0].AIMentioned)
	assert.Equal(t, mentions, got.AIMentions)

	// rating 4.5/4.8*30 + reviews 120/250*30 + photos 3/5*15 + mention 15 + site 10
	assert.InDelta(t, 76.5, got.CompetitiveScore, 1e-9)
}

func TestBuildMatrix(t *testing.T) {
	t.Run("averages", func(t *testing.T) {
		m := BuildMatrix(sampleBusiness(), sampleCompetitors())
		require.NotNil(t, m.CompetitorsAvg)
		assert.InDelta(t, 4.3, m.CompetitorsAvg.Rating, 1e-9)
		assert.Equal(t, 123, m.CompetitorsAvg.TotalReviews)
		assert.Equal(t, 3, m.CompetitorsAvg.PhotosCount)

		require.NotNil(t, m.Business)
		assert.InDelta(t, 4.5, m.Business.Rating, 1e-9)
		assert.Equal(t, 120, m.Business.TotalReviews)
		assert.True(t, m.Business.HasWebsite)
	})

	t.Run("top competitors keep input order and cap at three", func(t *testing.T) {
		comps := append(sampleCompetitors(), model.CompetitorRecord{Name: "Fourth", Rating: ptrFloat64(5), TotalReviews: ptrInt(900)})
		m := BuildMatrix(sampleBusiness(), comps)
		require.Len(t, m.TopCompetitors, 3)
		assert.Equal(t, "OdontoTop", m.TopCompetitors[0].Name)
		assert.Equal(t, "DentalCare", m.TopCompetitors[1].Name)
		assert.Equal(t, "SorrirMais", m.TopCompetitors[2].Name)
		assert.False(t, m.TopCompetitors[1].HasWebsite)
	})

	t.Run("business photo count falls back to list length", func(t *testing.T) {
		b := model.BusinessSignal{Name: "Biz", Photos: []string{"a", "b", "c", "d"}}
		m := BuildMatrix(b, sampleCompetitors())
		assert.Equal(t, 4, m.Business.PhotosCount)
		assert.False(t, m.Business.HasWebsite)
	})

	t.Run("absent competitor values count as zero", func(t *testing.T) {
		comps := []model.CompetitorRecord{{Name: "A"}, {Name: "B"}}
		m := BuildMatrix(sampleBusiness(), comps)
		assert.Zero(t, m.CompetitorsAvg.Rating)
		assert.Zero(t, m.CompetitorsAvg.TotalReviews)
		assert.Zero(t, m.CompetitorsAvg.PhotosCount)
	})

	t.Run("divides by full competitor count", func(t *testing.T) {
		comps := []model.CompetitorRecord{{Name: "A", TotalReviews: ptrInt(100)}, {Name: "B"}}
		m := BuildMatrix(sampleBusiness(), comps)
		assert.Equal(t, 50, m.CompetitorsAvg.TotalReviews)
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, BuildMatrix(sampleBusiness(), nil).IsEmpty())
	})
}

func TestIdentifyGaps(t *testing.T) {
	site := "https://x.com"

	tests := []struct {
		name         string
		business     model.BusinessSignal
		competitors  []model.CompetitorRecord
		mentions     model.AIMentionMap
		gapType      string
		wantCount    int
		wantSeverity string
	}{
		{
			name:     "review gap high severity",
			business: model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(10), Rating: ptrFloat64(4.5)},
			competitors: []model.CompetitorRecord{
				{TotalReviews: ptrInt(100), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5), Website: site},
				{TotalReviews: ptrInt(80), Rating: ptrFloat64(4.2), PhotosCount: ptrInt(3)},
			},
			gapType: model.GapReviews, wantCount: 1, wantSeverity: model.SeverityHigh,
		},
		{
			name:     "review gap medium severity",
			business: model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(80), Rating: ptrFloat64(4.5)},
			competitors: []model.CompetitorRecord{
				{TotalReviews: ptrInt(100), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5)},
				{TotalReviews: ptrInt(120), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5)},
			},
			gapType: model.GapReviews, wantCount: 1, wantSeverity: model.SeverityMedium,
		},
		{
			name:     "review gap exactly half is medium",
			business: model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(50)},
			competitors: []model.CompetitorRecord{
				{TotalReviews: ptrInt(100)},
			},
			gapType: model.GapReviews, wantCount: 1, wantSeverity: model.SeverityMedium,
		},
		{
			name:        "no review gap when above average",
			business:    model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(200), Rating: ptrFloat64(4.5)},
			competitors: []model.CompetitorRecord{{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5)}},
			gapType:     model.GapReviews, wantCount: 0,
		},
		{
			name:        "no review gap on tie",
			business:    model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(50)},
			competitors: []model.CompetitorRecord{{TotalReviews: ptrInt(50)}},
			gapType:     model.GapReviews, wantCount: 0,
		},
		{
			name:     "rating gap high",
			business: model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(50), Rating: ptrFloat64(3.5)},
			competitors: []model.CompetitorRecord{
				{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5), PhotosCount: ptrInt(5)},
				{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.3), PhotosCount: ptrInt(5)},
			},
			gapType: model.GapRating, wantCount: 1, wantSeverity: model.SeverityHigh,
		},
		{
			name:        "rating gap medium",
			business:    model.BusinessSignal{Name: "Biz", Rating: ptrFloat64(4.2)},
			competitors: []model.CompetitorRecord{{Rating: ptrFloat64(4.5)}},
			gapType:     model.GapRating, wantCount: 1, wantSeverity: model.SeverityMedium,
		},
		{
			name:        "no rating gap when equal",
			business:    model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5)},
			competitors: []model.CompetitorRecord{{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5), PhotosCount: ptrInt(5)}},
			gapType:     model.GapRating, wantCount: 0,
		},
		{
			name:     "photo gap is always medium",
			business: model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5), Photos: []string{"p1"}},
			competitors: []model.CompetitorRecord{
				{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(10)},
				{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(8)},
			},
			gapType: model.GapPhotos, wantCount: 1, wantSeverity: model.SeverityMedium,
		},
		{
			name:        "ai visibility gap",
			business:    model.BusinessSignal{Name: "MyBiz", TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5)},
			competitors: []model.CompetitorRecord{{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5)}},
			mentions:    model.AIMentionMap{"MyBiz": false, "CompA": true},
			gapType:     model.GapAIVisibility, wantCount: 1, wantSeverity: model.SeverityHigh,
		},
		{
			name:        "no ai visibility gap when mentioned",
			business:    model.BusinessSignal{Name: "MyBiz", TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5)},
			competitors: []model.CompetitorRecord{{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5)}},
			mentions:    model.AIMentionMap{"MyBiz": true, "CompA": true},
			gapType:     model.GapAIVisibility, wantCount: 0,
		},
		{
			name:        "no ai visibility gap when nobody mentioned",
			business:    model.BusinessSignal{Name: "MyBiz"},
			competitors: []model.CompetitorRecord{{Name: "CompA"}},
			mentions:    model.AIMentionMap{"MyBiz": false, "CompA": false},
			gapType:     model.GapAIVisibility, wantCount: 0,
		},
		{
			name:     "website gap",
			business: model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5)},
			competitors: []model.CompetitorRecord{
				{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5), Website: "https://a.com"},
				{TotalReviews: ptrInt(50), Rating: ptrFloat64(4.0), PhotosCount: ptrInt(5), Website: "https://b.com"},
			},
			gapType: model.GapWebsite, wantCount: 1, wantSeverity: model.SeverityHigh,
		},
		{
			name:        "no website gap when business has site",
			business:    model.BusinessSignal{Name: "Biz", Website: "https://mybiz.com"},
			competitors: []model.CompetitorRecord{{Website: "https://a.com"}},
			gapType:     model.GapWebsite, wantCount: 0,
		},
		{
			name:        "no website gap when no competitor has site",
			business:    model.BusinessSignal{Name: "Biz"},
			competitors: []model.CompetitorRecord{{TotalReviews: ptrInt(50)}},
			gapType:     model.GapWebsite, wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gapsOfType(IdentifyGaps(tt.business, tt.competitors, tt.mentions), tt.gapType)
			require.Len(t, got, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantSeverity, got[0].Severity)
				assert.NotEmpty(t, got[0].Message)
				assert.NotEmpty(t, got[0].Action)
			}
		})
	}
}

func TestIdentifyGaps_Messages(t *testing.T) {
	business := model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(50), Rating: ptrFloat64(4.5)}
	competitors := []model.CompetitorRecord{
		{Name: "Alpha", Website: "https://a.com", TotalReviews: ptrInt(50)},
		{Name: "Beta", Website: "https://b.com", TotalReviews: ptrInt(50)},
	}

	web := gapsOfType(IdentifyGaps(business, competitors, nil), model.GapWebsite)
	require.Len(t, web, 1)
	assert.Contains(t, web[0].Message, "2 de 2")

	mentions := model.AIMentionMap{"Biz": false, "Zulu": true, "Beta": true, "Alpha": true}
	ai := gapsOfType(IdentifyGaps(business, competitors, mentions), model.GapAIVisibility)
	require.Len(t, ai, 1)
	assert.Contains(t, ai[0].Message, "Alpha, Beta")
	assert.NotContains(t, ai[0].Message, "Zulu")

	reviews := gapsOfType(IdentifyGaps(
		model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(10)},
		[]model.CompetitorRecord{{TotalReviews: ptrInt(100)}, {TotalReviews: ptrInt(81)}},
		nil,
	), model.GapReviews)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Seus concorrentes têm em média 90 avaliações. Você tem 10.", reviews[0].Message)
}

func TestIdentifyGaps_RatingOnTheMean(t *testing.T) {
	business := model.BusinessSignal{Name: "Biz", Rating: ptrFloat64(4.25)}
	competitors := []model.CompetitorRecord{{Rating: ptrFloat64(4.0)}, {Rating: ptrFloat64(4.5)}}

	m := BuildMatrix(business, competitors)
	assert.InDelta(t, 4.2, m.CompetitorsAvg.Rating, 1e-9)
	assert.Empty(t, gapsOfType(IdentifyGaps(business, competitors, nil), model.GapRating))

	below := model.BusinessSignal{Name: "Biz", Rating: ptrFloat64(4.15)}
	rating := gapsOfType(IdentifyGaps(below, competitors, nil), model.GapRating)
	require.Len(t, rating, 1)
	assert.Equal(t, "Nota média dos concorrentes: 4.2. Sua nota: 4.15.", rating[0].Message)
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{4.25, 4.2},
		{4.36, 4.4},
		{4.75, 4.8},
		{4.333, 4.3},
		{0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, round1(tt.in), 1e-9, "round1(%v)", tt.in)
	}
}

func TestFormatRating(t *testing.T) {
	assert.Equal(t, "4.0", formatRating(4))
	assert.Equal(t, "4.25", formatRating(4.25))
	assert.Equal(t, "0.0", formatRating(0))
	assert.Equal(t, "NaN", formatRating(math.NaN()))
	assert.Equal(t, "+Inf", formatRating(math.Inf(1)))
}

func TestBuildMatrix_HugeCounts(t *testing.T) {
	comps := []model.CompetitorRecord{
		{Name: "A", TotalReviews: ptrInt(math.MaxInt), PhotosCount: ptrInt(math.MaxInt)},
		{Name: "B", TotalReviews: ptrInt(math.MaxInt), PhotosCount: ptrInt(math.MaxInt)},
	}
	m := BuildMatrix(sampleBusiness(), comps)
	assert.Equal(t, math.MaxInt, m.CompetitorsAvg.TotalReviews)
	assert.Equal(t, math.MaxInt, m.CompetitorsAvg.PhotosCount)

	gaps := IdentifyGaps(sampleBusiness(), comps, nil)
	require.Len(t, gapsOfType(gaps, model.GapReviews), 1)
	assert.Equal(t, model.SeverityHigh, gapsOfType(gaps, model.GapReviews)[0].Severity)
}

func TestIdentifyGaps_MultipleTogether(t *testing.T) {
	business := model.BusinessSignal{Name: "WeakBiz", TotalReviews: ptrInt(5), Rating: ptrFloat64(3.0)}
	competitors := []model.CompetitorRecord{
		{TotalReviews: ptrInt(200), Rating: ptrFloat64(4.8), PhotosCount: ptrInt(20), Website: "https://a.com"},
		{TotalReviews: ptrInt(150), Rating: ptrFloat64(4.5), PhotosCount: ptrInt(15), Website: "https://b.com"},
	}
	gaps := IdentifyGaps(business, competitors, model.AIMentionMap{"WeakBiz": false, "CompA": true})

	types := make(map[string]bool)
	for _, g := range gaps {
		types[g.Type] = true
	}
	for _, want := range []string{model.GapReviews, model.GapRating, model.GapPhotos, model.GapAIVisibility, model.GapWebsite} {
		assert.True(t, types[want], "missing %s gap", want)
	}
}

func TestIdentifyGaps_EmptyCompetitors(t *testing.T) {
	gaps := IdentifyGaps(model.BusinessSignal{Name: "Biz"}, nil, model.AIMentionMap{"Other": true})
	assert.NotNil(t, gaps)
	assert.Empty(t, gaps)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		business    model.BusinessSignal
		competitors []model.CompetitorRecord
		mentions    model.AIMentionMap
		want        float64
	}{
		{
			name:     "empty competitors is neutral",
			business: sampleBusiness(),
			want:     50.0,
		},
		{
			name:        "zero max rating uses fallback midpoint",
			business:    model.BusinessSignal{Name: "Biz", TotalReviews: ptrInt(10)},
			competitors: []model.CompetitorRecord{{Name: "A"}, {Name: "B"}},
			want:        15.0,
		},
		{
			name:     "business dominates every metric",
			business: model.BusinessSignal{Name: "Biz", Website: "https://biz.com", Rating: ptrFloat64(5), TotalReviews: ptrInt(500), PhotosCount: ptrInt(50)},
			competitors: []model.CompetitorRecord{
				{Name: "A", Rating: ptrFloat64(4), TotalReviews: ptrInt(100), PhotosCount: ptrInt(10)},
			},
			mentions: model.AIMentionMap{"Biz": true},
			want:     100.0,
		},
		{
			name:     "partial shares",
			business: model.BusinessSignal{Name: "Biz", Rating: ptrFloat64(4.0), TotalReviews: ptrInt(50), Photos: []string{"p1", "p2"}},
			competitors: []model.CompetitorRecord{
				{Name: "A", Rating: ptrFloat64(5.0), TotalReviews: ptrInt(100), PhotosCount: ptrInt(4)},
			},
			// 24 + 15 + 7.5
			want: 46.5,
		},
		{
			name:     "mention of another name earns nothing",
			business: model.BusinessSignal{Name: "Biz"},
			competitors: []model.CompetitorRecord{
				{Name: "A", Rating: ptrFloat64(5.0), TotalReviews: ptrInt(100), PhotosCount: ptrInt(4)},
			},
			mentions: model.AIMentionMap{"biz": true},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.business, tt.competitors, tt.mentions)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	mentions := model.AIMentionMap{"OdontoTop": true}
	first := Analyze(sampleBusiness(), sampleCompetitors(), mentions)
	second := Analyze(sampleBusiness(), sampleCompetitors(), mentions)
	assert.Equal(t, first, second)
}

func FuzzAnalyze(f *testing.F) {
	f.Add(4.25, 120, 4.0, 4.5, 80, 300, 5, true, true)
	f.Add(0.0, 0, 0.0, 0.0, 0, 0, 0, false, false)
	f.Add(-1.0, -50, 7.5, -3.0, -1, math.MaxInt, -9, true, false)
	f.Add(math.NaN(), 10, math.Inf(1), math.Inf(-1), 1<<40, 3, 1<<20, false, true)

	f.Fuzz(func(t *testing.T, rating float64, reviews int, r1, r2 float64, n1, n2, photos int, dupNames, mentioned bool) {
		business := model.BusinessSignal{Name: "Biz", Rating: &rating, TotalReviews: &reviews, PhotosCount: &photos}
		second := "B"
		if dupNames {
			second = "A"
		}
		competitors := []model.CompetitorRecord{
			{Name: "A", Rating: &r1, TotalReviews: &n1, PhotosCount: &photos},
			{Name: second, Rating: &r2, TotalReviews: &n2},
			{Name: "Biz", Rating: &rating, TotalReviews: &reviews},
			{Name: "D", Website: "https://d.com"},
		}
		mentions := model.AIMentionMap{"A": true, "Biz": mentioned}

		got := Analyze(business, competitors, mentions)
		if got.CompetitiveScore < 0 || got.CompetitiveScore > 100 || math.IsNaN(got.CompetitiveScore) {
			t.Fatalf("competitive score %v out of range", got.CompetitiveScore)
		}
		if len(got.Competitors) > 3 || len(got.ComparisonMatrix.TopCompetitors) > 3 {
			t.Fatalf("more than three top competitors")
		}
		for _, g := range got.Gaps {
			if g.Type == model.GapAIVisibility && mentioned {
				t.Fatalf("ai visibility gap while the business is mentioned")
			}
		}
	})
}
