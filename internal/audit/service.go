// Package audit runs the end-to-end discovery audit of a business: place
// lookup, review and competitor acquisition, Claude analyses, scoring,
// persistence and WhatsApp delivery.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/aidiscovery-cli/internal/analyst"
	"github.com/sells-group/aidiscovery-cli/internal/competitor"
	"github.com/sells-group/aidiscovery-cli/internal/cost"
	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/report"
	"github.com/sells-group/aidiscovery-cli/internal/resilience"
	"github.com/sells-group/aidiscovery-cli/internal/scoring"
	"github.com/sells-group/aidiscovery-cli/internal/store"
	"github.com/sells-group/aidiscovery-cli/internal/visual"
	"github.com/sells-group/aidiscovery-cli/pkg/anthropic"
	"github.com/sells-group/aidiscovery-cli/pkg/evolution"
	"github.com/sells-group/aidiscovery-cli/pkg/google"
)

// Sentinel errors.
var (
	// ErrBusinessNotFound is returned when the place search has no match.
	ErrBusinessNotFound = eris.New("audit: business not found")
	// ErrWhatsAppDisabled is returned by Deliver without a WhatsApp client.
	ErrWhatsAppDisabled = eris.New("audit: whatsapp is not configured")
	// ErrNoContactPhone is returned by Deliver for audits without a phone.
	ErrNoContactPhone = eris.New("audit: no contact phone")
)

// Breaker names.
const (
	servicePlaces   = "places"
	serviceClaude   = "claude"
	serviceWhatsApp = "whatsapp"
)

// Message kinds recorded in the WhatsApp log.
const (
	KindReport = "report"
	KindOwner  = "owner_notification"
)

// Request identifies the business to audit.
type Request struct {
	BusinessName string `json:"business_name"`
	City         string `json:"city"`
	Category     string `json:"category,omitempty"`
	Phone        string `json:"phone,omitempty"`
	// PlaceID skips the text search when the caller already knows the place.
	PlaceID string `json:"place_id,omitempty"`
	// Claims overrides the strengths derived from the description.
	Claims []string `json:"claims,omitempty"`
	// SkipWhatsApp disables delivery even when a phone is set.
	SkipWhatsApp bool `json:"-"`
	// Fresh ignores cached audits.
	Fresh bool `json:"-"`
}

// Query is the text search issued for the request.
func (r Request) Query() string {
	return strings.TrimSpace(strings.TrimSpace(r.BusinessName) + " " + strings.TrimSpace(r.City))
}

// Validate checks the fields every audit needs.
func (r Request) Validate() error {
	if strings.TrimSpace(r.PlaceID) != "" {
		return nil
	}
	if strings.TrimSpace(r.BusinessName) == "" {
		return eris.New("audit: business name is required")
	}
	if strings.TrimSpace(r.City) == "" {
		return eris.New("audit: city is required")
	}
	return nil
}

// Result is a finished audit with the business it describes.
type Result struct {
	Audit    *model.Audit
	Business model.BusinessSignal
	// Cached is set when a recent completed audit was reused.
	Cached bool
}

// Options tunes the pipeline.
type Options struct {
	Model              string
	MaxTokens          int64
	Weights            scoring.Weights
	Rates              cost.Rates
	CacheTTL           time.Duration
	CompetitorRadiusM  int
	CompetitorLimit    int
	MaxReviews         int
	OwnerPhone         string
	WhatsAppRetryDelay time.Duration
	Retry              resilience.RetryConfig
	Circuit            resilience.CircuitBreakerConfig
}

// Deps are the collaborators of the Service. Cache, WhatsApp and Metrics are
// optional.
type Deps struct {
	Places   google.Client
	Claude   anthropic.Client
	Store    store.Store
	Cache    Cache
	WhatsApp evolution.Client
	Metrics  *Metrics
}

// Service orchestrates audits.
type Service struct {
	places   google.Client
	claude   *analyst.Analyst
	store    store.Store
	cache    Cache
	whatsapp evolution.Client
	metrics  *Metrics

	opts     Options
	costCalc *cost.Calculator
	scorer   scoring.Calculator
	engine   scoring.Engine
	breakers *resilience.ServiceBreakers
}

// New creates a Service.
func New(deps Deps, opts Options) *Service {
	if opts.CompetitorLimit <= 0 {
		opts.CompetitorLimit = 5
	}
	if opts.CompetitorRadiusM <= 0 {
		opts.CompetitorRadiusM = 5000
	}
	if opts.Weights == (scoring.Weights{}) {
		opts.Weights = scoring.DefaultWeights()
	}
	if opts.Rates.Anthropic == nil {
		opts.Rates = cost.DefaultRates()
	}
	return &Service{
		places:   deps.Places,
		claude:   analyst.New(deps.Claude, opts.Model, opts.MaxTokens),
		store:    deps.Store,
		cache:    deps.Cache,
		whatsapp: deps.WhatsApp,
		metrics:  deps.Metrics,
		opts:     opts,
		costCalc: cost.NewCalculator(opts.Rates),
		scorer:   scoring.NewCalculator(opts.Weights),
		engine:   scoring.NewEngine(),
		breakers: resilience.NewServiceBreakers(opts.Circuit).OnStateChange(deps.Metrics.circuitChanged),
	}
}

// Breakers exposes the per-service circuit breakers, e.g. for health output.
func (s *Service) Breakers() *resilience.ServiceBreakers { return s.breakers }

// Job is an audit that has been located and recorded but not yet run.
type Job struct {
	svc      *Service
	req      Request
	audit    *model.Audit
	business model.BusinessSignal
	details  *google.Place
	tracker  *cost.Tracker
	cached   bool
}

// Audit returns the audit record the job works on.
func (j *Job) Audit() *model.Audit { return j.audit }

// Cached reports whether the job was answered from a recent audit.
func (j *Job) Cached() bool { return j.cached }

// Result returns the job's current state as a Result.
func (j *Job) Result() *Result {
	return &Result{Audit: j.audit, Business: j.business, Cached: j.cached}
}

// Run audits one business from start to finish.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	job, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if job.Cached() {
		return job.Result(), nil
	}
	return job.Execute(ctx)
}

// Prepare locates the business and records a pending audit. When a completed
// audit of the same place exists inside the cache window, the returned job is
// already cached and needs no Execute.
func (s *Service) Prepare(ctx context.Context, req Request) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("business", req.BusinessName), zap.String("city", req.City))
	job := &Job{svc: s, req: req, tracker: cost.NewTracker(s.costCalc)}

	placeID := strings.TrimSpace(req.PlaceID)
	if placeID != "" {
		if res := s.cached(ctx, placeID, req); res != nil {
			return s.cachedJob(job, res), nil
		}
		place, err := s.placeDetails(ctx, job.tracker, placeID)
		if err != nil {
			return nil, err
		}
		job.details = place
		job.business = BusinessFromPlace(*place)
	} else {
		place, err := s.search(ctx, job.tracker, req.Query())
		if err != nil {
			return nil, err
		}
		if res := s.cached(ctx, place.ID, req); res != nil {
			return s.cachedJob(job, res), nil
		}
		job.business = BusinessFromPlace(*place)
	}
	if job.business.Category == "" {
		job.business.Category = strings.TrimSpace(req.Category)
	}

	businessID, err := s.store.UpsertBusiness(ctx, job.business)
	if err != nil {
		return nil, eris.Wrap(err, "audit: save business")
	}
	job.business.ID = businessID

	job.audit = &model.Audit{
		BusinessID:   businessID,
		PlaceID:      job.business.PlaceID,
		Status:       model.AuditPending,
		ContactPhone: strings.TrimSpace(req.Phone),
	}
	if err := s.store.CreateAudit(ctx, job.audit); err != nil {
		return nil, eris.Wrap(err, "audit: create audit")
	}

	log.Info("audit: created",
		zap.String("audit_id", job.audit.ID),
		zap.String("place_id", job.business.PlaceID),
	)
	return job, nil
}

func (s *Service) cachedJob(job *Job, res *Result) *Job {
	job.audit = res.Audit
	job.business = res.Business
	job.cached = true
	s.metrics.cacheHit()
	return job
}

// Execute runs the acquisition, analysis, scoring and delivery steps. Any
// failure marks the audit failed before returning the error.
func (j *Job) Execute(ctx context.Context) (*Result, error) {
	if j.cached {
		return j.Result(), nil
	}
	start := time.Now()
	res, err := j.execute(ctx, start)
	if err != nil {
		j.fail(ctx, start, err)
		j.svc.metrics.observeAudit(j.audit, time.Since(start))
		return nil, err
	}
	j.svc.metrics.observeAudit(j.audit, time.Since(start))
	return res, nil
}

func (j *Job) execute(ctx context.Context, start time.Time) (*Result, error) {
	s := j.svc
	a := j.audit
	log := zap.L().With(zap.String("audit_id", a.ID), zap.String("place_id", a.PlaceID))

	if err := s.store.UpdateAuditStatus(ctx, a.ID, model.AuditProcessing); err != nil {
		return nil, eris.Wrap(err, "audit: mark processing")
	}
	a.Status = model.AuditProcessing

	// Acquire reviews and competitors.
	var (
		reviews     []model.Review
		competitors []model.CompetitorRecord
		compErr     error
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reviews = j.acquireReviews(gCtx)
		return gCtx.Err()
	})
	g.Go(func() error {
		competitors, compErr = s.findCompetitors(gCtx, j.tracker, j.business, j.req.Category)
		if compErr != nil {
			log.Warn("audit: competitor search failed", zap.Error(compErr))
		}
		return gCtx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "audit: acquire")
	}

	// Analyze with Claude. Every call degrades to its default.
	an := s.claude.WithTracker(j.tracker)
	claudeCB := s.breakers.Get(serviceClaude)
	var (
		perception = model.DefaultPerception()
		sentiment  = model.DefaultSentiment()
		queries    []model.ConversationalQuery
		mentions   = model.AIMentionMap{}
	)
	g, gCtx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		perception, err = resilience.WithFallback(gCtx, claudeCB, model.DefaultPerception(),
			func(ctx context.Context) (model.AIPerceptionResult, error) {
				return an.Perception(ctx, j.business, reviews)
			})
		logFallback(log, "perception", err)
		return gCtx.Err()
	})
	g.Go(func() error {
		var err error
		sentiment, err = resilience.WithFallback(gCtx, claudeCB, model.DefaultSentiment(),
			func(ctx context.Context) (model.SentimentResult, error) {
				return an.SentimentGaps(ctx, j.business, reviews, j.req.Claims)
			})
		logFallback(log, "sentiment", err)
		return gCtx.Err()
	})
	g.Go(func() error {
		var err error
		queries, err = resilience.WithFallback(gCtx, claudeCB, []model.ConversationalQuery(nil),
			func(ctx context.Context) ([]model.ConversationalQuery, error) {
				return an.ConversationalQueries(ctx, j.business)
			})
		logFallback(log, "queries", err)
		return gCtx.Err()
	})
	if compErr == nil {
		candidates := competitor.MentionCandidates(j.business, competitors)
		g.Go(func() error {
			var err error
			mentions, err = resilience.WithFallback(gCtx, claudeCB, model.AIMentionMap{},
				func(ctx context.Context) (model.AIMentionMap, error) {
					return an.CheckMentions(ctx, j.business, candidates)
				})
			logFallback(log, "mentions", err)
			return gCtx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "audit: analyze")
	}

	// Score.
	visualResult := visual.Audit(j.business.PhotoCount())
	var analysis *model.CompetitiveAnalysis
	if compErr == nil {
		ca := competitor.Analyze(j.business, competitors, mentions)
		analysis = &ca
	}
	breakdown := s.scorer.Breakdown(perception, sentiment, visualResult, j.business, analysis)
	score := scoring.Total(breakdown)

	a.Score = score
	a.Tier = string(scoring.Interpret(score).Tier)
	a.Breakdown = breakdown
	a.AIPerception = perception
	a.Sentiment = sentiment
	a.SentimentScore = sentiment.MeanTopicScore(0.5)
	a.Visual = visualResult
	a.Competitive = analysis
	a.ConversationalQueries = queries
	a.Recommendations = s.engine.Recommend(score, perception, sentiment, visualResult, j.business, analysis)

	// Complete.
	now := time.Now().UTC()
	a.Status = model.AuditCompleted
	a.CompletedAt = &now
	a.ProcessingTimeMs = time.Since(start).Milliseconds()
	a.CostUSD = j.tracker.Claude()
	if err := s.store.SaveAudit(ctx, a); err != nil {
		return nil, eris.Wrap(err, "audit: save audit")
	}
	s.remember(ctx, a)

	log.Info("audit: completed",
		zap.Int("score", a.Score),
		zap.String("tier", a.Tier),
		zap.Int("reviews", len(reviews)),
		zap.Int("competitors", len(competitors)),
		zap.Int64("duration_ms", a.ProcessingTimeMs),
		zap.Float64("claude_cost_usd", a.CostUSD),
		zap.Float64("total_cost_usd", j.tracker.Total()),
	)

	// Deliver.
	if a.ContactPhone != "" && !j.req.SkipWhatsApp {
		if err := s.Deliver(ctx, a, j.business); err != nil {
			log.Warn("audit: whatsapp delivery failed", zap.Error(err))
		}
	}

	return j.Result(), nil
}

// acquireReviews fetches place details and stores their reviews. Failures
// only cost the reviews.
func (j *Job) acquireReviews(ctx context.Context) []model.Review {
	s := j.svc
	log := zap.L().With(zap.String("place_id", j.business.PlaceID))

	details := j.details
	if details == nil {
		var err error
		details, err = s.placeDetails(ctx, j.tracker, j.business.PlaceID)
		if err != nil {
			log.Warn("audit: place details failed", zap.Error(err))
			return nil
		}
	}

	reviews := ReviewsFromPlace(*details, s.opts.MaxReviews)
	if len(reviews) == 0 {
		return nil
	}
	if n, err := s.store.SaveReviews(ctx, j.business.PlaceID, reviews); err != nil {
		log.Warn("audit: save reviews failed", zap.Error(err))
	} else {
		log.Debug("audit: reviews saved", zap.Int64("count", n))
	}
	return reviews
}

// findCompetitors searches nearby places of the same type when the business
// has coordinates, otherwise runs a text search for the category in the
// city. The business itself is excluded.
func (s *Service) findCompetitors(ctx context.Context, tr *cost.Tracker, b model.BusinessSignal, category string) ([]model.CompetitorRecord, error) {
	if category == "" {
		category = b.Category
	}
	limit := s.opts.CompetitorLimit
	cb := s.breakers.Get(servicePlaces)

	if b.HasLocation() {
		resp, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*google.SearchResponse, error) {
			return resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) (*google.SearchResponse, error) {
				tr.AddPlaces(cost.PlacesNearbySearch)
				return s.places.SearchNearby(ctx, google.NearbyRequest{
					Latitude:      *b.Lat,
					Longitude:     *b.Lng,
					RadiusMeters:  float64(s.opts.CompetitorRadiusM),
					IncludedTypes: []string{google.CategoryToType(category)},
					MaxResults:    limit + 1,
				})
			})
		})
		if err != nil {
			return nil, eris.Wrap(err, "audit: nearby search")
		}
		return CompetitorsFromPlaces(resp.Places, b.PlaceID, limit), nil
	}

	query := fmt.Sprintf("melhor %s em %s", strings.ToLower(orDefault(category, "estabelecimento")), b.City)
	resp, err := resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*google.SearchResponse, error) {
		return resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) (*google.SearchResponse, error) {
			tr.AddPlaces(cost.PlacesTextSearch)
			return s.places.TextSearch(ctx, query, limit+3)
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "audit: competitor text search")
	}
	return CompetitorsFromPlaces(resp.Places, b.PlaceID, limit), nil
}

func (s *Service) search(ctx context.Context, tr *cost.Tracker, query string) (*google.Place, error) {
	resp, err := resilience.ExecuteVal(ctx, s.breakers.Get(servicePlaces), func(ctx context.Context) (*google.SearchResponse, error) {
		return resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) (*google.SearchResponse, error) {
			tr.AddPlaces(cost.PlacesTextSearch)
			return s.places.TextSearch(ctx, query, 1)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "audit: search %q", query)
	}
	if len(resp.Places) == 0 {
		return nil, eris.Wrapf(ErrBusinessNotFound, "query %q", query)
	}
	return &resp.Places[0], nil
}

func (s *Service) placeDetails(ctx context.Context, tr *cost.Tracker, placeID string) (*google.Place, error) {
	place, err := resilience.ExecuteVal(ctx, s.breakers.Get(servicePlaces), func(ctx context.Context) (*google.Place, error) {
		return resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) (*google.Place, error) {
			tr.AddPlaces(cost.PlacesDetails)
			return s.places.PlaceDetails(ctx, placeID)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "audit: place details %s", placeID)
	}
	return place, nil
}

// cached returns a completed audit of placeID inside the cache window. The
// redis entry is consulted first, then the store.
func (s *Service) cached(ctx context.Context, placeID string, req Request) *Result {
	if req.Fresh || s.opts.CacheTTL <= 0 {
		return nil
	}
	log := zap.L().With(zap.String("place_id", placeID))
	since := time.Now().UTC().Add(-s.opts.CacheTTL)

	var a *model.Audit
	if s.cache != nil {
		id, err := s.cache.Get(ctx, placeID)
		if err != nil {
			log.Warn("audit: cache lookup failed", zap.Error(err))
		}
		if id != "" {
			got, err := s.store.GetAudit(ctx, id)
			if err == nil && got.Status == model.AuditCompleted && !got.CreatedAt.Before(since) {
				a = got
			}
		}
	}
	if a == nil {
		got, err := s.store.FindRecentCompleted(ctx, placeID, since)
		if err != nil {
			log.Warn("audit: recent audit lookup failed", zap.Error(err))
			return nil
		}
		if got == nil {
			return nil
		}
		a = got
		s.remember(ctx, a)
	}

	res := &Result{Audit: a, Cached: true}
	if b, err := s.store.GetBusiness(ctx, a.BusinessID); err == nil {
		res.Business = *b
	} else {
		res.Business = model.BusinessSignal{ID: a.BusinessID, PlaceID: a.PlaceID}
	}
	log.Info("audit: cache hit", zap.String("audit_id", a.ID))
	return res
}

func (s *Service) remember(ctx context.Context, a *model.Audit) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	ttl := s.opts.CacheTTL - time.Since(a.CreatedAt)
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, a.PlaceID, a.ID, ttl); err != nil {
		zap.L().Warn("audit: cache store failed", zap.String("place_id", a.PlaceID), zap.Error(err))
	}
}

// fail records the error on the audit. It uses a context detached from
// cancellation so a timed-out audit is still marked failed.
func (j *Job) fail(ctx context.Context, start time.Time, cause error) {
	a := j.audit
	a.Status = model.AuditFailed
	a.ErrorMessage = cause.Error()
	a.ProcessingTimeMs = time.Since(start).Milliseconds()
	a.CostUSD = j.tracker.Claude()
	now := time.Now().UTC()
	a.CompletedAt = &now

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := j.svc.store.SaveAudit(saveCtx, a); err != nil {
		zap.L().Error("audit: failed to record failure",
			zap.String("audit_id", a.ID),
			zap.Error(err),
		)
	}
	zap.L().Error("audit: failed", zap.String("audit_id", a.ID), zap.Error(cause))
}

// Deliver sends the WhatsApp report to the audit's contact phone and notifies
// the owner. The outcome is recorded on the audit; a delivery failure never
// changes the audit status.
func (s *Service) Deliver(ctx context.Context, a *model.Audit, b model.BusinessSignal) error {
	if s.whatsapp == nil {
		return ErrWhatsAppDisabled
	}
	if a.ContactPhone == "" {
		return ErrNoContactPhone
	}

	err := s.send(ctx, a.ID, a.ContactPhone, KindReport, report.WhatsApp(a, b))
	a.WhatsAppSent = err == nil
	a.WhatsAppError = ""
	if err != nil {
		a.WhatsAppError = err.Error()
	}
	if saveErr := s.store.SaveAudit(ctx, a); saveErr != nil {
		zap.L().Warn("audit: save delivery status failed", zap.String("audit_id", a.ID), zap.Error(saveErr))
	}

	if s.opts.OwnerPhone != "" {
		if ownerErr := s.send(ctx, a.ID, s.opts.OwnerPhone, KindOwner, report.OwnerNotification(a, b)); ownerErr != nil {
			zap.L().Warn("audit: owner notification failed", zap.String("audit_id", a.ID), zap.Error(ownerErr))
		}
	}
	return err
}

// send delivers one message with a single retry after the configured delay
// and logs every attempt's outcome.
func (s *Service) send(ctx context.Context, auditID, phone, kind, text string) error {
	number := evolution.NormalizePhone(phone)
	msg := &model.WhatsAppMessage{AuditID: auditID, Phone: number, Kind: kind}

	var res *evolution.SendResult
	err := func() error {
		if !evolution.ValidatePhone(number) {
			return eris.Errorf("audit: invalid phone %q", phone)
		}
		cb := s.breakers.Get(serviceWhatsApp)
		var err error
		for attempt := 0; attempt < 2; attempt++ {
			if attempt > 0 {
				if sleepErr := resilience.Sleep(ctx, s.opts.WhatsAppRetryDelay); sleepErr != nil {
					return eris.Wrap(sleepErr, "audit: whatsapp retry aborted")
				}
			}
			res, err = resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*evolution.SendResult, error) {
				return s.whatsapp.SendText(ctx, number, text)
			})
			if err == nil {
				return nil
			}
			zap.L().Warn("audit: whatsapp send failed",
				zap.String("audit_id", auditID),
				zap.String("kind", kind),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
		}
		return err
	}()

	if err != nil {
		msg.Status = "failed"
		msg.Error = err.Error()
	} else {
		msg.Status = orDefault(res.Status, "sent")
		msg.MessageID = res.MessageID
	}
	if logErr := s.store.LogWhatsApp(ctx, msg); logErr != nil {
		zap.L().Warn("audit: log whatsapp failed", zap.String("audit_id", auditID), zap.Error(logErr))
	}
	s.metrics.whatsApp(kind, err)
	return err
}

func logFallback(log *zap.Logger, step string, err error) {
	if err != nil {
		log.Warn("audit: analysis fell back to default", zap.String("step", step), zap.Error(err))
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
