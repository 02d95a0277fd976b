package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/aidiscovery-cli/internal/audit"
	"github.com/sells-group/aidiscovery-cli/internal/model"
	"github.com/sells-group/aidiscovery-cli/internal/report"
	"github.com/sells-group/aidiscovery-cli/internal/schema"
	"github.com/sells-group/aidiscovery-cli/internal/store"
)

const maxBodyBytes = 64 << 10

type auditCreated struct {
	ID     string            `json:"id"`
	Status model.AuditStatus `json:"status"`
	Score  *int              `json:"score,omitempty"`
	Cached bool              `json:"cached,omitempty"`
}

func (s *Server) createAudit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := schema.Validate(schema.AuditRequest, body); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request", "details": verr.Problems})
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var req audit.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log := zap.L().With(zap.String("business", req.BusinessName), zap.String("user", UserID(r.Context())))
	job, err := s.audits.Prepare(r.Context(), req)
	if errors.Is(err, audit.ErrBusinessNotFound) {
		writeError(w, http.StatusNotFound, "business not found")
		return
	}
	if err != nil {
		log.Error("api: prepare audit failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not start audit")
		return
	}

	a := job.Audit()
	if job.Cached() {
		score := a.Score
		writeJSON(w, http.StatusOK, auditCreated{ID: a.ID, Status: a.Status, Score: &score, Cached: true})
		return
	}

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		res, err := job.Execute(s.jobCtx)
		if err != nil {
			log.Error("api: audit failed", zap.String("audit_id", a.ID), zap.Error(err))
			return
		}
		log.Info("api: audit complete", zap.String("audit_id", a.ID), zap.Int("score", res.Audit.Score))
	}()

	writeJSON(w, http.StatusCreated, auditCreated{ID: a.ID, Status: model.AuditPending})
}

func (s *Server) listAudits(w http.ResponseWriter, r *http.Request) {
	filter := model.AuditFilter{
		Status:  model.AuditStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		PlaceID: strings.TrimSpace(r.URL.Query().Get("place_id")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	audits, err := s.store.ListAudits(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list audits failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list audits")
		return
	}
	if audits == nil {
		audits = []model.Audit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"audits": audits, "count": len(audits)})
}

func (s *Server) getAudit(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAudit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAudit(w, r)
	if !ok {
		return
	}
	if a.Status != model.AuditCompleted {
		writeError(w, http.StatusConflict, "audit is "+string(a.Status))
		return
	}
	b := s.business(r, a)

	var text string
	switch r.URL.Query().Get("format") {
	case "", "text":
		text = report.Text(a, b)
	case "whatsapp":
		text = report.WhatsApp(a, b)
	default:
		writeError(w, http.StatusBadRequest, "format must be text or whatsapp")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (s *Server) resendWhatsApp(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadAudit(w, r)
	if !ok {
		return
	}
	if a.Status != model.AuditCompleted {
		writeError(w, http.StatusConflict, "audit is "+string(a.Status))
		return
	}

	var body struct {
		Phone string `json:"phone"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if phone := strings.TrimSpace(body.Phone); phone != "" {
		a.ContactPhone = phone
	}

	err := s.audits.Deliver(r.Context(), a, s.business(r, a))
	switch {
	case errors.Is(err, audit.ErrWhatsAppDisabled):
		writeError(w, http.StatusServiceUnavailable, "whatsapp is not configured")
	case errors.Is(err, audit.ErrNoContactPhone):
		writeError(w, http.StatusBadRequest, "phone is required")
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]any{"whatsapp_sent": false, "error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"whatsapp_sent": true})
	}
}

func (s *Server) loadAudit(w http.ResponseWriter, r *http.Request) (*model.Audit, bool) {
	id := chi.URLParam(r, "id")
	a, err := s.store.GetAudit(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "audit not found")
		return nil, false
	}
	if err != nil {
		zap.L().Error("api: get audit failed", zap.String("audit_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load audit")
		return nil, false
	}
	return a, true
}

// business loads the audited business, falling back to a stub that still
// renders.
func (s *Server) business(r *http.Request, a *model.Audit) model.BusinessSignal {
	b, err := s.store.GetBusiness(r.Context(), a.BusinessID)
	if err != nil {
		zap.L().Warn("api: business lookup failed", zap.String("audit_id", a.ID), zap.Error(err))
		return model.BusinessSignal{ID: a.BusinessID, PlaceID: a.PlaceID}
	}
	return *b
}
