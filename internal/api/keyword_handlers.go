package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ranktrakr/ranktrakr/internal/serp"
	"github.com/ranktrakr/ranktrakr/internal/store"
)

const defaultHistoryDays = 30

func (s *Server) listKeywords(w http.ResponseWriter, r *http.Request) {
	rankings, err := s.rankings.Latest(r.Context(), s.db)
	if err != nil {
		s.logger.Error("list latest rankings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list keywords")
		return
	}
	writeData(w, http.StatusOK, rankings)
}

type createKeywordRequest struct {
	Keyword      string `json:"keyword"`
	TargetDomain string `json:"target_domain"`
}

func (s *Server) createKeyword(w http.ResponseWriter, r *http.Request) {
	var req createKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Keyword = strings.TrimSpace(req.Keyword)
	req.TargetDomain = serp.CanonicalDomain(req.TargetDomain)
	if req.Keyword == "" || req.TargetDomain == "" {
		writeError(w, http.StatusBadRequest, "keyword and target_domain are required")
		return
	}

	kw, err := s.keywords.Insert(r.Context(), s.db, req.Keyword, req.TargetDomain)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKeyword) {
			writeError(w, http.StatusConflict, "keyword already tracked")
			return
		}
		s.logger.Error("insert keyword", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add keyword")
		return
	}

	// Best effort initial snapshot; the keyword is tracked either way and
	// the next cycle will fill any gap.
	s.initialFetch(r, kw)

	writeData(w, http.StatusCreated, kw)
}

func (s *Server) initialFetch(r *http.Request, kw store.Keyword) {
	match, err := s.client.FetchBestMatch(r.Context(), kw.Keyword, kw.TargetDomain, s.defaults)
	if err != nil {
		s.logger.Warn("initial fetch failed",
			zap.String("keyword", kw.Keyword),
			zap.Error(err),
		)
		return
	}
	if match == nil {
		if err := s.rankings.RecordNoMatch(r.Context(), s.db, kw.ID, kw.Keyword); err != nil {
			s.logger.Warn("record initial no-match", zap.String("keyword", kw.Keyword), zap.Error(err))
		}
		return
	}
	fields := store.SnapshotFields{
		Position:     match.Position,
		URL:          match.URL,
		SearchVolume: match.SearchVolume,
		Competition:  match.Competition,
		CPC:          match.CPC,
		Features:     match.Features,
	}
	if err := s.rankings.UpsertSnapshot(r.Context(), s.db, kw.ID, kw.Keyword, fields); err != nil {
		s.logger.Warn("save initial snapshot", zap.String("keyword", kw.Keyword), zap.Error(err))
	}
}

func (s *Server) getKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid keyword id")
		return
	}
	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
	}

	kw, err := s.keywords.Get(r.Context(), s.db, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "keyword not found")
			return
		}
		s.logger.Error("get keyword", zap.Int64("keyword_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch keyword")
		return
	}
	latest, err := s.rankings.LatestFor(r.Context(), s.db, id)
	if err != nil {
		s.logger.Error("fetch latest snapshot", zap.Int64("keyword_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch latest snapshot")
		return
	}
	history, err := s.rankings.History(r.Context(), s.db, id, days)
	if err != nil {
		s.logger.Error("fetch history", zap.Int64("keyword_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"keyword": kw,
		"latest":  latest,
		"history": history,
	})
}

func (s *Server) deleteKeyword(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid keyword id")
		return
	}
	if err := s.keywords.Delete(r.Context(), s.db, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "keyword not found")
			return
		}
		s.logger.Error("delete keyword", zap.Int64("keyword_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete keyword")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) triggerUpdate(w http.ResponseWriter, r *http.Request) {
	summary, err := s.cycle.Run(r.Context())
	if err != nil {
		s.logger.Error("manual update cycle", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update cycle failed")
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (s *Server) debugSERP(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("kw"))
	domain := serp.CanonicalDomain(r.URL.Query().Get("domain"))
	if keyword == "" || domain == "" {
		writeError(w, http.StatusBadRequest, "kw and domain query parameters are required")
		return
	}
	loc := s.defaults
	if name := r.URL.Query().Get("loc"); name != "" {
		loc.LocationName = name
		loc.LocationCode = 0
	}

	preview, err := s.client.Preview(r.Context(), keyword, domain, loc, 10)
	if err != nil {
		s.logger.Error("serp preview", zap.String("keyword", keyword), zap.Error(err))
		writeError(w, http.StatusBadGateway, "provider request failed")
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"keyword":    keyword,
		"domain":     domain,
		"top":        preview.Top,
		"matches":    preview.Matches,
		"matchCount": len(preview.Matches),
	})
}

// debugPing reports outbound connectivity to the provider. Failures are
// diagnostic data, not errors, so the response is always 200.
func (s *Server) debugPing(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Ping(r.Context()); err != nil {
		writeData(w, http.StatusOK, map[string]any{"ok": false, "detail": err.Error()})
		return
	}
	writeData(w, http.StatusOK, map[string]any{"ok": true})
}
