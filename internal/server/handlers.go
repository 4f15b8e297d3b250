package server

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/internal/origin"
)

const indexFile = "index.html"

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if name == "" || strings.HasSuffix(name, "/") {
		name += indexFile
	}

	f, err := s.files.Fetch(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, origin.ErrNotFound), errors.Is(err, origin.ErrInvalidName):
			http.NotFound(w, r)
		default:
			s.logger.Error("fetch failed", zap.String("name", name), zap.Error(err))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}
		return
	}

	h := w.Header()
	h.Set("Content-Type", f.ContentType)
	h.Set("Last-Modified", f.ModTime.UTC().Format(http.TimeFormat))
	h.Set("Vary", "Accept-Encoding")
	if f.Cached {
		h.Set("X-Cache", "HIT")
	} else {
		h.Set("X-Cache", "MISS")
	}

	if notModified(r, f.ModTime) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body := f.Data
	if enc := s.compress.Negotiate(r.Header.Get("Accept-Encoding")); enc != "" {
		encoded, ok, err := s.compress.Encode(f.Data, f.ContentType, enc)
		switch {
		case err != nil:
			s.logger.Warn("compression failed", zap.String("name", f.Name), zap.Error(err))
		case ok:
			body = encoded
			h.Set("Content-Encoding", enc)
		}
	}

	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

// notModified reports whether the request's If-Modified-Since covers modTime.
func notModified(r *http.Request, modTime time.Time) bool {
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" || modTime.IsZero() {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(t)
}

type cacheStatsResponse struct {
	Files       boundcache.Stats `json:"files"`
	Compression boundcache.Stats `json:"compression"`
}

func (s *Server) cacheStats(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, cacheStatsResponse{
		Files:       s.files.Manager().Stats(),
		Compression: s.compress.Manager().Stats(),
	})
}

type entryResponse struct {
	boundcache.EntrySummary
	Score float64 `json:"score"`
}

// cacheEntries lists file cache entries worst first under the active
// strategy, so the head of the list is what goes next.
func (s *Server) cacheEntries(w http.ResponseWriter, _ *http.Request) {
	m := s.files.Manager()
	st := m.Strategy()
	now := time.Now()

	entries := m.Entries()
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = entryResponse{EntrySummary: e, Score: e.Score(st, now)}
	}
	slices.SortFunc(out, func(a, b entryResponse) int {
		switch {
		case a.Score == b.Score:
			return strings.Compare(a.Key, b.Key)
		case (st == boundcache.StrategySize) == (a.Score > b.Score):
			return -1
		default:
			return 1
		}
	})

	s.sendJSON(w, http.StatusOK, out)
}

func (s *Server) setStrategy(w http.ResponseWriter, r *http.Request) {
	st, err := boundcache.ParseStrategy(chi.URLParam(r, "name"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, set := range []func(boundcache.Strategy) error{
		s.files.Manager().SetEvictionStrategy,
		s.compress.Manager().SetEvictionStrategy,
	} {
		if err := set(st); err != nil {
			s.sendError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	s.logger.Info("eviction strategy changed", zap.Stringer("strategy", st))
	s.sendJSON(w, http.StatusOK, map[string]string{"strategy": st.String()})
}

func (s *Server) cleanup(w http.ResponseWriter, _ *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]int{
		"files":       s.files.Manager().Cleanup(),
		"compression": s.compress.Manager().Cleanup(),
	})
}

func (s *Server) clearCaches(w http.ResponseWriter, _ *http.Request) {
	s.files.Manager().Clear()
	s.compress.Manager().Clear()
	w.WriteHeader(http.StatusNoContent)
}
