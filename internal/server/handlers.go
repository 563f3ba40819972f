package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/contented/internal/content"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/index"
	"git.home.luguber.info/inful/contented/internal/server/responses"
	"git.home.luguber.info/inful/contented/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := responses.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.startTime).Seconds(),
	}
	s.respond(w, r, resp)
}

func (s *Server) handlePipelines(w http.ResponseWriter, r *http.Request) {
	m, err := s.opts.Store.ReadManifest()
	if err != nil && !ferrors.HasCategory(err, ferrors.CategoryNotFound) {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if m.Pipelines == nil {
		m.Pipelines = []index.ManifestEntry{}
	}
	s.respond(w, r, responses.PipelinesResponse{GeneratedAt: m.GeneratedAt, Pipelines: m.Pipelines})
}

// handleDocument serves a pipeline document. The optional section query
// parameter keeps records whose sections start with the given path.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.opts.Store.Read(chi.URLParam(r, "type"))
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if section := r.URL.Query()["section"]; len(section) > 0 {
		doc.Records = slices.DeleteFunc(doc.Records, func(rec content.FileContent) bool {
			return !hasSectionPrefix(rec.Sections, section)
		})
		doc.Count = len(doc.Records)
	}
	s.respond(w, r, doc)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	typ, id := chi.URLParam(r, "type"), chi.URLParam(r, "id")
	doc, err := s.opts.Store.Read(typ)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	rec, ok := doc.Find(id)
	if !ok {
		s.errorAdapter.WriteErrorResponse(w, r, ferrors.NotFoundError("record not found").
			WithContext("pipeline", typ).
			WithContext("id", id).
			Build())
		return
	}
	s.respond(w, r, rec)
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, responses.BatchesResponse{Batches: s.opts.Journal.History()})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, ok := s.opts.Journal.Batch(id)
	if !ok {
		s.errorAdapter.WriteErrorResponse(w, r, ferrors.NotFoundError("batch not found").WithContext("batch_id", id).Build())
		return
	}
	s.respond(w, r, summary)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any) {
	if err := writeJSONPretty(w, r, http.StatusOK, v); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, ferrors.WrapError(err, ferrors.CategoryInternal, "encode response").Build())
	}
}

func hasSectionPrefix(sections, prefix []string) bool {
	if len(prefix) > len(sections) {
		return false
	}
	return slices.Equal(sections[:len(prefix)], prefix)
}
