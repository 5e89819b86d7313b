package rest

import (
	"net/http"

	"curriculum-graph/internal/domain/topic"
	"curriculum-graph/internal/interfaces/http/dto"
	"curriculum-graph/internal/interfaces/http/validation"

	"go.uber.org/zap"
)

type handler struct {
	builders  BuilderSource
	logger    *zap.Logger
	validator *validation.Validator
}

// bind decodes and validates a request body, writing the error response
// itself when the body is rejected.
func (h *handler) bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := decode(w, r, dst); err != nil {
		h.handleServiceError(w, r, err)
		return false
	}
	if fields := h.validator.Validate(dst); len(fields) > 0 {
		h.respondInvalid(w, fields)
		return false
	}
	return true
}

func (h *handler) wipeAll(w http.ResponseWriter, r *http.Request) {
	if err := h.builders().WipeAll(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) dumpAllNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.builders().DumpAllNames(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NamesResponse{Names: names, Count: len(names)})
}

func (h *handler) duplicateNames(w http.ResponseWriter, r *http.Request) {
	dups, err := h.builders().DuplicateNames(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if dups == nil {
		dups = []topic.DuplicateName{}
	}
	respondJSON(w, http.StatusOK, dto.DuplicatesResponse{Duplicates: dups})
}

func (h *handler) createTopic(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTopicRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.builders().CreateTopic(r.Context(), req.Name); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.TopicResponse{Name: req.Name})
}

func (h *handler) createRelationshipsToOne(w http.ResponseWriter, r *http.Request) {
	var req dto.FanRequest
	if !h.bind(w, r, &req) {
		return
	}
	report, err := h.builders().CreateRelationshipsToOne(r.Context(), req.Root, req.Targets...)
	h.respondLinks(w, r, report, err)
}

func (h *handler) createRelationshipsToMany(w http.ResponseWriter, r *http.Request) {
	var req dto.FanRequest
	if !h.bind(w, r, &req) {
		return
	}
	report, err := h.builders().CreateRelationshipsToMany(r.Context(), req.Root, req.Targets...)
	h.respondLinks(w, r, report, err)
}

func (h *handler) createRelationshipsConsecutively(w http.ResponseWriter, r *http.Request) {
	var req dto.ChainRequest
	if !h.bind(w, r, &req) {
		return
	}
	report, err := h.builders().CreateRelationshipsConsecutively(r.Context(), req.Chain...)
	h.respondLinks(w, r, report, err)
}

func (h *handler) respondLinks(w http.ResponseWriter, r *http.Request, report topic.LinkReport, err error) {
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLinkResponse(report))
}

func (h *handler) linkSubTopicsToOne(w http.ResponseWriter, r *http.Request) {
	var req dto.SubTopicsRequest
	if !h.bind(w, r, &req) {
		return
	}
	b := h.builders()
	if err := b.LinkSubTopicsToOne(r.Context(), req.Class, req.Root, req.SubTopics...); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondSubTopics(w, r, b, req.Class)
}

func (h *handler) linkSubTopicsConsecutively(w http.ResponseWriter, r *http.Request) {
	var req dto.SubTopicPathRequest
	if !h.bind(w, r, &req) {
		return
	}
	b := h.builders()
	if err := b.LinkSubTopicsConsecutively(r.Context(), req.Class, req.Path...); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.respondSubTopics(w, r, b, req.Class)
}

func (h *handler) respondSubTopics(w http.ResponseWriter, r *http.Request, b GraphBuilder, class topic.ClassTag) {
	ns, err := b.Catalog().Namespace(class)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto.SubTopicsResponse{Class: class, Namespace: ns})
}

func (h *handler) renameNode(w http.ResponseWriter, r *http.Request) {
	var req dto.RenameRequest
	if !h.bind(w, r, &req) {
		return
	}
	n, err := h.builders().RenameNode(r.Context(), req.OldName, req.NewName, req.Class)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.RenameResponse{Renamed: n})
}

func (h *handler) listClasses(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, dto.NewClassesResponse(h.builders().Catalog()))
}
