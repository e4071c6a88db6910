// Tagreco - Tag-Based Catalog Recommendation Engine
// Copyright 2026 Tagreco Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagreco/tagreco

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tagreco/tagreco/internal/logging"
	"github.com/tagreco/tagreco/internal/metrics"
	"github.com/tagreco/tagreco/internal/recommend"
	"github.com/tagreco/tagreco/internal/tagstore"
	"github.com/tagreco/tagreco/internal/validation"
)

// Handlers bundles the HTTP handlers and their dependencies.
type Handlers struct {
	engine *recommend.Engine
	source recommend.FileSource

	// store is nil when the derived tag store is disabled.
	store *tagstore.Store

	logger zerolog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(engine *recommend.Engine, source recommend.FileSource, store *tagstore.Store, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine: engine,
		source: source,
		store:  store,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// RecommendPayload is the POST /api/v1/recommend request body.
type RecommendPayload struct {
	// UserID unions the user's stored derived tags into the request.
	UserID string `json:"user_id" validate:"omitempty,max=128"`

	Tags               []string `json:"tags"`
	AudienceAttributes []string `json:"audience_attributes"`
	Allergens          []string `json:"allergens"`
	IncludeExplain     bool     `json:"include_explain"`
	Limit              int      `json:"limit" validate:"min=0,max=1000"`
}

// Recommend handles POST /api/v1/recommend.
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var payload RecommendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.RecordRecommend("invalid", 0, 0)
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&payload); verr != nil {
		metrics.RecordRecommend("invalid", 0, 0)
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	tags := payload.Tags
	if payload.UserID != "" && h.store != nil {
		stored, err := h.store.Get(r.Context(), payload.UserID)
		metrics.RecordTagStoreOp("get", err)
		if err != nil {
			logger := logging.Ctx(r.Context())
			logger.Error().Err(err).Str("user_id", payload.UserID).Msg("Failed to load stored tags")
			rw.InternalError("Failed to load stored user tags")
			return
		}
		tags = append(append([]string{}, tags...), stored...)
	}

	start := time.Now()
	result, err := h.engine.Recommend(recommend.Request{
		Tags:               tags,
		AudienceAttributes: payload.AudienceAttributes,
		Allergens:          payload.Allergens,
		IncludeExplain:     payload.IncludeExplain,
		Limit:              payload.Limit,
	})
	if err != nil {
		var reqErr *recommend.RequestError
		if errors.As(err, &reqErr) {
			metrics.RecordRecommend("invalid", 0, time.Since(start))
			rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeBadRequest, reqErr.Message, map[string]interface{}{"field": reqErr.Field})
			return
		}
		metrics.RecordRecommend("invalid", 0, time.Since(start))
		rw.InternalError("Recommendation failed")
		return
	}

	outcome := "ok"
	if len(result.Cards) == 0 {
		outcome = "empty"
	}
	metrics.RecordRecommend(outcome, len(result.Cards), time.Since(start))
	for _, excl := range result.Excluded {
		metrics.RecordExclusion(excl.Reason)
	}

	rw.Success(result)
}

// ValidatePayload is the POST /api/v1/validate request body. Rules are
// validated against the currently serving ontology and catalog.
type ValidatePayload struct {
	Rules string `json:"rules" validate:"required"`
}

// validateResult is the validation endpoint's response body.
type validateResult struct {
	Valid  bool                        `json:"valid"`
	Errors []recommend.ValidationError `json:"errors,omitempty"`
}

// Validate handles POST /api/v1/validate. A dry run: the serving
// snapshot is never touched.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var payload ValidatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&payload); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	snap := h.engine.Snapshot()
	errs := recommend.Validate([]byte(payload.Rules), snap.Ontology, snap.Catalog)
	rw.Success(validateResult{Valid: len(errs) == 0, Errors: errs})
}

// Reload handles POST /api/v1/reload: re-reads the source files and
// swaps the snapshot atomically. On validation failure the previous
// snapshot keeps serving and all problems are reported.
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ontology, catalog, rules, err := h.source.Read()
	if err != nil {
		metrics.RecordReload("read_failed", 0, 0, 0, time.Time{})
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("Failed to read source documents")
		rw.InternalError("Failed to read source documents: " + err.Error())
		return
	}

	if err := h.engine.Reload(ontology, catalog, rules); err != nil {
		var verrs recommend.ValidationErrors
		if errors.As(err, &verrs) {
			metrics.RecordReload("validation_failed", 0, 0, 0, time.Time{})
			rw.ValidationError("Reload rejected, previous snapshot retained", verrs)
			return
		}
		metrics.RecordReload("validation_failed", 0, 0, 0, time.Time{})
		rw.InternalError("Reload failed: " + err.Error())
		return
	}

	snap := h.engine.Snapshot()
	metrics.RecordReload("success", len(snap.Rules), len(snap.Catalog), len(snap.Ontology), snap.LoadedAt)
	rw.Success(snapshotInfo(snap))
}

// SnapshotInfo is the GET /api/v1/snapshot response body.
type SnapshotInfo struct {
	Rules    int       `json:"rules"`
	Products int       `json:"products"`
	Tags     int       `json:"tags"`
	LoadedAt time.Time `json:"loaded_at"`
}

func snapshotInfo(snap *recommend.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		Rules:    len(snap.Rules),
		Products: len(snap.Catalog),
		Tags:     len(snap.Ontology),
		LoadedAt: snap.LoadedAt,
	}
}

// Snapshot handles GET /api/v1/snapshot.
func (h *Handlers) Snapshot(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(snapshotInfo(h.engine.Snapshot()))
}

// UserTagsPayload is the PUT /api/v1/users/{userID}/tags request body.
type UserTagsPayload struct {
	Tags []string `json:"tags" validate:"required,min=1"`

	// Replace overwrites the stored set instead of merging into it.
	Replace bool `json:"replace"`
}

// userTagsResult is the user tags endpoints' response body.
type userTagsResult struct {
	UserID string   `json:"user_id"`
	Tags   []string `json:"tags"`
}

// PutUserTags handles PUT /api/v1/users/{userID}/tags.
func (h *Handlers) PutUserTags(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.store == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Derived tag store is disabled")
		return
	}
	userID := chi.URLParam(r, "userID")

	var payload UserTagsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&payload); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ErrorWithDetails(http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	var (
		tags []string
		err  error
	)
	if payload.Replace {
		err = h.store.Set(r.Context(), userID, payload.Tags)
		metrics.RecordTagStoreOp("set", err)
		if err == nil {
			tags, err = h.store.Get(r.Context(), userID)
		}
	} else {
		tags, err = h.store.Merge(r.Context(), userID, payload.Tags)
		metrics.RecordTagStoreOp("merge", err)
	}
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to store user tags")
		rw.InternalError("Failed to store user tags")
		return
	}

	rw.Success(userTagsResult{UserID: userID, Tags: tags})
}

// GetUserTags handles GET /api/v1/users/{userID}/tags.
func (h *Handlers) GetUserTags(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.store == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Derived tag store is disabled")
		return
	}
	userID := chi.URLParam(r, "userID")

	tags, err := h.store.Get(r.Context(), userID)
	metrics.RecordTagStoreOp("get", err)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user tags")
		rw.InternalError("Failed to load user tags")
		return
	}
	if tags == nil {
		tags = []string{}
	}

	rw.Success(userTagsResult{UserID: userID, Tags: tags})
}

// DeleteUserTags handles DELETE /api/v1/users/{userID}/tags.
func (h *Handlers) DeleteUserTags(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.store == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Derived tag store is disabled")
		return
	}
	userID := chi.URLParam(r, "userID")

	err := h.store.Clear(r.Context(), userID)
	metrics.RecordTagStoreOp("clear", err)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("user_id", userID).Msg("Failed to clear user tags")
		rw.InternalError("Failed to clear user tags")
		return
	}

	rw.NoContent()
}

// Health handles GET /api/v1/healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":             "ok",
		"snapshot_loaded_at": snap.LoadedAt,
	})
}
