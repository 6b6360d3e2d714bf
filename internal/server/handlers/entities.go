package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/server/storage"
	"github.com/iudanet/realsync/pkg/api"
)

// Broadcaster publishes events to realtime subscribers of a topic
type Broadcaster interface {
	Broadcast(topic, event string, payload any) error
}

// EntitiesHandler handles CRUD requests for collection entities and
// publishes the resulting change events to the feed topic.
type EntitiesHandler struct {
	logger      *slog.Logger
	storage     storage.EntityStorage
	broadcaster Broadcaster
}

// NewEntitiesHandler creates a new entities handler
func NewEntitiesHandler(logger *slog.Logger, st storage.EntityStorage, b Broadcaster) *EntitiesHandler {
	return &EntitiesHandler{
		logger:      logger,
		storage:     st,
		broadcaster: b,
	}
}

// feedTopic derives the change-feed topic for a collection
func feedTopic(collection string) string {
	return fmt.Sprintf("%s-changes", collection)
}

// Create handles POST /api/v1/collections/{collection}/entities
// Missing id and updated_at fields are filled in by the server.
func (h *EntitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	var entity models.Entity
	if err := json.NewDecoder(r.Body).Decode(&entity); err != nil {
		h.logger.Warn("Failed to decode entity", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	if entity.ID() == "" {
		entity[models.FieldID] = uuid.NewString()
	}
	if entity.UpdatedAt() == "" {
		entity[models.FieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	}

	if err := h.storage.Upsert(r.Context(), collection, entity); err != nil {
		h.logger.Error("Failed to create entity", "error", err, "collection", collection)
		h.writeStorageError(w, err)
		return
	}

	h.publishChange(collection, api.ChangeInsert, entity, nil)

	h.logger.Info("Entity created", "collection", collection, "entity_id", entity.ID())
	h.writeJSON(w, http.StatusCreated, api.EntityResponse{Entity: entity})
}

// Update handles PUT /api/v1/collections/{collection}/entities/{id}
func (h *EntitiesHandler) Update(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	id := r.PathValue("id")

	var entity models.Entity
	if err := json.NewDecoder(r.Body).Decode(&entity); err != nil {
		h.logger.Warn("Failed to decode entity", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}

	entity[models.FieldID] = id
	if entity.UpdatedAt() == "" {
		entity[models.FieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	}

	old, err := h.storage.Get(r.Context(), collection, id)
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		h.logger.Error("Failed to load entity", "error", err, "collection", collection, "entity_id", id)
		h.writeStorageError(w, err)
		return
	}

	if err := h.storage.Upsert(r.Context(), collection, entity); err != nil {
		h.logger.Error("Failed to update entity", "error", err, "collection", collection, "entity_id", id)
		h.writeStorageError(w, err)
		return
	}

	eventType := api.ChangeUpdate
	if old == nil {
		eventType = api.ChangeInsert
	}
	h.publishChange(collection, eventType, entity, old)

	h.logger.Info("Entity updated", "collection", collection, "entity_id", id)
	h.writeJSON(w, http.StatusOK, api.EntityResponse{Entity: entity})
}

// Get handles GET /api/v1/collections/{collection}/entities/{id}
func (h *EntitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	id := r.PathValue("id")

	entity, err := h.storage.Get(r.Context(), collection, id)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, api.EntityResponse{Entity: entity})
}

// List handles GET /api/v1/collections/{collection}/entities
func (h *EntitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	entities, err := h.storage.List(r.Context(), collection)
	if err != nil {
		h.logger.Error("Failed to list entities", "error", err, "collection", collection)
		h.writeStorageError(w, err)
		return
	}

	resp := api.EntityListResponse{Entities: make([]map[string]any, 0, len(entities))}
	for _, entity := range entities {
		resp.Entities = append(resp.Entities, entity)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/v1/collections/{collection}/entities/{id}
func (h *EntitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")
	id := r.PathValue("id")

	old, err := h.storage.Get(r.Context(), collection, id)
	if err != nil {
		h.writeStorageError(w, err)
		return
	}

	if err := h.storage.Delete(r.Context(), collection, id); err != nil {
		h.logger.Error("Failed to delete entity", "error", err, "collection", collection, "entity_id", id)
		h.writeStorageError(w, err)
		return
	}

	h.publishChange(collection, api.ChangeDelete, nil, old)

	h.logger.Info("Entity deleted", "collection", collection, "entity_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntitiesHandler) publishChange(collection, eventType string, entity, old models.Entity) {
	payload := api.ChangePayload{
		EventType: eventType,
		New:       entity,
		Old:       old,
		Timestamp: time.Now().UTC(),
	}

	if err := h.broadcaster.Broadcast(feedTopic(collection), api.EventChange, payload); err != nil {
		h.logger.Error("Failed to broadcast change", "error", err, "collection", collection)
	}
}

func (h *EntitiesHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *EntitiesHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, api.ErrorResponse{Error: code, Message: message})
}

func (h *EntitiesHandler) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrEntityNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "Entity not found")
	case errors.Is(err, storage.ErrInvalidEntity):
		h.writeError(w, http.StatusBadRequest, "invalid_entity", "Entity is missing required fields")
	default:
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
