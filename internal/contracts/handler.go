package contracts

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/compass-crm/compass/internal/platform/httpx"
	"github.com/compass-crm/compass/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Patch("/{id}", h.handleUpdate)
}

type createRequest struct {
	ClientID          int64 `json:"client_id" validate:"required,gt=0"`
	TotalAmount       int64 `json:"total_amount" validate:"required,gt=0"`
	OutstandingAmount int64 `json:"outstanding_amount" validate:"gte=0"`
	Signed            bool  `json:"signed"`
}

type updateRequest struct {
	TotalAmount       *int64 `json:"total_amount" validate:"omitempty,gt=0"`
	OutstandingAmount *int64 `json:"outstanding_amount" validate:"omitempty,gte=0"`
	Signed            *bool  `json:"signed"`
}

type contractResponse struct {
	ID                int64     `json:"id"`
	ClientID          int64     `json:"client_id"`
	TotalAmount       int64     `json:"total_amount"`
	OutstandingAmount int64     `json:"outstanding_amount"`
	Signed            bool      `json:"signed"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toResponse(c *Contract) contractResponse {
	return contractResponse{
		ID:                c.ID,
		ClientID:          c.ClientID,
		TotalAmount:       c.TotalAmount,
		OutstandingAmount: c.OutstandingAmount,
		Signed:            c.Signed,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	filter := ListFilter{
		UnsignedOnly: r.URL.Query().Get("unsigned") == "true",
		UnpaidOnly:   r.URL.Query().Get("unpaid") == "true",
	}
	list, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]contractResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid contract id")
		return
	}
	c, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	c, err := h.service.Create(r.Context(), actor, CreateInput{
		ClientID:          req.ClientID,
		TotalAmount:       req.TotalAmount,
		OutstandingAmount: req.OutstandingAmount,
		Signed:            req.Signed,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(c))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid contract id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	c, err := h.service.Update(r.Context(), actor, id, UpdateInput{
		TotalAmount:       req.TotalAmount,
		OutstandingAmount: req.OutstandingAmount,
		Signed:            req.Signed,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(c))
}
