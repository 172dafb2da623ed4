package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taisuke/takt/internal/application"
)

type materialService interface {
	CreateMaterial(ctx context.Context, params application.CreateMaterialParams) (application.Material, error)
	UpdateMaterial(ctx context.Context, params application.UpdateMaterialParams) (application.Material, error)
	DeleteMaterial(ctx context.Context, slug, materialID string) error
}

// MaterialHandler serves the material form actions.
type MaterialHandler struct {
	service   materialService
	responder responder
	logger    *slog.Logger
}

func NewMaterialHandler(service materialService, logger *slog.Logger) *MaterialHandler {
	base := defaultLogger(logger)
	return &MaterialHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")

	var form materialForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	if _, err := h.service.CreateMaterial(r.Context(), application.CreateMaterialParams{Slug: slug, Input: form.input()}); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, "資料を追加しました。", "")
}

func (h *MaterialHandler) Update(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")
	materialID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.redirect(w, r, back, "", errMissingID.Error())
		return
	}

	var form materialForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	sortOrder, valid := form.sortOrder()
	if !valid {
		h.responder.redirect(w, r, back, "", errSortOrder.Error())
		return
	}
	if _, err := h.service.UpdateMaterial(r.Context(), application.UpdateMaterialParams{
		Slug:       slug,
		MaterialID: materialID,
		Input:      form.input(),
		SortOrder:  sortOrder,
	}); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, "資料を更新しました。", "")
}

func (h *MaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")
	materialID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.redirect(w, r, back, "", errMissingID.Error())
		return
	}

	if err := h.service.DeleteMaterial(r.Context(), slug, materialID); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, "資料を削除しました。", "")
}
