package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taisuke/takt/internal/application"
)

type scheduleService interface {
	CreateItem(ctx context.Context, params application.CreateItemParams) (application.Item, error)
	UpdateItem(ctx context.Context, params application.UpdateItemParams) (application.Item, error)
	DeleteItem(ctx context.Context, slug, itemID string) error
	RenameLabel(ctx context.Context, params application.RenameLabelParams) (application.BulkResult, error)
	RemoveLabel(ctx context.Context, params application.RemoveLabelParams) (application.BulkResult, error)
}

// ItemHandler serves the timeline form actions.
type ItemHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewItemHandler(service scheduleService, logger *slog.Logger) *ItemHandler {
	base := defaultLogger(logger)
	return &ItemHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ItemHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ItemHandler", operation, attrs...)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")

	var form itemForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	input, valid := form.input()
	if !valid {
		h.responder.redirect(w, r, back, "", errSortOrder.Error())
		return
	}
	item, err := h.service.CreateItem(r.Context(), application.CreateItemParams{Slug: slug, Input: input})
	if err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, fmt.Sprintf("「%s」を追加しました。", item.Title), "")
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")
	itemID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.redirect(w, r, back, "", errMissingID.Error())
		return
	}

	var form itemForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	input, valid := form.input()
	if !valid {
		h.responder.redirect(w, r, back, "", errSortOrder.Error())
		return
	}
	item, err := h.service.UpdateItem(r.Context(), application.UpdateItemParams{Slug: slug, ItemID: itemID, Input: input})
	if err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, fmt.Sprintf("「%s」を更新しました。", item.Title), "")
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")
	itemID, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.responder.redirect(w, r, back, "", errMissingID.Error())
		return
	}

	if err := h.service.DeleteItem(r.Context(), slug, itemID); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, "項目を削除しました。", "")
}

// RenameLabel renames a target or assignee across every item.
func (h *ItemHandler) RenameLabel(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")

	var form renameLabelForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	result, err := h.service.RenameLabel(r.Context(), application.RenameLabelParams{
		Slug: slug,
		Kind: application.LabelKind(form.Kind),
		From: form.From,
		To:   form.To,
	})
	h.finishBulk(w, r, back, "RenameLabel", result, err, fmt.Sprintf("「%s」を「%s」に変更しました", strings.TrimSpace(form.From), strings.TrimSpace(form.To)))
}

// RemoveLabel removes a target or assignee from every item.
func (h *ItemHandler) RemoveLabel(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")

	var form removeLabelForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	result, err := h.service.RemoveLabel(r.Context(), application.RemoveLabelParams{
		Slug:  slug,
		Kind:  application.LabelKind(form.Kind),
		Label: form.Label,
	})
	h.finishBulk(w, r, back, "RemoveLabel", result, err, fmt.Sprintf("「%s」を外しました", strings.TrimSpace(form.Label)))
}

func (h *ItemHandler) finishBulk(w http.ResponseWriter, r *http.Request, back, operation string, result application.BulkResult, err error, done string) {
	switch {
	case err == nil:
		h.responder.redirect(w, r, back, fmt.Sprintf("%s（%d 件）。", done, result.Succeeded), "")
	case errors.Is(err, application.ErrPartialFailure):
		titles := make([]string, 0, len(result.Failed))
		for _, f := range result.Failed {
			titles = append(titles, f.ItemTitle)
		}
		h.log(r.Context(), operation, "attempted", result.Attempted, "succeeded", result.Succeeded).
			WarnContext(r.Context(), "bulk label update incomplete", "error", err)
		h.responder.redirect(w, r, back, "", fmt.Sprintf("%d 件中 %d 件を更新できませんでした: %s",
			result.Attempted, len(result.Failed), strings.Join(titles, "、")))
	default:
		h.responder.redirectError(w, r, back, err)
	}
}
