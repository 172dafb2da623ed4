package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/taisuke/takt/internal/application"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errMissingSlug    = errors.New("イベントが指定されていません。")
	errMissingID      = errors.New("対象が指定されていません。")
	errLocked         = errors.New("編集するにはパスワードを入力してください。")
	errSortOrder      = errors.New("並び順は整数で入力してください。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized), errors.Is(err, application.ErrInvalidPassword):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "ACCESS_FORBIDDEN",
			Message:   userMessage(err),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: userMessage(err)})
	case errors.Is(err, application.ErrSlugTaken):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "SLUG_TAKEN", Message: userMessage(err)})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: userMessage(err)})
	}
}

// redirect answers a form POST with 303 See Other to target, carrying msg or
// errMsg as a transient status line.
func (r responder) redirect(w http.ResponseWriter, req *http.Request, target, msg, errMsg string) {
	values := url.Values{}
	if msg != "" {
		values.Set("msg", msg)
	}
	if errMsg != "" {
		values.Set("err", errMsg)
	}
	if encoded := values.Encode(); encoded != "" {
		if strings.Contains(target, "?") {
			target += "&" + encoded
		} else {
			target += "?" + encoded
		}
	}
	http.Redirect(w, req, target, http.StatusSeeOther)
}

// redirectError logs err and redirects with its user-facing message.
func (r responder) redirectError(w http.ResponseWriter, req *http.Request, target string, err error) {
	ctx := req.Context()
	logger := r.loggerFor(ctx)
	var vErr *application.ValidationError
	if errors.As(err, &vErr) || errors.Is(err, application.ErrInvalidPassword) || errors.Is(err, application.ErrSlugTaken) {
		logger.InfoContext(ctx, "form rejected", "error", err, "error_kind", application.ErrorKind(err))
	} else {
		logger.ErrorContext(ctx, "form action failed", "error", err, "error_kind", application.ErrorKind(err))
	}
	r.redirect(w, req, target, "", userMessage(err))
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// userMessage is the text shown to people for err. Unknown failures surface
// their literal message.
func userMessage(err error) string {
	var vErr *application.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &vErr):
		details := localizeValidationErrors(vErr)
		parts := make([]string, 0, len(details))
		for _, field := range vErr.Fields() {
			parts = append(parts, details[field])
		}
		return strings.Join(parts, " / ")
	case errors.Is(err, application.ErrSlugTaken):
		return "このスラッグは既に使われています。別のスラッグを指定してください。"
	case errors.Is(err, application.ErrInvalidPassword):
		return "パスワードが正しくありません。"
	case errors.Is(err, application.ErrUnauthorized):
		return errLocked.Error()
	case errors.Is(err, application.ErrNotFound):
		return "指定されたイベントまたは項目が見つかりません。"
	default:
		return err.Error()
	}
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

// translateValidationMessage maps the few English messages that come from
// lower layers; service messages are already Japanese.
func translateValidationMessage(message string) string {
	switch message {
	case "time must be HH:MM or HH:MM:SS":
		return "時刻は HH:MM 形式で入力してください。"
	case "is required":
		return "必須項目です。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
