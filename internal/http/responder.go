package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/council-portal/internal/application"
)

var (
	errBadRequestBody      = errors.New("Le corps de la requête est invalide.")
	errInvalidID           = errors.New("Identifiant invalide.")
	errInvalidQuery        = errors.New("Paramètre de requête invalide.")
	errMissingSessionToken = errors.New("Authentification requise.")
)

const (
	codeBadRequest         = "BAD_REQUEST"
	codeValidation         = "VALIDATION_FAILED"
	codeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	codeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	codeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	codeForbidden          = "AUTH_FORBIDDEN"
	codeNotFound           = "NOT_FOUND"
	codeConflict           = "CONFLICT"
	codeInternal           = "INTERNAL_ERROR"
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
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

// writeError answers with a transport level failure such as a malformed body.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: statusCode(status), Message: message})
}

// handleServiceError maps application errors onto status codes. Unknown
// errors get a generic message; services log their own failures.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: codeValidation,
			Message:   "Les données fournies sont invalides.",
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrTokenExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeTokenExpired,
			Message:   "Votre session a expiré. Veuillez vous reconnecter.",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeInvalidCredentials,
			Message:   "Adresse e-mail ou mot de passe incorrect.",
		})
	case errors.Is(err, application.ErrUnauthenticated):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: codeUnauthenticated,
			Message:   localizedStatusMessage(http.StatusUnauthorized),
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: codeForbidden,
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: codeNotFound,
			Message:   localizedStatusMessage(http.StatusNotFound),
		})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: codeConflict,
			Message:   localizedStatusMessage(http.StatusConflict),
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: codeInternal,
			Message:   localizedStatusMessage(http.StatusInternalServerError),
		})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeBadRequest
	case http.StatusUnauthorized:
		return codeUnauthenticated
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusConflict:
		return codeConflict
	default:
		return codeInternal
	}
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "La requête est invalide."
	case http.StatusUnauthorized:
		return "Authentification requise."
	case http.StatusForbidden:
		return "Vous n'avez pas les droits nécessaires pour effectuer cette action."
	case http.StatusNotFound:
		return "La ressource demandée est introuvable."
	case http.StatusConflict:
		return "Cette ressource existe déjà."
	case http.StatusRequestEntityTooLarge:
		return "Le fichier envoyé est trop volumineux."
	default:
		return "Une erreur interne est survenue."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateMessage(msg)
	}
	return translated
}

var frenchMessages = map[string]string{
	"name is required":                        "Le nom est obligatoire.",
	"email is required":                       "L'adresse e-mail est obligatoire.",
	"email is invalid":                        "L'adresse e-mail est invalide.",
	"password is too short":                   "Le mot de passe doit contenir au moins 8 caractères.",
	"role is invalid":                         "Le rôle doit être « admin » ou « membre ».",
	"administrators cannot demote themselves": "Un administrateur ne peut pas retirer son propre rôle.",
	"administrators cannot delete themselves": "Un administrateur ne peut pas supprimer son propre compte.",
	"photo is required":                       "La photo est obligatoire.",
	"photo is too large":                      "La photo ne doit pas dépasser 5 Mo.",
	"photo format is not supported":           "Formats acceptés : JPEG, PNG ou WebP.",
	"date is required":                        "La date est obligatoire.",
	"location is required":                    "Le lieu est obligatoire.",
	"president is required":                   "Le président est obligatoire.",
	"title is required":                       "Le titre est obligatoire.",
	"must not be negative":                    "La valeur ne peut pas être négative.",
	"status is invalid":                       "Le statut est invalide.",
	"status cannot move backwards":            "Le statut ne peut pas revenir en arrière.",
	"session is required":                     "La session est obligatoire.",
	"member is required":                      "Le membre est obligatoire.",
	"content is required":                     "Le contenu est obligatoire.",
	"violates a data constraint":              "Les données enfreignent une contrainte d'intégrité.",
	"member not found":                        "Membre introuvable.",
	"email could not be sent":                 "L'e-mail n'a pas pu être envoyé.",
	"convocation could not be saved":          "La convocation n'a pas pu être enregistrée.",
}

func translateMessage(message string) string {
	if translated, ok := frenchMessages[message]; ok {
		return translated
	}
	return message
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
