package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	calendardomain "github.com/goghstudio/gogh-backend/internal/calendar/domain"
	creditsdomain "github.com/goghstudio/gogh-backend/internal/credits/domain"
	generationdomain "github.com/goghstudio/gogh-backend/internal/generation/domain"
	profiledomain "github.com/goghstudio/gogh-backend/internal/profile/domain"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
	ErrInternal       = errors.New("internal_error")
)

// errorPayload is the wire shape every failing endpoint returns. Only
// errors the client branches on carry a machine-readable code.
type errorPayload struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Balance    *int   `json:"balance,omitempty"`
	Required   *int   `json:"required,omitempty"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// ErrorHandlingMiddleware translates the last error recorded on the
// context into a JSON response, unless a handler already wrote one.
func (s *Server) ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := s.mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func (s *Server) mapError(err error) (int, errorPayload) {
	var insufficient *creditsdomain.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		balance := insufficient.Balance
		required := insufficient.Required
		return http.StatusBadRequest, errorPayload{
			Error:      "Créditos insuficientes para gerar o roteiro.",
			Code:       "insufficient_credits",
			Balance:    &balance,
			Required:   &required,
			RedirectTo: s.cfg.BillingPath,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Error: "Não autenticado.",
		}
	case errors.Is(err, generationdomain.ErrMissingItemID):
		return http.StatusBadRequest, errorPayload{
			Error: "Informe o item do calendário que deseja gerar.",
		}
	case errors.Is(err, profiledomain.ErrNoProfile):
		return http.StatusBadRequest, errorPayload{
			Error: "Complete o seu perfil de conteúdo antes de gerar roteiros.",
			Code:  "NO_PROFILE",
		}
	case errors.Is(err, calendardomain.ErrRegenerationLimit):
		return http.StatusBadRequest, errorPayload{
			Error: "Este item já atingiu o limite de 2 regenerações.",
		}
	case errors.Is(err, calendardomain.ErrInvalidItem),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Error: "Requisição inválida.",
		}
	case errors.Is(err, calendardomain.ErrItemNotFound):
		return http.StatusNotFound, errorPayload{
			Error: "Item do calendário não encontrado.",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Error: "Muitas solicitações. Aguarde um instante e tente novamente.",
			Code:  "rate_limited",
		}
	case errors.Is(err, generationdomain.ErrServiceUnavailable),
		errors.Is(err, generationdomain.ErrServiceFailure):
		return http.StatusServiceUnavailable, errorPayload{
			Error: "O serviço de geração está indisponível no momento. Tente novamente em instantes.",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Error: "Ocorreu um erro interno. Tente novamente.",
		}
	}
}

// classifyErrorForLog feeds the request logger a low-cardinality error
// type and code without the user-facing message.
func classifyErrorForLog(err error) (string, string) {
	var insufficient *creditsdomain.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		return "precondition", "insufficient_credits"
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return "auth", "unauthorized"
	case errors.Is(err, profiledomain.ErrNoProfile):
		return "precondition", "no_profile"
	case errors.Is(err, calendardomain.ErrRegenerationLimit):
		return "precondition", "regeneration_limit"
	case errors.Is(err, generationdomain.ErrMissingItemID),
		errors.Is(err, calendardomain.ErrInvalidItem),
		errors.Is(err, ErrInvalidRequest):
		return "validation", "invalid_request"
	case errors.Is(err, calendardomain.ErrItemNotFound):
		return "not_found", "calendar_item"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit", "rate_limited"
	case errors.Is(err, generationdomain.ErrServiceUnavailable):
		return "upstream", "not_configured"
	case errors.Is(err, generationdomain.ErrServiceFailure):
		return "upstream", "bad_completion"
	default:
		return "internal", "internal_error"
	}
}
