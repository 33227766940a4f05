// Package response renders API results and maps the core's error-kind
// taxonomy to HTTP status codes — the only place in the module that
// should know both "what error happened" and "what status code that is".
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tokencore/internal/model"
)

type Envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Code: 0, Message: "success", Data: data})
}

func ParamError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: "ValidationError", Detail: message})
}

// errorBody is the §6 external error contract: `{error: <kind>, detail: …}`.
// This is a distinct, unwrapped shape from Envelope — §6/§7 document the
// error response as a public HTTP contract in its own right, not as a
// payload nested under the generic success envelope's "data" key.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// insufficientTokensBody is the dedicated 402 shape §6 names explicitly:
// `{error:"InsufficientTokens", required_tokens, current_balance, message}`.
type insufficientTokensBody struct {
	Error          string `json:"error"`
	RequiredTokens int64  `json:"required_tokens"`
	CurrentBalance int64  `json:"current_balance"`
	Message        string `json:"message"`
}

// FromError maps an error returned by C4/C5/C6 to the §7 HTTP status
// code and §6 error shape for its kind, writing the response directly
// onto c.
func FromError(c *gin.Context, err error) {
	var insufficient *model.InsufficientTokensError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusPaymentRequired, insufficientTokensBody{
			Error:          "InsufficientTokens",
			RequiredTokens: insufficient.Required,
			CurrentBalance: insufficient.Current,
			Message:        err.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		c.JSON(http.StatusBadRequest, errorBody{Error: "ValidationError", Detail: err.Error()})
	case errors.Is(err, model.ErrUnknownReference):
		c.JSON(http.StatusNotFound, errorBody{Error: "UnknownReference", Detail: err.Error()})
	case errors.Is(err, model.ErrUnknownUser):
		c.JSON(http.StatusNotFound, errorBody{Error: "UnknownUser", Detail: err.Error()})
	case errors.Is(err, model.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, errorBody{Error: "InsufficientTokens", Detail: err.Error()})
	case errors.Is(err, model.ErrGatewayUnavailable):
		c.JSON(http.StatusBadGateway, errorBody{Error: "GatewayUnavailable", Detail: err.Error()})
	case errors.Is(err, model.ErrGatewayRejected):
		// Terminal gateway failure is a 200 with a failed-status body, not
		// an HTTP error (§7): callers must be able to render the outcome.
		c.JSON(http.StatusOK, Envelope{Code: 0, Message: "payment failed", Data: gin.H{"status": "failed"}})
	case errors.Is(err, model.ErrConflictingState):
		c.JSON(http.StatusConflict, errorBody{Error: "ConflictingStateError", Detail: err.Error()})
	case errors.Is(err, model.ErrDuplicateReference):
		c.JSON(http.StatusConflict, errorBody{Error: "DuplicateReference", Detail: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorBody{Error: "StorageError", Detail: "internal error"})
	}
}
