package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/storefront-backend/internal/domain/aggregates"
	"github.com/yungbote/storefront-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

type outOfStockDetails struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// RespondErr writes the envelope for any handler error. Aggregate and apierr
// errors keep their code; anything else is an internal error.
func RespondErr(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}

	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	status := StatusForCode(code)
	msg := err.Error()
	var de *domainagg.Error
	if errors.As(err, &de) && de.Message != "" {
		msg = de.Message
	}
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}

	env := ErrorEnvelope{Error: APIError{Message: msg, Code: string(code)}}
	var oos *domainagg.OutOfStockError
	if errors.As(err, &oos) {
		env.Error.Details = outOfStockDetails{
			ProductID:   oos.ProductID.String(),
			ProductName: oos.ProductName,
			Requested:   oos.Requested,
			Available:   oos.Available,
		}
	}
	c.JSON(status, env)
}

func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeOutOfStock, domainagg.CodeEmptyCart:
		return http.StatusUnprocessableEntity
	case domainagg.CodeInvalidTransition, domainagg.CodeConflict,
		domainagg.CodeDuplicatePayment, domainagg.CodeAlreadyPaid:
		return http.StatusConflict
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case domainagg.CodeGatewayFailure:
		return http.StatusBadGateway
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
