package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const msgInternal = "Internal server error."

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput, domain.KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a store or validation failure as {"message": ...}.
func writeError(c echo.Context, err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		metricsFrom(c).SetErrorStage(derr.Kind.String())
		return c.JSON(statusForKind(derr.Kind), messageResponse{Message: derr.Message})
	}
	metricsFrom(c).SetErrorStage("internal")
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, messageResponse{Message: msgInternal})
}

// httpErrorHandler answers unmatched routes and unsupported methods with 405
// and keeps every other error in the {"message": ...} shape.
func httpErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := msgInternal

		var he *echo.HTTPError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusNotFound, http.StatusMethodNotAllowed:
				status = http.StatusMethodNotAllowed
				message = msgNotSupported
			default:
				status = he.Code
				if m, ok := he.Message.(string); ok {
					message = m
				} else {
					message = fmt.Sprint(he.Message)
				}
			}
		} else if logger != nil {
			logger.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled request error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, messageResponse{Message: message})
		}
		if werr != nil && logger != nil {
			logger.WithError(werr).Warn("failed to write error response")
		}
	}
}
