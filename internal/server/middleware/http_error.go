package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const StatusClientClosedRequest = 499

// ErrorHandler return custom http error handler.
func ErrorHandler(log Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if err == nil || c.Response().Committed {
			return
		}

		resp := NewResponseError(c, err)
		if resp.Status >= http.StatusInternalServerError {
			log.Errorw("request failed", "uri", c.Request().RequestURI, "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Status)
		} else {
			err = c.JSON(resp.Status, resp)
		}
		if err != nil {
			log.Errorw("could not response", "code", resp.Status, "response_body", resp)
		}
	}
}

// NewResponseError converts err into the JSON error payload. Internal causes
// never reach the message.
func NewResponseError(c echo.Context, err error) *ResponseError {
	resp := &ResponseError{
		Status:       http.StatusInternalServerError,
		Success:      false,
		Err:          err,
		ErrorCode:    codes.Internal.String(),
		ErrorMessage: http.StatusText(http.StatusInternalServerError),
	}

	var re *ResponseError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &re):
		return re
	case errors.As(err, &he):
		resp.Status = he.Code
		resp.ErrorCode = http.StatusText(he.Code)
		resp.ErrorMessage = fmt.Sprint(he.Message)
		if resp.Status == http.StatusNotFound && isNotFoundHandler(c.Handler()) {
			resp.ErrorMessage = "no route matched"
		}
	case errors.Is(err, context.Canceled) && errors.Is(c.Request().Context().Err(), context.Canceled):
		resp.Status = StatusClientClosedRequest
		resp.ErrorCode = codes.Canceled.String()
		resp.ErrorMessage = "request canceled"
	default:
		st, ok := status.FromError(err)
		if !ok {
			return resp
		}
		resp.Status = HTTPStatusFromCode(st.Code())
		resp.ErrorCode = st.Code().String()
		if resp.Status < http.StatusInternalServerError {
			resp.ErrorMessage = st.Message()
		} else {
			resp.ErrorMessage = http.StatusText(resp.Status)
		}
	}
	return resp
}

func HTTPStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Canceled:
		return StatusClientClosedRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.Unimplemented:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
