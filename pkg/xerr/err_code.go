package xerr

import "net/http"

const (
	SERVER_COMMON_ERROR = 100001
	REQUEST_PARAM_ERROR = 100002
	DB_ERROR            = 100004

	ErrInternalServer = 500 // HTTP 500

	ErrBadRequest       = 1000 // HTTP 400
	ErrInvalidInput     = 1001 // HTTP 400
	ErrMissingParameter = 1002 // HTTP 400
	ErrInvalidJSON      = 1003 // HTTP 400

	ErrNotFound         = 1300 // HTTP 404
	ErrResourceNotFound = 1301 // HTTP 404

	ErrConflict       = 1400 // HTTP 409
	ErrDuplicateEntry = 1401 // HTTP 409
)

// HTTPStatus maps an application code onto the status a handler should answer with.
func HTTPStatus(code int) int {
	switch {
	case code == REQUEST_PARAM_ERROR:
		return http.StatusBadRequest
	case code >= ErrBadRequest && code < 1100:
		return http.StatusBadRequest
	case code >= ErrNotFound && code < 1400:
		return http.StatusNotFound
	case code >= ErrConflict && code < 1500:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
