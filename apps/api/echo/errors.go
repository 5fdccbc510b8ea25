package echoapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errTokenSigningFailed   = errors.New("failed to sign token")
)

// appHTTPErrorHandler maps the room core's error taxonomy (and validation
// failures) to JSON responses. Muted/Banned stay distinguishable from the
// generic denial so clients can render the right message; non-members only
// ever see the generic denial.
func appHTTPErrorHandler(err error, c echo.Context) {
	var code int
	var message interface{}

	switch terr := err.(type) {
	case *echo.HTTPError:
		if terr == middleware.ErrJWTMissing {
			code = http.StatusUnauthorized
			message = terr.Message
			break
		}
		if terr.Internal != nil {
			if herr, ok := terr.Internal.(*echo.HTTPError); ok {
				terr = herr
			}
		}
		code = terr.Code
		message = terr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string)
		for _, vErr := range terr {
			fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
		}
		code = http.StatusBadRequest
		message = fldErrs
	case *core.ValidationError:
		if terr.Fields != nil {
			fldErrs := make(map[string]string)
			for _, fErr := range terr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			message = fldErrs
		} else {
			message = terr.Error()
		}
		code = http.StatusBadRequest
	default:
		code, message = roomErrorStatus(err)
	}

	if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	// Send response
	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

func roomErrorStatus(err error) (int, interface{}) {
	switch {
	case errors.Is(err, room.ErrNotAuthorized),
		errors.Is(err, room.ErrMuted),
		errors.Is(err, room.ErrBanned),
		errors.Is(err, room.ErrNotEnrolled),
		errors.Is(err, room.ErrSelfAction),
		errors.Is(err, room.ErrCannotBanOwner):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, room.ErrNotFound), errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, room.ErrConflict), errors.Is(err, room.ErrAlreadyReviewed):
		return http.StatusConflict, err.Error()
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
