package http

import (
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = validator.New()

// ReadAndValidateRequest binds, applies defaults, and validates the request
// into req. Returns field-level errors on failure, nil on success.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return []ValidationError{{Code: "ERR_BIND", Message: "malformed request"}}
	}

	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Code: "ERR_DEFAULTS", Message: err.Error()}}
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			out := make([]ValidationError, 0, len(verrs))
			for _, fe := range verrs {
				out = append(out, ValidationError{
					Code:    fmt.Sprintf("ERR_%s", fe.Tag()),
					Field:   fe.Field(),
					Message: fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()),
				})
			}
			return out
		}
		return []ValidationError{{Code: "ERR_VALIDATION", Message: err.Error()}}
	}

	return nil
}
