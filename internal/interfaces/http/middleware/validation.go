package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/alexthecreator0001/woowms-sub001/internal/interfaces/http/dto"
)

// SetupValidator makes gin's validator name fields by their json tag, so
// error details point at what the client actually sent.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// HandleBindError answers a failed ShouldBind* with 400: VALIDATION_ERROR
// with per-field details, INVALID_JSON for an unparsable body, BAD_REQUEST
// otherwise.
func HandleBindError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, details))
		return
	}

	if isMalformedJSON(err) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Malformed JSON body", requestID))
		return
	}
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "Invalid request", requestID))
}

func isMalformedJSON(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// fieldMessages covers the tags used by the request DTOs
var fieldMessages = map[string]string{
	"required": "This field is required",
	"url":      "Must be an absolute URL",
	"uuid":     "Must be a UUID",
	"len":      "Must be exactly %s characters",
	"oneof":    "Must be one of: %s",
	"min":      "Must be at least %s",
	"max":      "Must be at most %s",
}

func fieldMessage(fe validator.FieldError) string {
	msg, ok := fieldMessages[fe.Tag()]
	if !ok {
		return "Invalid value"
	}
	if (fe.Tag() == "min" || fe.Tag() == "max") && fe.Kind() == reflect.String {
		msg += " characters"
	}
	if strings.Contains(msg, "%s") {
		msg = strings.Replace(msg, "%s", fe.Param(), 1)
	}
	return msg
}
