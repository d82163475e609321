package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/types"
)

type ApiError struct {
	// Code is the HTTP status code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
}

func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

// ApiErrorFromErr maps a service error to its HTTP status. Credential failures never carry detail.
func ApiErrorFromErr(c *gin.Context, err error) ApiError {
	switch {
	case errors.Is(err, types.ErrNotAuthorized):
		return ApiErrorf(c, http.StatusUnauthorized, "not authorized")
	case errors.Is(err, types.ErrInvalidCredential):
		return ApiErrorf(c, http.StatusUnauthorized, "invalid credential")
	case errors.Is(err, types.ErrSessionExpiredOrConsumed):
		return ApiErrorf(c, http.StatusGone, "registration session expired or consumed, request new registration options")
	case errors.Is(err, types.ErrNotFound):
		return ApiErrorf(c, http.StatusNotFound, "not found")
	case errors.Is(err, types.ErrInvalidInput), errors.Is(err, types.ErrBadRequest):
		return ApiErrorf(c, http.StatusBadRequest, "%s", err.Error())
	case errors.Is(err, types.ErrUserExists), errors.Is(err, types.ErrConflict):
		return ApiErrorf(c, http.StatusConflict, "%s", err.Error())
	}
	level.Error(global.Logger).Log("msg", "request failed", "path", c.FullPath(), "error", err)
	return ApiErrorf(c, http.StatusInternalServerError, "internal error")
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "hexadecimal":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be hex encoded", err.Field()))
		case "len":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be %s characters long", err.Field(), err.Param()))
		case "min":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be at least %s characters long", err.Field(), err.Param()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}

// bindAndValidate decodes the JSON body into obj and runs the struct validation, writing a 400 on failure
func bindAndValidate(c *gin.Context, v *validator.Validate, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(obj); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(vErrs))
			return false
		}
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
