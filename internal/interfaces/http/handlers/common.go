// Package handlers holds the gin handlers of the HTTP interface.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/turtacn/nlp-inference-service/pkg/errors"
	"github.com/turtacn/nlp-inference-service/pkg/types/inference"
)

// writeAppError maps application errors to HTTP responses.  Internal errors
// are masked.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ae *errors.AppError
	if !stderrors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, inference.ErrorResponse{Detail: "Internal Server Error"})
		return
	}

	status := ae.HTTPStatus()
	switch {
	case ae.Code == errors.ErrCodeValidation || ae.Code == errors.ErrCodeAIInputInvalid:
		writeValidation(c, inference.ValidationErrorItem{
			Loc:  []string{"body", "text"},
			Msg:  ae.Message,
			Type: "value_error",
		})
	case status == http.StatusInternalServerError:
		c.JSON(http.StatusInternalServerError, inference.ErrorResponse{Detail: "Internal Server Error"})
	default:
		c.JSON(status, inference.ErrorResponse{Detail: ae.Message})
	}
}

func writeValidation(c *gin.Context, items ...inference.ValidationErrorItem) {
	c.JSON(http.StatusUnprocessableEntity, inference.ValidationErrorResponse{Detail: items})
}

// bindText decodes a TextRequest and answers 422 on failure.
func bindText(c *gin.Context) (inference.TextRequest, bool) {
	var req inference.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidation(c, bindingErrors(err)...)
		return req, false
	}
	return req, true
}

// bindingErrors renders a binding error in the FastAPI detail shape.
func bindingErrors(err error) []inference.ValidationErrorItem {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		items := make([]inference.ValidationErrorItem, 0, len(verrs))
		for _, fe := range verrs {
			items = append(items, fieldError(fe))
		}
		return items
	}

	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		loc := []string{"body"}
		if typeErr.Field != "" {
			loc = append(loc, strings.Split(typeErr.Field, ".")...)
		}
		return []inference.ValidationErrorItem{{
			Loc:  loc,
			Msg:  typeErr.Type.String() + " type expected",
			Type: "type_error." + typeErr.Type.String(),
		}}
	}

	if stderrors.Is(err, io.EOF) {
		return []inference.ValidationErrorItem{{
			Loc:  []string{"body"},
			Msg:  "field required",
			Type: "value_error.missing",
		}}
	}

	return []inference.ValidationErrorItem{{
		Loc:  []string{"body"},
		Msg:  err.Error(),
		Type: "value_error.jsondecode",
	}}
}

func fieldError(fe validator.FieldError) inference.ValidationErrorItem {
	loc := []string{"body", jsonFieldName(fe.Field())}
	switch fe.Tag() {
	case "required":
		return inference.ValidationErrorItem{Loc: loc, Msg: "field required", Type: "value_error.missing"}
	case "max":
		return inference.ValidationErrorItem{
			Loc:  loc,
			Msg:  "ensure this value has at most " + fe.Param() + " characters",
			Type: "value_error.any_str.max_length",
		}
	default:
		return inference.ValidationErrorItem{Loc: loc, Msg: "failed on the '" + fe.Tag() + "' rule", Type: "value_error"}
	}
}

// jsonFieldName lower-cases the struct field name; request fields are single
// lower-case words.
func jsonFieldName(field string) string {
	return strings.ToLower(field)
}

//Personal.AI order the ending
