package pkg

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/catalog/internal/domain"
)

// Response is the standard JSON envelope for API responses.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ValidationErrorResponse is the JSON envelope for validation error responses.
type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// Success sends a 200 JSON response with the given data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

// Created sends a 201 JSON response with the newly created resource.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

// Error sends the JSON envelope for err. An AppError keeps its message and
// maps to its status; anything else is a 500 with a generic message. err is
// also recorded on the context so the access log sees the cause.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	status := domain.HTTPStatusCode(err)
	msg := "internal error"
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	c.JSON(status, Response{Code: status, Message: msg})
}

// List sends a 200 JSON response intended for paginated list results.
// result should typically be a domain.ListResult carrying rows and meta.
func List(c *gin.Context, result any) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    result,
	})
}

// ValidationError sends a 400 JSON response with per-field validation error details.
// It detects validator.ValidationErrors and extracts field-level messages.
func ValidationError(c *gin.Context, err error) {
	validationErrorWithType(c, err, nil)
}

// BindAndValidate binds the request body to obj and validates it.
// On failure it automatically sends a ValidationError response and returns false.
// Because obj is available, JSON struct tags are used for field names when possible.
// Usage in handlers:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		validationErrorWithType(c, err, obj)
		return false
	}
	return true
}

// validationErrorWithType sends a 400 validation error response. Field keys
// are dotted paths of JSON names when obj is given, e.g. "branches[1].name".
func validationErrorWithType(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: "bad request"})
		return
	}

	var root reflect.Type
	if obj != nil {
		root = reflect.TypeOf(obj)
	}

	fieldErrors := make(map[string]string, len(ve))
	for _, fe := range ve {
		fieldErrors[fieldPath(root, fe.Namespace())] = validationMessage(fe)
	}

	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation error",
		Errors:  fieldErrors,
	})
}

// fieldPath turns a validator namespace such as "CreateRequest.Branches[0].Name"
// into JSON names by walking t. Segments that cannot be resolved are lowercased.
func fieldPath(t reflect.Type, namespace string) string {
	segments := strings.Split(namespace, ".")
	if len(segments) > 1 {
		segments = segments[1:]
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		name, index, _ := strings.Cut(seg, "[")
		if index != "" {
			index = "[" + index
		}

		t = structType(t)
		var f reflect.StructField
		found := false
		if t != nil {
			f, found = t.FieldByName(name)
		}
		if !found {
			parts = append(parts, strings.ToLower(name)+index)
			t = nil
			continue
		}

		if tag := parseJSONTagName(f.Tag.Get("json")); tag != "" {
			name = tag
		} else {
			name = strings.ToLower(name)
		}
		parts = append(parts, name+index)

		t = f.Type
		if index != "" {
			t = elemType(t)
		}
	}
	return strings.Join(parts, ".")
}

func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func elemType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return t.Elem()
	}
	return t
}

// validationMessage renders a human readable message for a failed rule.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "uuid":
		return "Must be a valid UUID"
	case "alphanum":
		return "Must contain only letters and digits"
	case "iso3166_1_alpha2":
		return "Must be a two-letter ISO 3166-1 country code"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	}
	if strings.Contains(fe.Tag(), "|") {
		return "Must satisfy one of: " + strings.ReplaceAll(fe.Tag(), "|", ", ")
	}
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

// parseJSONTagName extracts the field name from a JSON struct tag value.
func parseJSONTagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
