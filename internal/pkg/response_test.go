package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/catalog/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testInput is used to generate real validator.ValidationErrors.
type testInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// newResponseTestContext creates a gin context backed by an httptest.ResponseRecorder.
func newResponseTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

// newResponseTestContextWithBody creates a gin context with a JSON request body.
func newResponseTestContextWithBody(body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

// makeValidationErrors validates an empty testInput and returns the resulting
// validator.ValidationErrors.
func makeValidationErrors(t *testing.T) validator.ValidationErrors {
	t.Helper()
	validate := validator.New()
	err := validate.Struct(testInput{})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validator.ValidationErrors, got %T", err)
	}
	return ve
}

func TestSuccess(t *testing.T) {
	c, w := newResponseTestContext()

	data := map[string]string{"greeting": "hello"}
	Success(c, data)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("expected code %d, got %d", http.StatusOK, resp.Code)
	}
	if resp.Message != "success" {
		t.Errorf("expected message %q, got %q", "success", resp.Message)
	}
	if resp.Data == nil {
		t.Error("expected non-nil data")
	}
}

func TestSuccess_NilData(t *testing.T) {
	c, w := newResponseTestContext()

	Success(c, nil)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("expected code %d, got %d", http.StatusOK, resp.Code)
	}
	if resp.Data != nil {
		t.Errorf("expected nil data, got %v", resp.Data)
	}
}

func TestError_StatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", domain.NewAppError(domain.CodeNotFound, "bank not found", nil), http.StatusNotFound, "bank not found"},
		{"already exists", domain.NewAppError(domain.CodeAlreadyExists, "code taken", nil), http.StatusConflict, "code taken"},
		{"constraint", domain.NewAppError(domain.CodeConstraint, "bank is still referenced", nil), http.StatusConflict, "bank is still referenced"},
		{"validation", domain.Invalid("unknown relation %q", "owners"), http.StatusBadRequest, `unknown relation "owners"`},
		{"wrapped", fmt.Errorf("update market: %w", domain.ErrNotFound), http.StatusNotFound, "not found"},
		{"plain error hides cause", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContext()
			Error(c, tt.err)

			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Code != tt.status || resp.Message != tt.message || resp.Data != nil {
				t.Errorf("unexpected envelope %+v", resp)
			}
		})
	}
}

func TestError_RecordsCauseOnContext(t *testing.T) {
	c, _ := newResponseTestContext()
	cause := errors.New("pq: connection refused")

	Error(c, cause)

	if len(c.Errors) != 1 || !errors.Is(c.Errors.Last().Err, cause) {
		t.Errorf("expected the cause on c.Errors, got %v", c.Errors)
	}
}

func TestCreated(t *testing.T) {
	c, w := newResponseTestContext()

	Created(c, map[string]any{"id": 7})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusCreated || resp.Message != "created" {
		t.Errorf("unexpected envelope %+v", resp)
	}
}

func TestList(t *testing.T) {
	c, w := newResponseTestContext()

	result := domain.ListResult{
		Rows: []domain.Row{
			{"id": 1, "name": "Alice"},
			{"id": 2, "name": "Bob"},
		},
		Meta: NewPageMeta(2, 1, 15),
	}
	List(c, result)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("expected code %d, got %d", http.StatusOK, resp.Code)
	}
	if resp.Message != "success" {
		t.Errorf("expected message %q, got %q", "success", resp.Message)
	}

	// Verify nested structure by re-marshaling data.
	dataBytes, _ := json.Marshal(resp.Data)
	var listResult struct {
		Rows []map[string]any `json:"rows"`
		Meta struct {
			CurrentPage int   `json:"current_page"`
			PerPage     int   `json:"per_page"`
			Total       int64 `json:"total"`
			LastPage    int   `json:"last_page"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(dataBytes, &listResult); err != nil {
		t.Fatalf("failed to unmarshal list result: %v", err)
	}
	if len(listResult.Rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(listResult.Rows))
	}
	if listResult.Meta.Total != 2 || listResult.Meta.LastPage != 1 || listResult.Meta.PerPage != 15 {
		t.Errorf("unexpected meta %+v", listResult.Meta)
	}
}

func TestValidationError_WithValidatorErrors(t *testing.T) {
	c, w := newResponseTestContext()

	ve := makeValidationErrors(t)
	ValidationError(c, ve)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected code %d, got %d", http.StatusBadRequest, resp.Code)
	}
	if resp.Message != "validation error" {
		t.Errorf("expected message %q, got %q", "validation error", resp.Message)
	}
	if len(resp.Errors) == 0 {
		t.Fatal("expected field errors, got none")
	}

	// Without obj, ValidationError falls back to lowercased struct field names.
	if msg, ok := resp.Errors["name"]; !ok {
		t.Error("expected error for field 'name'")
	} else if msg != "This field is required" {
		t.Errorf("expected message %q for name, got %q", "This field is required", msg)
	}

	if msg, ok := resp.Errors["email"]; !ok {
		t.Error("expected error for field 'email'")
	} else if msg != "This field is required" {
		t.Errorf("expected message %q for email, got %q", "This field is required", msg)
	}
}

func TestValidationError_NonValidationError(t *testing.T) {
	c, w := newResponseTestContext()

	ValidationError(c, errors.New("bad json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected code %d, got %d", http.StatusBadRequest, resp.Code)
	}
	if resp.Message != "bad request" {
		t.Errorf("expected message %q, got %q", "bad request", resp.Message)
	}
}

func TestBindAndValidate_InvalidJSON(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"invalid json`)

	// bindInput uses gin binding tags.
	type bindInput struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}

	var input bindInput
	ok := BindAndValidate(c, &input)

	if ok {
		t.Error("expected BindAndValidate to return false for invalid JSON")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Message != "bad request" {
		t.Errorf("expected message %q, got %q", "bad request", resp.Message)
	}
}

func TestBindAndValidate_MissingFields(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{}`)

	type bindInput struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}

	var input bindInput
	ok := BindAndValidate(c, &input)

	if ok {
		t.Error("expected BindAndValidate to return false for missing required fields")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected code %d, got %d", http.StatusBadRequest, resp.Code)
	}
	if resp.Message != "validation error" {
		t.Errorf("expected message %q, got %q", "validation error", resp.Message)
	}

	// BindAndValidate has obj, so it should use JSON tag names.
	if _, ok := resp.Errors["name"]; !ok {
		t.Error("expected error for field 'name'")
	}
	if _, ok := resp.Errors["email"]; !ok {
		t.Error("expected error for field 'email'")
	}
}

func TestBindAndValidate_InvalidEmail(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"name":"Alice","email":"not-an-email"}`)

	type bindInput struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}

	var input bindInput
	ok := BindAndValidate(c, &input)

	if ok {
		t.Error("expected BindAndValidate to return false for invalid email")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if msg, ok := resp.Errors["email"]; !ok {
		t.Error("expected error for field 'email'")
	} else if msg != "Must be a valid email address" {
		t.Errorf("expected message %q for email field, got %q", "Must be a valid email address", msg)
	}

	// name should NOT be in errors since it's valid.
	if _, ok := resp.Errors["name"]; ok {
		t.Error("did not expect error for field 'name'")
	}
}

func TestBindAndValidate_MinLength(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"name":"Al"}`)

	type bindInput struct {
		Name string `json:"name" binding:"required,min=3"`
	}

	var input bindInput
	ok := BindAndValidate(c, &input)

	if ok {
		t.Error("expected BindAndValidate to return false for too-short name")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if msg, ok := resp.Errors["name"]; !ok {
		t.Error("expected error for field 'name'")
	} else if msg != "Must be at least 3 characters" {
		t.Errorf("expected message %q for name field, got %q", "Must be at least 3 characters", msg)
	}
}

func TestBindAndValidate_ValidInput(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"name":"Alice","email":"alice@example.com"}`)

	type bindInput struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}

	var input bindInput
	ok := BindAndValidate(c, &input)

	if !ok {
		t.Error("expected BindAndValidate to return true for valid input")
	}
	// No response should be written on success.
	if w.Code != http.StatusOK {
		t.Errorf("expected recorder default status 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body on success, got %q", w.Body.String())
	}
	if input.Name != "Alice" {
		t.Errorf("expected Name='Alice', got %q", input.Name)
	}
	if input.Email != "alice@example.com" {
		t.Errorf("expected Email='alice@example.com', got %q", input.Email)
	}
}

func TestBindAndValidate_NestedFieldPaths(t *testing.T) {
	type branch struct {
		Name string `json:"name" binding:"required"`
	}
	type bindInput struct {
		Name     string   `json:"name" binding:"required"`
		Swift    string   `json:"swift" binding:"omitempty,alphanum,len=8|len=11"`
		Branches []branch `json:"branches" binding:"dive"`
	}

	c, w := newResponseTestContextWithBody(`{"name":"Acme","swift":"AB-1","branches":[{"name":"ok"},{}]}`)
	var input bindInput
	if BindAndValidate(c, &input) {
		t.Fatal("expected BindAndValidate to fail")
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if msg := resp.Errors["branches[1].name"]; msg != "This field is required" {
		t.Errorf("expected nested required error, got %v", resp.Errors)
	}
	if msg := resp.Errors["swift"]; msg != "Must contain only letters and digits" {
		t.Errorf("expected alphanum error for swift, got %q", msg)
	}
	if _, ok := resp.Errors["branches[0].name"]; ok {
		t.Error("did not expect an error for the valid branch")
	}
}

func TestFieldPath(t *testing.T) {
	type inner struct {
		Code string `json:"code,omitempty"`
		Skip string `json:"-"`
	}
	type outer struct {
		Items []*inner         `json:"items"`
		ByKey map[string]inner `json:"by_key"`
		Plain string
	}
	root := reflect.TypeOf(&outer{})

	tests := []struct {
		namespace string
		want      string
	}{
		{"outer.Items[2].Code", "items[2].code"},
		{"outer.ByKey[eu].Code", "by_key[eu].code"},
		{"outer.Items[0].Skip", "items[0].skip"},
		{"outer.Plain", "plain"},
		{"outer.Missing.Deep", "missing.deep"},
	}
	for _, tt := range tests {
		if got := fieldPath(root, tt.namespace); got != tt.want {
			t.Errorf("fieldPath(%q) = %q; want %q", tt.namespace, got, tt.want)
		}
	}
	if got := fieldPath(nil, "testInput.Email"); got != "email" {
		t.Errorf("fieldPath without a type = %q; want %q", got, "email")
	}
}
