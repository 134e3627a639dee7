package market

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/simp-lee/catalog/internal/catalog"
	"github.com/simp-lee/catalog/internal/domain"
	"github.com/simp-lee/catalog/internal/export"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mod, err := New(catalog.Deps{DB: db, Exporters: export.NewRegistry(export.Builtin()...)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.AutoMigrate(mod.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r := gin.New()
	mod.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func send(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNew_Module(t *testing.T) {
	r := setupRouter(t)

	registered := make(map[string]bool)
	for _, ri := range r.Routes() {
		registered[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/markets",
		"GET /api/v1/markets/export",
		"POST /api/v1/markets/upsert",
		"PATCH /api/v1/markets/:id/active",
	} {
		if !registered[want] {
			t.Errorf("route %s not registered", want)
		}
	}
}

func TestMarkets_CreateValidation(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "valid", body: `{"name":"Euronext","code":"XPAR","region":"EU","priority":1}`, want: http.StatusCreated},
		{name: "client uuid", body: `{"uuid":"6f1c2a9e-3d4b-4c5a-9e8f-7a6b5c4d3e2f","name":"Nasdaq","code":"XNAS"}`, want: http.StatusCreated},
		{name: "bad uuid", body: `{"uuid":"nope","name":"Nasdaq","code":"XNYS"}`, want: http.StatusBadRequest},
		{name: "missing code", body: `{"name":"Euronext"}`, want: http.StatusBadRequest},
		{name: "negative priority", body: `{"name":"Euronext","code":"XAMS","priority":-1}`, want: http.StatusBadRequest},
		{name: "duplicate code", body: `{"name":"Euronext Paris","code":"XPAR"}`, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := send(r, http.MethodPost, "/api/v1/markets", tt.body); w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	w := send(r, http.MethodGet, "/api/v1/markets/uuid/6f1c2a9e-3d4b-4c5a-9e8f-7a6b5c4d3e2f", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected the client uuid to be kept, got %d", w.Code)
	}
}

func TestMarkets_PartialUpdate(t *testing.T) {
	r := setupRouter(t)
	send(r, http.MethodPost, "/api/v1/markets", `{"name":"Euronext","code":"XPAR","region":"EU","priority":3}`)

	w := send(r, http.MethodPut, "/api/v1/markets/1", `{"priority":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	var env struct {
		Data domain.Row `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data["priority"] != float64(0) || env.Data["region"] != "EU" || env.Data["name"] != "Euronext" {
		t.Errorf("unexpected row after update: %v", env.Data)
	}
}

func TestMarkets_ExportDefaultColumns(t *testing.T) {
	r := setupRouter(t)
	send(r, http.MethodPost, "/api/v1/markets", `{"name":"Euronext","code":"XPAR","region":"EU"}`)
	send(r, http.MethodPost, "/api/v1/markets", `{"name":"Nasdaq","code":"XNAS","region":"US"}`)

	w := send(r, http.MethodGet, "/api/v1/markets/export?format=json&region=EU", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}

	var rows []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if len(rows) != 1 || rows[0]["code"] != "XPAR" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	for _, col := range exportColumns {
		if _, ok := rows[0][col]; !ok {
			t.Errorf("export row missing column %q", col)
		}
	}
	if !strings.HasPrefix(w.Header().Get("Content-Disposition"), `attachment; filename="markets_`) {
		t.Errorf("unexpected Content-Disposition %q", w.Header().Get("Content-Disposition"))
	}
}

func TestUpdateRequest_Attributes(t *testing.T) {
	name, region, zero := "Euronext", "", 0

	tests := []struct {
		name string
		req  UpdateRequest
		want map[string]any
	}{
		{name: "empty", req: UpdateRequest{}, want: map[string]any{}},
		{name: "zero values are sent", req: UpdateRequest{Region: &region, Priority: &zero}, want: map[string]any{"region": "", "priority": 0}},
		{name: "name only", req: UpdateRequest{Name: &name}, want: map[string]any{"name": "Euronext"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.Attributes()
			if len(got) != len(tt.want) {
				t.Fatalf("Attributes() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Attributes()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
