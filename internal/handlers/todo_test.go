package handlers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamako/serverless-project/internal/auth"
	dom "github.com/adamako/serverless-project/internal/domain"
	"github.com/adamako/serverless-project/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
)

type fakeRepo struct {
	mu    sync.Mutex
	todos map[string]dom.Todo
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerID string) ([]dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []dom.Todo
	for _, t := range r.todos {
		if t.OwnerID == ownerID {
			list = append(list, t)
		}
	}
	return list, nil
}

func (r *fakeRepo) Create(_ context.Context, t dom.Todo) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todos[t.ID] = t
	return t, nil
}

func (r *fakeRepo) FindByID(_ context.Context, ownerID, id string) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return dom.Todo{}, pgx.ErrNoRows
	}
	return t, nil
}

func (r *fakeRepo) Update(_ context.Context, ownerID, id string, patch dom.Todo) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return dom.Todo{}, pgx.ErrNoRows
	}
	t.Name = patch.Name
	t.DueDate = patch.DueDate
	t.Done = patch.Done
	r.todos[id] = t
	return t, nil
}

func (r *fakeRepo) SetDone(_ context.Context, ownerID, id string, done bool) (dom.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if !ok || t.OwnerID != ownerID {
		return dom.Todo{}, pgx.ErrNoRows
	}
	t.Done = done
	r.todos[id] = t
	return t, nil
}

func (r *fakeRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.todos[id]
	if ok && t.OwnerID == ownerID {
		delete(r.todos, id)
	}
	return nil
}

type fakeIssuer struct {
	objects map[string]bool
}

func (f *fakeIssuer) UploadURL(_ context.Context, id string) (string, error) {
	return "https://s3.test/upload/" + id + ".png", nil
}

func (f *fakeIssuer) DownloadURLIfExists(_ context.Context, id string) (string, error) {
	if f.objects[id] {
		return "https://s3.test/get/" + id + ".png", nil
	}
	return "", nil
}

// testAPI wires a router the way the app does: CORS-free, token-protected
// todo routes over an in-memory repo.
type testAPI struct {
	router *gin.Engine
	repo   *fakeRepo
	issuer *fakeIssuer
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	verifier, err := auth.NewVerifier(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "U1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	repo := &fakeRepo{todos: map[string]dom.Todo{}}
	issuer := &fakeIssuer{objects: map[string]bool{}}
	h := NewTodoHandler(service.NewTodoService(repo, issuer, nil))

	r := gin.New()
	api := r.Group("/api/v1", auth.RequireToken(verifier))
	api.POST("/todos", h.Create)
	api.GET("/todos", h.List)
	api.GET("/todos/:id", h.GetByID)
	api.PATCH("/todos/:id", h.Update)
	api.DELETE("/todos/:id", h.Delete)
	api.POST("/todos/:id/complete", h.Complete)
	api.POST("/todos/:id/attachment", h.GenerateUploadURL)

	return &testAPI{router: r, repo: repo, issuer: issuer, token: token}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) seed(t *testing.T, owner, name string) dom.Todo {
	t.Helper()
	todo := dom.Todo{
		ID:        "todo-" + name,
		OwnerID:   owner,
		Name:      name,
		DueDate:   "2024-01-01",
		CreatedAt: time.Now().UTC(),
	}
	if _, err := a.repo.Create(context.Background(), todo); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return todo
}

func TestCreateTodo(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/todos", `{"name":"Buy milk","dueDate":"2024-01-01"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		ID      string `json:"id"`
		OwnerID string `json:"ownerId"`
		Name    string `json:"name"`
		DueDate string `json:"dueDate"`
		Done    bool   `json:"done"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID == "" {
		t.Error("created todo has empty id")
	}
	if resp.OwnerID != "U1" {
		t.Errorf("ownerId = %q, want U1", resp.OwnerID)
	}
	if resp.Done {
		t.Error("done = true, want false")
	}
	if resp.Name != "Buy milk" || resp.DueDate != "2024-01-01" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreateTodo_MissingName(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/todos", `{"dueDate":"2024-01-01"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListTodos(t *testing.T) {
	api := newTestAPI(t)
	withAttachment := api.seed(t, "U1", "photographed")
	api.seed(t, "U1", "plain")
	api.seed(t, "other-user", "not mine")
	api.issuer.objects[withAttachment.ID] = true

	w := api.do(t, http.MethodGet, "/api/v1/todos", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Items []struct {
			ID            string `json:"id"`
			OwnerID       string `json:"ownerId"`
			AttachmentURL string `json:"attachmentUrl"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}
	for _, item := range resp.Items {
		if item.OwnerID != "U1" {
			t.Errorf("item %s owned by %q leaked into U1's list", item.ID, item.OwnerID)
		}
		if item.ID == withAttachment.ID && item.AttachmentURL == "" {
			t.Error("todo with object has no attachmentUrl")
		}
		if item.ID != withAttachment.ID && item.AttachmentURL != "" {
			t.Errorf("todo without object has attachmentUrl %q", item.AttachmentURL)
		}
	}
	// attachmentUrl is omitted, not null, for todos without an object.
	if strings.Contains(w.Body.String(), `"attachmentUrl":""`) {
		t.Errorf("empty attachmentUrl serialized explicitly: %s", w.Body.String())
	}
}

func TestDeleteTodo(t *testing.T) {
	api := newTestAPI(t)
	todo := api.seed(t, "U1", "doomed")

	w := api.do(t, http.MethodDelete, "/api/v1/todos/"+todo.ID, "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := "Todo (" + todo.ID + ") deleted successfully"
	if resp["success"] != want {
		t.Errorf("success = %q, want %q", resp["success"], want)
	}
}

func TestDeleteTodo_NotFound(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodDelete, "/api/v1/todos/no-such-id", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := w.Body.String(); got != `{"error":"Todo does not exist"}` {
		t.Errorf("body = %s", got)
	}
}

func TestUpdateTodo(t *testing.T) {
	api := newTestAPI(t)
	todo := api.seed(t, "U1", "original")

	w := api.do(t, http.MethodPatch, "/api/v1/todos/"+todo.ID, `{"name":"renamed","done":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Name    string `json:"name"`
		DueDate string `json:"dueDate"`
		Done    bool   `json:"done"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Name != "renamed" || !resp.Done || resp.DueDate != "2024-01-01" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestUpdateTodo_NotFound(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPatch, "/api/v1/todos/no-such-id", `{"name":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCompleteTodo(t *testing.T) {
	api := newTestAPI(t)
	todo := api.seed(t, "U1", "pending")

	w := api.do(t, http.MethodPost, "/api/v1/todos/"+todo.ID+"/complete", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"done":true`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGenerateUploadURL(t *testing.T) {
	api := newTestAPI(t)
	todo := api.seed(t, "U1", "task")

	w := api.do(t, http.MethodPost, "/api/v1/todos/"+todo.ID+"/attachment", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		UploadURL string `json:"uploadUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.UploadURL != "https://s3.test/upload/"+todo.ID+".png" {
		t.Errorf("uploadUrl = %q", resp.UploadURL)
	}
}

func TestGenerateUploadURL_NotFound(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/todos/no-such-id/attachment", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := w.Body.String(); got != `{"error":"Todo does not exist"}` {
		t.Errorf("body = %s", got)
	}
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
