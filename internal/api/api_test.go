package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/revocation"
	"github.com/erazemk/inventar/internal/storage"
)

const testJWTSecret = "test-secret"

type response struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type productType struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Count     int     `json:"count"`
	ImagePath *string `json:"image_path"`
	ImageURL  *string `json:"image_url"`
}

type item struct {
	ID     int64 `json:"id"`
	IsSold bool  `json:"is_sold"`
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.NewTestDB(t)
	files := storage.NewLocal(t.TempDir(), "http://files.test")

	router := NewRouter(Options{
		DB:             database,
		JWTSecret:      testJWTSecret,
		Service:        inventory.NewService(database, files),
		Revoked:        &revocation.SQL{DB: database},
		AllowedOrigins: []string{"http://localhost:5173"},
		Images:         files.Handler(),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

type authBody struct {
	Status string `json:"status"`
	User   struct {
		ID       int64  `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	} `json:"user"`
	Authorization struct {
		Token string `json:"token"`
		Type  string `json:"type"`
	} `json:"authorization"`
}

func postAuth(t *testing.T, url string, payload any) (*http.Response, authBody) {
	t.Helper()
	data, _ := json.Marshal(payload)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body authBody
	json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

// register creates a user and returns its token.
func register(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()
	resp, body := postAuth(t, server.URL+"/api/register", map[string]string{
		"name":     "Test User",
		"email":    username + "@example.com",
		"username": username,
		"password": "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	if body.Authorization.Token == "" {
		t.Fatal("empty token from register")
	}
	return body.Authorization.Token
}

func doJSON(t *testing.T, method, url, token string, payload any) (*http.Response, response) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if payload != nil {
		data, _ := json.Marshal(payload)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	return do(t, req, token)
}

func do(t *testing.T, req *http.Request, token string) (*http.Response, response) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var body response
	json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func createProductType(t *testing.T, server *httptest.Server, token, name string) productType {
	t.Helper()
	resp, body := doJSON(t, "POST", server.URL+"/api/product-types", token, map[string]string{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product type: expected 201, got %d", resp.StatusCode)
	}
	var pt productType
	json.Unmarshal(body.Data, &pt)
	return pt
}

func getCount(t *testing.T, server *httptest.Server, token string, id int64) int {
	t.Helper()
	resp, body := doJSON(t, "GET", fmt.Sprintf("%s/api/product-types/%d", server.URL, id), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get product type: expected 200, got %d", resp.StatusCode)
	}
	var pt productType
	json.Unmarshal(body.Data, &pt)
	return pt.Count
}

func TestRegisterAndLogin(t *testing.T) {
	server := setupTestServer(t)

	resp, body := postAuth(t, server.URL+"/api/register", map[string]string{
		"name":     "New User",
		"email":    "nuser@example.com",
		"username": "nuser",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for register, got %d", resp.StatusCode)
	}
	if body.Status != "success" || body.User.Username != "nuser" {
		t.Errorf("unexpected register body %+v", body)
	}
	if body.Authorization.Token == "" || body.Authorization.Type != "bearer" {
		t.Errorf("expected bearer token, got %+v", body.Authorization)
	}

	// Duplicate email and username.
	resp, errBody := doJSON(t, "POST", server.URL+"/api/register", "", map[string]string{
		"name": "Again", "email": "nuser@example.com", "username": "nuser", "password": "password123",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for duplicate user, got %d", resp.StatusCode)
	}
	if len(errBody.Errors["email"]) == 0 || len(errBody.Errors["username"]) == 0 {
		t.Errorf("expected email and username errors, got %v", errBody.Errors)
	}

	// Short password, missing username.
	resp, errBody = doJSON(t, "POST", server.URL+"/api/register", "", map[string]string{
		"name": "Short", "email": "short@example.com", "password": "short",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity || len(errBody.Errors["password"]) == 0 || len(errBody.Errors["username"]) == 0 {
		t.Errorf("expected 422 with password and username errors, got %d %v", resp.StatusCode, errBody.Errors)
	}

	resp, _ = postAuth(t, server.URL+"/api/login", map[string]string{
		"username": "nuser", "password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	resp, body = postAuth(t, server.URL+"/api/login", map[string]string{
		"username": "nuser", "password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for login, got %d", resp.StatusCode)
	}
	if body.Status != "success" || body.Authorization.Token == "" || body.User.Email != "nuser@example.com" {
		t.Errorf("unexpected login body %+v", body)
	}

	resp, body = postAuth(t, server.URL+"/api/login", map[string]string{
		"email": "NUSER@example.com", "password": "password123",
	})
	if resp.StatusCode != http.StatusOK || body.Authorization.Token == "" {
		t.Errorf("expected 200 for email login, got %d", resp.StatusCode)
	}

	// The current user is returned as a bare object.
	req, _ := http.NewRequest("GET", server.URL+"/api/user", nil)
	req.Header.Set("Authorization", "Bearer "+body.Authorization.Token)
	userResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/user: %v", err)
	}
	defer userResp.Body.Close()
	raw, _ := io.ReadAll(userResp.Body)
	if strings.Contains(string(raw), "password") {
		t.Error("user response leaks password hash")
	}
	var user map[string]any
	json.Unmarshal(raw, &user)
	if user["username"] != "nuser" {
		t.Errorf("expected bare user object, got %s", raw)
	}
}

func TestAuthBodyLimit(t *testing.T) {
	server := setupTestServer(t)

	big := strings.Repeat("a", maxJSONSize)
	for _, path := range []string{"/api/register", "/api/login"} {
		resp, _ := doJSON(t, "POST", server.URL+path, "", map[string]string{
			"username": big, "password": "password123",
		})
		if resp.StatusCode != http.StatusRequestEntityTooLarge {
			t.Errorf("%s: expected 413 for oversized body, got %d", path, resp.StatusCode)
		}
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := setupTestServer(t)

	resp, body := doJSON(t, "GET", server.URL+"/api/product-types", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	if body.Status != "error" {
		t.Errorf("expected error status, got %q", body.Status)
	}

	resp, _ = doJSON(t, "GET", server.URL+"/api/user", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", resp.StatusCode)
	}
}

func TestLogoutAndRefresh(t *testing.T) {
	server := setupTestServer(t)
	token := register(t, server, "user")

	req, _ := http.NewRequest("POST", server.URL+"/api/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	var refreshed authBody
	json.NewDecoder(resp.Body).Decode(&refreshed)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for refresh, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", server.URL+"/api/user", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for refreshed-away token, got %d", resp.StatusCode)
	}

	fresh := refreshed.Authorization.Token
	resp, _ = doJSON(t, "GET", server.URL+"/api/user", fresh, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with refreshed token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "POST", server.URL+"/api/logout", fresh, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for logout, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", server.URL+"/api/user", fresh, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestInventoryFlow(t *testing.T) {
	server := setupTestServer(t)
	token := register(t, server, "user")

	pt := createProductType(t, server, token, "Widgets")
	if pt.Count != 0 {
		t.Fatalf("expected count 0, got %d", pt.Count)
	}

	resp, body := doJSON(t, "POST", server.URL+"/api/items", token, map[string]any{
		"product_type_id": pt.ID,
		"serial_numbers":  []string{"A1", "A2"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for items, got %d (%v)", resp.StatusCode, body.Errors)
	}
	var items []item
	json.Unmarshal(body.Data, &items)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if c := getCount(t, server, token, pt.ID); c != 2 {
		t.Errorf("expected count 2, got %d", c)
	}

	resp, body = doJSON(t, "PUT", fmt.Sprintf("%s/api/items/%d", server.URL, items[0].ID), token, map[string]any{
		"is_sold":         true,
		"product_type_id": pt.ID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for item update, got %d", resp.StatusCode)
	}
	var updated item
	json.Unmarshal(body.Data, &updated)
	if !updated.IsSold {
		t.Error("expected item to be sold")
	}
	if c := getCount(t, server, token, pt.ID); c != 1 {
		t.Errorf("expected count 1, got %d", c)
	}

	resp, _ = doJSON(t, "DELETE", fmt.Sprintf("%s/api/items/%d", server.URL, items[1].ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for item delete, got %d", resp.StatusCode)
	}
	if c := getCount(t, server, token, pt.ID); c != 0 {
		t.Errorf("expected count 0, got %d", c)
	}

	resp, body = doJSON(t, "GET", fmt.Sprintf("%s/api/items?product_type_id=%d&search=a", server.URL, pt.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for item list, got %d", resp.StatusCode)
	}
	items = nil
	json.Unmarshal(body.Data, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 remaining item, got %d", len(items))
	}
}

func TestOwnershipAndValidationOrder(t *testing.T) {
	server := setupTestServer(t)
	owner := register(t, server, "owner")
	other := register(t, server, "other")

	pt := createProductType(t, server, owner, "Widgets")
	ptURL := fmt.Sprintf("%s/api/product-types/%d", server.URL, pt.ID)

	resp, body := doJSON(t, "GET", ptURL, other, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign product type, got %d", resp.StatusCode)
	}
	if body.Message != "Unauthorized" {
		t.Errorf("expected message 'Unauthorized', got %q", body.Message)
	}

	// Invalid payload on a foreign product type is still 403.
	resp, _ = doJSON(t, "POST", server.URL+"/api/items", other, map[string]any{
		"product_type_id": pt.ID,
		"serial_numbers":  "not-an-array",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign item create, got %d", resp.StatusCode)
	}

	resp, body = doJSON(t, "POST", server.URL+"/api/items", owner, map[string]any{
		"product_type_id": pt.ID,
		"serial_numbers":  "not-an-array",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for invalid serials, got %d", resp.StatusCode)
	}
	if len(body.Errors["serial_numbers"]) == 0 {
		t.Errorf("expected serial_numbers error, got %v", body.Errors)
	}

	resp, _ = doJSON(t, "DELETE", ptURL, other, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign delete, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "GET", server.URL+"/api/product-types/9999", owner, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing product type, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, "PUT", server.URL+"/api/items/9999", owner, map[string]any{"is_sold": true})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing item, got %d", resp.StatusCode)
	}

	// Other users don't see the product type in their list.
	resp, body = doJSON(t, "GET", server.URL+"/api/product-types", other, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for list, got %d", resp.StatusCode)
	}
	var pts []productType
	json.Unmarshal(body.Data, &pts)
	if len(pts) != 0 {
		t.Errorf("expected empty list for other user, got %d", len(pts))
	}
}

func TestMalformedJSON(t *testing.T) {
	server := setupTestServer(t)
	token := register(t, server, "user")

	req, _ := http.NewRequest("POST", server.URL+"/api/items", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := do(t, req, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %d", resp.StatusCode)
	}
}

func TestProductTypeImageUpload(t *testing.T) {
	server := setupTestServer(t)
	token := register(t, server, "user")

	var img bytes.Buffer
	png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8)))

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	mw.WriteField("name", "Widgets")
	mw.WriteField("description", "With picture")
	fw, _ := mw.CreateFormFile("image", "widget.png")
	fw.Write(img.Bytes())
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/product-types", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := do(t, req, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", resp.StatusCode, body.Errors)
	}

	var pt productType
	json.Unmarshal(body.Data, &pt)
	if pt.ImagePath == nil || pt.ImageURL == nil {
		t.Fatal("expected image path and URL")
	}
	if !strings.HasPrefix(*pt.ImageURL, "http://files.test/images/product-types/") {
		t.Errorf("unexpected image URL %q", *pt.ImageURL)
	}

	imgResp, err := http.Get(server.URL + "/" + *pt.ImagePath)
	if err != nil {
		t.Fatalf("fetching image: %v", err)
	}
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for stored image, got %d", imgResp.StatusCode)
	}

	resp, _ = doJSON(t, "DELETE", fmt.Sprintf("%s/api/product-types/%d", server.URL, pt.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for delete, got %d", resp.StatusCode)
	}

	imgResp, _ = http.Get(server.URL + "/" + *pt.ImagePath)
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for removed image, got %d", imgResp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer(t)

	req, _ := http.NewRequest("OPTIONS", server.URL+"/api/product-types", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected allowed origin header, got %q", got)
	}
}

func TestProductTypeMethodOverride(t *testing.T) {
	server := setupTestServer(t)
	owner := register(t, server, "owner")
	other := register(t, server, "other")

	pt := createProductType(t, server, owner, "Widgets")
	url := fmt.Sprintf("%s/api/product-types/%d", server.URL, pt.ID)

	send := func(token string, fields map[string]string) (*http.Response, response) {
		var form bytes.Buffer
		mw := multipart.NewWriter(&form)
		for k, v := range fields {
			mw.WriteField(k, v)
		}
		mw.Close()
		req, _ := http.NewRequest("POST", url, &form)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return do(t, req, token)
	}

	resp, body := send(owner, map[string]string{"name": "Gadgets", "description": "Renamed", "_method": "PUT"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for overridden update, got %d (%s)", resp.StatusCode, body.Message)
	}
	var updated productType
	json.Unmarshal(body.Data, &updated)
	if updated.Name != "Gadgets" {
		t.Errorf("expected name 'Gadgets', got %q", updated.Name)
	}

	resp, _ = send(other, map[string]string{"name": "Stolen", "_method": "PUT"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign overridden update, got %d", resp.StatusCode)
	}

	resp, _ = send(owner, map[string]string{"name": "Gadgets"})
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 without _method, got %d", resp.StatusCode)
	}

	if name := getName(t, server, owner, pt.ID); name != "Gadgets" {
		t.Errorf("expected stored name 'Gadgets', got %q", name)
	}
}

func getName(t *testing.T, server *httptest.Server, token string, id int64) string {
	t.Helper()
	_, body := doJSON(t, "GET", fmt.Sprintf("%s/api/product-types/%d", server.URL, id), token, nil)
	var pt productType
	json.Unmarshal(body.Data, &pt)
	return pt.Name
}
