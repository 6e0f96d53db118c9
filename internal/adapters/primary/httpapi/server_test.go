package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jupiterclapton/postboard/internal/adapters/primary/httpapi"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/postboard/internal/adapters/secondary/security"
	"github.com/jupiterclapton/postboard/internal/core/services"
)

// newTestServer câble l'API complète sur les backings mémoire,
// avec le contrat par défaut (hasher plain, token = email).
func newTestServer() *httptest.Server {
	broker := eventbroker.NewNoopBroker()
	identity := services.NewIdentityService(
		repository.NewMemoryUserRepo(),
		security.NewPlainHasher(),
		security.NewEmailTokenProvider(),
		broker,
	)
	posts := services.NewPostService(
		repository.NewMemoryPostRepo(),
		cache.NewMemoryPostCache(100, 5*time.Minute),
		broker,
	)
	return httptest.NewServer(httpapi.NewServer(identity, posts).Handler())
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type tokenResp struct {
	Token string `json:"token"`
}

type postsResp struct {
	Posts []struct {
		PostID string `json:"post_id"`
		Email  string `json:"email"`
		Text   string `json:"text"`
	} `json:"posts"`
}

// Le scénario de bout en bout : signup -> login -> addPost -> getPosts ->
// deletePost -> getPosts vide immédiatement (pas après expiration du TTL).
func TestEndToEndScenario(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	creds := map[string]string{"email": "a@x.com", "password": "p"}

	// Signup
	resp := doJSON(t, http.MethodPost, ts.URL+"/signup", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d", resp.StatusCode)
	}
	if tok := decode[tokenResp](t, resp); tok.Token != "a@x.com" {
		t.Fatalf("signup token: expected a@x.com, got %q", tok.Token)
	}

	// Login
	resp = doJSON(t, http.MethodPost, ts.URL+"/login", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	token := decode[tokenResp](t, resp).Token
	if token != "a@x.com" {
		t.Fatalf("login token: expected a@x.com, got %q", token)
	}

	// AddPost
	resp = doJSON(t, http.MethodPost, ts.URL+"/addPost", token, map[string]string{"text": "hello"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("addPost: expected 200, got %d", resp.StatusCode)
	}
	postID := decode[string](t, resp)
	if postID == "" {
		t.Fatal("addPost: expected a non-empty post id")
	}

	// GetPosts
	resp = doJSON(t, http.MethodGet, ts.URL+"/getPosts", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("getPosts: expected 200, got %d", resp.StatusCode)
	}
	out := decode[postsResp](t, resp)
	if len(out.Posts) != 1 || out.Posts[0].Text != "hello" {
		t.Fatalf("getPosts: expected one post 'hello', got %+v", out.Posts)
	}

	// DeletePost
	resp = doJSON(t, http.MethodDelete, ts.URL+"/deletePost?post_id="+postID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deletePost: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// La lecture qui suit reflète la suppression immédiatement
	resp = doJSON(t, http.MethodGet, ts.URL+"/getPosts", token, nil)
	out = decode[postsResp](t, resp)
	if len(out.Posts) != 0 {
		t.Fatalf("getPosts after delete: expected empty list, got %+v", out.Posts)
	}
}

func TestSignupDuplicateIs400(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	creds := map[string]string{"email": "a@x.com", "password": "p"}
	doJSON(t, http.MethodPost, ts.URL+"/signup", "", creds).Body.Close()

	// Même email, autre mot de passe : toujours refusé
	resp := doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "other"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 on duplicate signup, got %d", resp.StatusCode)
	}
}

func TestLoginMismatchIs401(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "p"}).Body.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/login", "", map[string]string{"email": "a@x.com", "password": "wrong"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 on bad credentials, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	// Sans token
	resp := doJSON(t, http.MethodGet, ts.URL+"/getPosts", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	// Token inconnu (email jamais enregistré)
	resp = doJSON(t, http.MethodPost, ts.URL+"/addPost", "ghost@x.com", map[string]string{"text": "hi"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with unknown token, got %d", resp.StatusCode)
	}
}

func TestTokenAsQueryParam(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "p"}).Body.Close()

	// Le contrat d'origine accepte aussi ?token=
	resp := doJSON(t, http.MethodGet, ts.URL+"/getPosts?token=a@x.com", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with token query param, got %d", resp.StatusCode)
	}
}

func TestOversizePostIs413(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "p"}).Body.Close()

	big := make([]byte, (1<<20)+1)
	for i := range big {
		big[i] = 'a'
	}
	resp := doJSON(t, http.MethodPost, ts.URL+"/addPost", "a@x.com", map[string]string{"text": string(big)})
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}

	// Le store reste inchangé après le refus
	resp = doJSON(t, http.MethodGet, ts.URL+"/getPosts", "a@x.com", nil)
	out := decode[postsResp](t, resp)
	if len(out.Posts) != 0 {
		t.Errorf("rejected post must not be stored, got %d posts", len(out.Posts))
	}
}

func TestDeleteUnknownPostIs404(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "p"}).Body.Close()

	resp := doJSON(t, http.MethodDelete, ts.URL+"/deletePost?post_id=ghost", "a@x.com", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteAnotherOwnersPostIs404(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "p"}).Body.Close()
	doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "b@x.com", "password": "p"}).Body.Close()

	resp := doJSON(t, http.MethodPost, ts.URL+"/addPost", "a@x.com", map[string]string{"text": "mine"})
	postID := decode[string](t, resp)

	// b tente de supprimer le post de a avec le bon id
	resp = doJSON(t, http.MethodDelete, ts.URL+"/deletePost?post_id="+postID, "b@x.com", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for cross-owner delete, got %d", resp.StatusCode)
	}

	// Le post de a est toujours là
	resp = doJSON(t, http.MethodGet, ts.URL+"/getPosts", "a@x.com", nil)
	out := decode[postsResp](t, resp)
	if len(out.Posts) != 1 {
		t.Errorf("post must survive, got %d posts", len(out.Posts))
	}
}

func TestCreateUserRoute(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	// L'ancien routeur /users/ passe par le même Identity Store que /signup
	resp := doJSON(t, http.MethodPost, ts.URL+"/users/", "", map[string]string{"email": "a@x.com", "password": "p"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	user := decode[map[string]any](t, resp)
	if user["email"] != "a@x.com" {
		t.Errorf("expected created user a@x.com, got %v", user)
	}

	// Donc un signup du même email est un doublon
	resp = doJSON(t, http.MethodPost, ts.URL+"/signup", "", map[string]string{"email": "a@x.com", "password": "p"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 duplicate after /users/ creation, got %d", resp.StatusCode)
	}
}
