package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jupiterclapton/postboard/internal/core/domain"
	"github.com/jupiterclapton/postboard/internal/core/ports"
)

// Server est l'adapter primaire HTTP : il traduit les requêtes vers les
// ports de l'Hexagone et les erreurs du domaine vers des statuts HTTP.
type Server struct {
	identity ports.IdentityService
	posts    ports.PostService
	mux      *http.ServeMux
}

func NewServer(identity ports.IdentityService, posts ports.PostService) *Server {
	s := &Server{
		identity: identity,
		posts:    posts,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler expose le mux ; la chaîne CORS/OTel est assemblée dans main.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	// Routes publiques
	s.mux.HandleFunc("POST /signup", s.handleSignup)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /users/", s.handleCreateUser)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// Routes protégées (token requis)
	s.mux.HandleFunc("POST /addPost", requireAuth(s.identity, s.handleAddPost))
	s.mux.HandleFunc("GET /getPosts", requireAuth(s.identity, s.handleGetPosts))
	s.mux.HandleFunc("DELETE /deletePost", requireAuth(s.identity, s.handleDeletePost))
}

// --- DTOs (tags JSON ici, jamais sur le Domain) ---

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type addPostRequest struct {
	Text string `json:"text"`
}

type postResponse struct {
	PostID    string    `json:"post_id"`
	Email     string    `json:"email"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type postsResponse struct {
	Posts []postResponse `json:"posts"`
}

type userResponse struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// --- HANDLERS ---

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.identity.Register(r.Context(), ports.RegisterCmd{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: resp.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.identity.Login(r.Context(), ports.LoginCmd{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: resp.Token})
}

// handleCreateUser est l'ancien routeur /users/ de création de compte,
// rabattu sur le même Register que /signup (un seul Identity Store,
// deux backings possibles). Il renvoie l'utilisateur créé, pas le token.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.identity.Register(r.Context(), ports.RegisterCmd{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		Email:     resp.User.Email,
		CreatedAt: resp.User.CreatedAt,
	})
}

func (s *Server) handleAddPost(w http.ResponseWriter, r *http.Request) {
	var req addPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := s.posts.AddPost(r.Context(), ForContext(r.Context()), req.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// L'API d'origine renvoie l'id du post nu (chaîne JSON).
	writeJSON(w, http.StatusOK, post.ID)
}

func (s *Server) handleGetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.GetPosts(r.Context(), ForContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := postsResponse{Posts: make([]postResponse, len(posts))}
	for i, p := range posts {
		out.Posts[i] = postResponse{
			PostID:    p.ID,
			Email:     p.Owner,
			Text:      p.Text,
			CreatedAt: p.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("post_id")
	if postID == "" {
		writeError(w, http.StatusBadRequest, "missing post_id")
		return
	}

	if err := s.posts.DeletePost(r.Context(), postID, ForContext(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "postboard",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// --- MAPPING ERREURS DOMAINE -> HTTP ---

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrPostTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrPostNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
