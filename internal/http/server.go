package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"askstory/auth/internal/auth"
	"askstory/auth/internal/config"
	"askstory/auth/internal/model"
	"askstory/auth/internal/service"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,4}$`)

type Server struct {
	cfg  config.Config
	auth *service.Auth
}

func NewServer(cfg config.Config, authService *service.Auth) *Server {
	return &Server{cfg: cfg, auth: authService}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/token", s.handleToken)
	r.Post("/logout", s.handleLogout)
	r.Post("/checkDuplicates", s.handleCheckDuplicates)
	r.Post("/reset-password", s.handleResetPassword)
	r.Get("/depart", s.handleDepartments)

	r.With(s.authMiddleware).Get("/protected", s.handleProtected)

	return r
}

type registerRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	EmployeeNumber string `json:"employeeNumber"`
	Password       string `json:"pw"`
	Phone          string `json:"hp"`
	Subject        int64  `json:"subject"`
	Position       string `json:"position"`
	Duty           string `json:"duty"`
}

type userSummary struct {
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	EmployeeNumber string `json:"employeeNumber,omitempty"`
	DepartmentID   int64  `json:"departmentId,omitempty"`
	Grade          string `json:"grade,omitempty"`
	MustChangePW   bool   `json:"mustChangePw"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.EmployeeNumber == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	// Wire contract quirk kept for client compatibility: subject carries the
	// department id, position carries the grade, duty carries the position.
	user, err := s.auth.Register(r.Context(), service.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		EmployeeNo:   req.EmployeeNumber,
		Password:     req.Password,
		Phone:        req.Phone,
		DepartmentID: req.Subject,
		Grade:        req.Position,
		Duty:         req.Duty,
	})
	if err != nil {
		if errors.Is(err, service.ErrDuplicateKey) {
			writeMessage(w, http.StatusConflict, "Email or employee number already registered")
			return
		}
		log.Printf("register failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"user":    userSummary{Email: user.Email},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"pw"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	accessToken, refreshToken, user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeMessage(w, http.StatusBadRequest, "Invalid email or password")
			return
		}
		log.Printf("login failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Logged in successfully",
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         mapUserSummary(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeMessage(w, http.StatusForbidden, "Invalid refresh token")
		return
	}

	accessToken, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			writeMessage(w, http.StatusForbidden, "Invalid refresh token")
			return
		}
		log.Printf("token refresh failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Token refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "New access token generated",
		"accessToken": accessToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid refresh token")
		return
	}

	if err := s.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			writeMessage(w, http.StatusBadRequest, "Invalid refresh token")
			return
		}
		log.Printf("logout failed: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User logged out successfully"})
}

type checkDuplicatesRequest struct {
	Email          *string `json:"email"`
	EmployeeNumber *string `json:"employeeNumber"`
}

func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var req checkDuplicatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	switch {
	case req.Email != nil:
		duplicate, err := s.auth.CheckDuplicate(r.Context(), service.FieldEmail, *req.Email)
		if err != nil {
			log.Printf("duplicate check failed: %v", err)
			writeError(w, http.StatusInternalServerError, "An error occurred")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{
			"isDuplicate": duplicate,
			"emailRegex":  emailRegex.MatchString(*req.Email),
		})
	case req.EmployeeNumber != nil:
		duplicate, err := s.auth.CheckDuplicate(r.Context(), service.FieldEmployeeNo, *req.EmployeeNumber)
		if err != nil {
			log.Printf("duplicate check failed: %v", err)
			writeError(w, http.StatusInternalServerError, "An error occurred")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"isDuplicate": duplicate})
	default:
		writeError(w, http.StatusBadRequest, "missing_field")
	}
}

type resetPasswordRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := s.auth.ResetPassword(r.Context(), req.Email, req.Name); err != nil {
		if errors.Is(err, service.ErrNotMatch) {
			writeError(w, http.StatusBadRequest, "Not Match Info")
			return
		}
		log.Printf("reset password failed: %v", err)
		writeError(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Temporary password sent"})
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.auth.ListDepartments(r.Context())
	if err != nil {
		log.Printf("department lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "An error occurred")
		return
	}
	if departments == nil {
		departments = []model.Department{}
	}
	// 201 is what existing clients of this endpoint expect.
	writeJSON(w, http.StatusCreated, departments)
}

func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	if claims := claimsFromContext(r.Context()); claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("You have accessed a protected route!"))
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func mapUserSummary(user model.User) userSummary {
	return userSummary{
		Email:          user.Email,
		Name:           user.Name,
		EmployeeNumber: user.EmployeeNo,
		DepartmentID:   user.DepartmentID,
		Grade:          user.Grade,
		MustChangePW:   user.MustChangePW,
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
