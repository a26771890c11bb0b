package auth

import (
	"html/template"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/haley/backend/internal/config"
	"github.com/zhouzirui/haley/backend/internal/middleware"
)

const incorrectCodeMessage = "Incorrect code"

// Handler 访问码登录与首页处理器
type Handler struct {
	cfg   config.AuthConfig
	pages *template.Template
	mode  string
}

// New 创建登录处理器
func New(cfg config.AuthConfig, pages *template.Template, relayMode string) *Handler {
	return &Handler{
		cfg:   cfg,
		pages: pages,
		mode:  relayMode,
	}
}

// RegisterRoutes 注册首页与登录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RedirectToLogin(h.cfg)).Get("/", h.handleHome)
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
}

type loginPage struct {
	Error string
}

type homePage struct {
	Mode string
}

func (h *Handler) handleHome(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "index.html", homePage{Mode: h.mode})
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, _ *http.Request) {
	h.render(w, "login.html", loginPage{})
}

// handleLogin compares the submitted code with the shared access code.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login.html", loginPage{Error: incorrectCodeMessage})
		return
	}

	if r.PostFormValue("code") != h.cfg.AccessCode {
		log.Printf("[auth] rejected login from %s", r.RemoteAddr)
		h.render(w, "login.html", loginPage{Error: incorrectCodeMessage})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    h.cfg.AccessCode,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[auth] render %s failed: %v", name, err)
	}
}
