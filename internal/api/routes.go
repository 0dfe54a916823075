package api

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cyberlaw-advisor/backend/internal/ai"
	"cyberlaw-advisor/backend/internal/auth"
	"cyberlaw-advisor/backend/internal/classifier"
	"cyberlaw-advisor/backend/internal/store"
	"cyberlaw-advisor/backend/internal/web"
)

// Config defines server dependencies.
type Config struct {
	DBPath           string
	DatasetPath      string
	AllowedOrigins   []string
	SilentDB         bool
	Gemini           ai.GeminiConfig
	OpenAI           ai.Config
	DisableAI        bool
	ProcedureTimeout time.Duration
	SessionTTL       time.Duration
	CookieSecure     bool
	// ProcedureWriter overrides the writer built from the Gemini and OpenAI settings.
	ProcedureWriter ai.ProcedureWriter
}

// Server wires HTTP handlers with persistence, the classifier and procedure generation.
type Server struct {
	db               *store.Database
	auth             *auth.Service
	model            *classifier.Model
	writer           ai.ProcedureWriter
	notifier         *PredictionNotifier
	templates        *template.Template
	allowedOrigins   []string
	procedureTimeout time.Duration
	cookieSecure     bool
}

const userKey = "user"

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	if cfg.DatasetPath == "" {
		return nil, errors.New("dataset path required")
	}

	writer, err := buildProcedureWriter(cfg)
	if err != nil {
		return nil, err
	}

	records, err := classifier.LoadDataset(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	model, err := classifier.Train(records)
	if err != nil {
		return nil, fmt.Errorf("train classifier: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"records":  len(records),
		"sections": model.Labels(),
		"terms":    model.Terms(),
	}).Info("classifier trained")

	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}
	if purged, err := db.PurgeExpiredSessions(time.Now()); err != nil {
		logrus.WithError(err).Warn("purge expired sessions")
	} else if purged > 0 {
		logrus.WithField("sessions", purged).Info("purged expired sessions")
	}

	timeout := cfg.ProcedureTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Server{
		db:               db,
		auth:             auth.NewService(db, cfg.SessionTTL),
		model:            model,
		writer:           writer,
		notifier:         NewPredictionNotifier(),
		templates:        templates,
		allowedOrigins:   cfg.AllowedOrigins,
		procedureTimeout: timeout,
		cookieSecure:     cfg.CookieSecure,
	}, nil
}

func buildProcedureWriter(cfg Config) (ai.ProcedureWriter, error) {
	if cfg.ProcedureWriter != nil {
		return cfg.ProcedureWriter, nil
	}
	if cfg.DisableAI {
		logrus.Info("procedure generation disabled via configuration")
		return ai.Static(ai.NoProcedure), nil
	}

	var primary, fallback ai.ProcedureWriter
	if gemini, err := ai.NewGemini(cfg.Gemini); err == nil {
		primary = gemini
		logrus.WithField("model", cfg.Gemini.Model).Info("gemini procedure writer enabled")
	} else if !errors.Is(err, ai.ErrDisabled) {
		return nil, fmt.Errorf("gemini writer: %w", err)
	}
	if client, err := ai.NewClient(cfg.OpenAI); err == nil {
		fallback = client
		logrus.Info("openai procedure writer enabled")
	} else if !errors.Is(err, ai.ErrDisabled) {
		return nil, fmt.Errorf("openai writer: %w", err)
	}
	if primary == nil && fallback == nil {
		return nil, errors.New("procedure writer disabled: configure GEMINI_API_KEY or OPENAI_API_KEY, or set DISABLE_AI=true")
	}
	return ai.WithFallback(primary, fallback), nil
}

// Close releases the database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()
	r.SetHTMLTemplate(s.templates)

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/register", s.handleRegisterPage)
	r.POST("/register", s.handleRegister)
	r.GET("/login", s.handleLoginPage)
	r.POST("/login", s.handleLogin)

	pages := r.Group("/", s.requireUser(true))
	{
		pages.GET("/", s.handleIndex)
		pages.GET("/logout", s.handleLogout)
		pages.GET("/download_report", s.handleDownloadReport)
	}

	r.POST("/predict", s.requireUser(false), s.handlePredict)

	api := r.Group("/api", s.requireUser(false))
	{
		api.GET("/history", s.handleHistory)
		api.GET("/stream", s.handleStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireUser resolves the session cookie. Pages redirect anonymous visitors to
// the login form; API routes answer 401.
func (s *Server) requireUser(page bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(auth.CookieName)
		user, err := s.auth.Authenticate(token)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				logrus.WithError(err).Error("authenticate session")
			}
			if page {
				c.Redirect(http.StatusFound, "/login")
			} else {
				s.renderError(c, http.StatusUnauthorized, auth.ErrUnauthenticated)
			}
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *store.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*store.User); ok {
			return user
		}
	}
	return nil
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"Username": currentUser(c).Username})
}

func (s *Server) handleRegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{})
}

func (s *Server) handleRegister(c *gin.Context) {
	_, err := s.auth.Register(c.PostForm("username"), c.PostForm("email"), c.PostForm("password"))
	if err != nil {
		status := http.StatusInternalServerError
		message := "Registration failed, please try again."
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			status = http.StatusBadRequest
			message = "Username, email and password are required."
		case errors.Is(err, store.ErrDuplicate):
			status = http.StatusConflict
			message = "That username or email is already registered."
		default:
			logrus.WithError(err).Error("register user")
		}
		c.HTML(status, "register.html", gin.H{"Error": message})
		return
	}
	logrus.WithField("email", c.PostForm("email")).Info("user registered")
	c.Redirect(http.StatusFound, "/login?notice="+url.QueryEscape("Registration successful! Please login."))
}

func (s *Server) handleLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Notice": c.Query("notice")})
}

func (s *Server) handleLogin(c *gin.Context) {
	user, session, err := s.auth.Login(c.PostForm("email"), c.PostForm("password"))
	if err != nil {
		status := http.StatusUnauthorized
		message := "Invalid email or password."
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logrus.WithError(err).Error("login")
			status = http.StatusInternalServerError
			message = "Login failed, please try again."
		}
		c.HTML(status, "login.html", gin.H{"Error": message})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, session.Token, int(s.auth.TTL().Seconds()), "/", "", s.cookieSecure, true)
	logrus.WithField("user_id", user.ID).Info("user logged in")
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) handleLogout(c *gin.Context) {
	token, _ := c.Cookie(auth.CookieName)
	if err := s.auth.Logout(token); err != nil {
		logrus.WithError(err).Warn("delete session")
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.cookieSecure, true)
	c.Redirect(http.StatusFound, "/login?notice="+url.QueryEscape("Logged out successfully."))
}

func (s *Server) handleStream(c *gin.Context) {
	user := currentUser(c)
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || len(s.allowedOrigins) == 0 {
				return true
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(user.ID, conn)
	logrus.WithFields(logrus.Fields{
		"remote":  conn.RemoteAddr().String(),
		"user_id": user.ID,
	}).Info("prediction websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("prediction websocket closed")
			} else {
				logrus.WithError(err).Warn("prediction websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
