package main

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaetan-pardon/ISEN/internal/config"
	"github.com/gaetan-pardon/ISEN/internal/contact"
	"github.com/gaetan-pardon/ISEN/internal/content"
	"github.com/gaetan-pardon/ISEN/internal/dispatch"
	"github.com/gaetan-pardon/ISEN/internal/render"
	"github.com/gaetan-pardon/ISEN/internal/session"
	"github.com/gaetan-pardon/ISEN/internal/store"
	"github.com/gaetan-pardon/ISEN/internal/viewstate"
)

const visitorCookie = "portfolio_visitor"

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *store.DB
	renderer *render.Renderer
	sessions *session.Registry
	events   *dispatch.Dispatcher
	inbox    *contact.Inbox
	admin    *adminAuth
}

func newApp(cfg *config.Config, db *store.DB, logger *zap.Logger) (*app, error) {
	renderer, err := render.New(cfg.Language())
	if err != nil {
		return nil, err
	}

	var opts []contact.Option
	if mailer := contact.NewMailer(cfg.SMTP(), logger); mailer.Configured() {
		opts = append(opts, contact.WithNotifier(mailer))
	} else {
		logger.Info("SMTP credentials not configured, contact notifications disabled")
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		renderer: renderer,
		sessions: session.NewRegistry(content.Default(), cfg.SessionTTL),
		events:   dispatch.New(),
		inbox:    contact.NewInbox(db, logger, opts...),
		admin:    newAdminAuth(cfg, logger),
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("loading config", zap.Error(err))
	}
	gin.SetMode(cfg.GinMode)

	logger := newLogger()
	defer logger.Sync()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("opening database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer db.Close()

	a, err := newApp(cfg, db, logger)
	if err != nil {
		logger.Fatal("building app", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.cleanupOldVisitorData(ctx)
	go a.sessions.Run(ctx, time.Minute, func(dropped int) {
		logger.Debug("expired view states dropped", zap.Int("count", dropped))
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down", zap.Error(err))
		}
	}()

	logger.Info("portfolio listening", zap.String("addr", cfg.Addr()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serving", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if gin.Mode() == gin.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(a.logger), gin.Recovery())
	r.SetHTMLTemplate(a.renderer.Templates())

	static, err := fs.Sub(render.StaticFS, "static")
	if err != nil {
		a.logger.Fatal("static files", zap.Error(err))
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	site := r.Group("/")
	site.Use(a.visitorTrackingMiddleware(), visitorMiddleware())

	// Page load: fresh view state, full render
	site.GET("/", func(c *gin.Context) {
		var buf bytes.Buffer
		err := a.sessions.Reset(visitorID(c), func(v *viewstate.ViewState) error {
			return a.renderer.Page(&buf, v)
		})
		a.writeHTML(c, &buf, err)
	})

	// UI events posted by htmx, answered with out-of-band fragments
	site.POST("/events", func(c *gin.Context) {
		var ev dispatch.Event
		if err := c.ShouldBind(&ev); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		var buf bytes.Buffer
		err := a.sessions.With(visitorID(c), func(v *viewstate.ViewState) error {
			regions, err := a.events.Dispatch(v, ev)
			if err != nil || len(regions) == 0 {
				return err
			}
			return a.renderer.Regions(&buf, v, regions...)
		})
		if errors.Is(err, dispatch.ErrNoHandler) {
			a.logger.Debug("ignoring event", zap.String("type", ev.Type), zap.String("target", ev.Target))
			c.Status(http.StatusNoContent)
			return
		}
		if err == nil && buf.Len() == 0 {
			c.Status(http.StatusNoContent)
			return
		}
		a.writeHTML(c, &buf, err)
	})

	site.GET("/contact", func(c *gin.Context) {
		subs, err := a.inbox.List(c.Request.Context(), visitorID(c))
		if err != nil {
			a.fail(c, "loading submissions", err)
			return
		}
		var buf bytes.Buffer
		err = a.renderer.Contact(&buf, render.ContactPage{Submissions: subs})
		a.writeHTML(c, &buf, err)
	})

	// Handle contact form submission, as a full page or an htmx fragment
	site.POST("/contact", func(c *gin.Context) {
		var f contact.Form
		if err := c.ShouldBind(&f); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}

		status := http.StatusOK
		res, err := a.inbox.Submit(c.Request.Context(), visitorID(c), f)
		page := a.renderer.ContactFromResult(f, res, ContactSuccess)
		if err != nil {
			a.logger.Error("storing contact submission", zap.Error(err))
			status = http.StatusInternalServerError
			page.Form = f
			page.Notice = &render.Notice{Kind: render.KindError, Lines: []string{ContactFailure}}
			if subs, lerr := a.inbox.List(c.Request.Context(), visitorID(c)); lerr == nil {
				page.Submissions = subs
			}
		}

		var buf bytes.Buffer
		if c.GetHeader("HX-Request") == "true" {
			err = a.renderer.ContactMain(&buf, page)
		} else {
			err = a.renderer.Contact(&buf, page)
		}
		if err != nil {
			a.fail(c, "rendering contact page", err)
			return
		}
		c.Data(status, "text/html; charset=utf-8", buf.Bytes())
	})

	setupAdminRoutes(r, a)

	return r
}

func (a *app) writeHTML(c *gin.Context, buf *bytes.Buffer, err error) {
	if err != nil {
		a.fail(c, "rendering page", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (a *app) fail(c *gin.Context, what string, err error) {
	a.logger.Error(what, zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.String(http.StatusInternalServerError, PageFailure)
}

// visitorMiddleware makes sure every visitor carries an id cookie.
func visitorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(visitorCookie)
		if err != nil || !session.ValidVisitorID(id) {
			id = session.NewVisitorID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(visitorCookie, id, 3600*24*365, "/", "", false, true)
		}
		c.Set(visitorCookie, id)
		c.Next()
	}
}

func visitorID(c *gin.Context) string {
	return c.GetString(visitorCookie)
}

// requestLogger logs every request once it has been handled.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
