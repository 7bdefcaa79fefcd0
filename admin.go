// admin.go - privacy-conscious visitor tracking and the admin area
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaetan-pardon/ISEN/internal/config"
	"github.com/gaetan-pardon/ISEN/internal/contact"
	"github.com/gaetan-pardon/ISEN/internal/store"
)

// Visits older than this are removed for privacy compliance.
const visitorRetention = 365 * 24 * time.Hour

type AdminStats struct {
	*store.VisitorStats
	Inboxes           int                  `json:"inboxes"`
	TotalSubmissions  int                  `json:"total_submissions"`
	RecentSubmissions []contact.Submission `json:"recent_submissions"`
}

type adminAuth struct {
	token    string
	salt     string
	username string
	password string
}

func newAdminAuth(cfg *config.Config, logger *zap.Logger) *adminAuth {
	a := &adminAuth{
		token:    generateAdminToken(logger),
		salt:     generateAdminToken(logger), // Use for IP hashing
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
	}

	logger.Info("admin access available at /admin/login")
	if gin.Mode() == gin.DebugMode {
		logger.Debug("admin token (dev only)", zap.String("token", a.token))
		if cfg.DefaultAdminCredentials() {
			logger.Warn("using default admin credentials, set ADMIN_USERNAME and ADMIN_PASSWORD")
		}
	}
	logger.Info("privacy: visitor tracking enabled with hashed IP addresses")
	return a
}

func generateAdminToken(logger *zap.Logger) string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		logger.Fatal("failed to generate admin token", zap.Error(err))
	}
	return hex.EncodeToString(bytes)
}

// Hash IP address for privacy compliance (consistent per IP)
func (a *adminAuth) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + a.salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

func (a *adminAuth) validCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

// Middleware to check admin authentication
func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("admin_token")
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Privacy-conscious visitor tracking middleware
func (a *app) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet ||
			strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/admin/") ||
			strings.HasPrefix(path, "/favicon") ||
			strings.HasPrefix(path, "/privacy") {
			c.Next()
			return
		}

		// Respect Do Not Track header
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		err := a.db.RecordVisit(c.Request.Context(), a.admin.hashIP(c.ClientIP()), c.GetHeader("User-Agent"), path)
		if err != nil {
			a.logger.Warn("error recording visitor", zap.Error(err))
		}
		c.Next()
	}
}

// Cleanup old visitor data for privacy compliance
func (a *app) cleanupOldVisitorData(ctx context.Context) {
	removed, err := a.db.CleanupVisits(ctx, visitorRetention)
	if err != nil {
		a.logger.Error("error cleaning up old visitor data", zap.Error(err))
		return
	}
	if removed > 0 {
		a.logger.Info("privacy cleanup: removed old visitor records", zap.Int64("count", removed))
	}
}

// Get comprehensive admin statistics
func (a *app) adminStats(ctx context.Context) (*AdminStats, error) {
	visitors, err := a.db.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &AdminStats{VisitorStats: visitors}

	entries, err := a.db.Scan(ctx, contact.KeyPrefix+":")
	if err != nil {
		return nil, err
	}
	stats.Inboxes = len(entries)
	for _, e := range entries {
		subs, err := contact.Decode(e.Value)
		if err != nil {
			a.logger.Warn("skipping unreadable inbox", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		stats.TotalSubmissions += len(subs)
		stats.RecentSubmissions = append(stats.RecentSubmissions, subs...)
	}
	contact.SortNewestFirst(stats.RecentSubmissions)
	if len(stats.RecentSubmissions) > 20 {
		stats.RecentSubmissions = stats.RecentSubmissions[:20]
	}

	return stats, nil
}

// Setup all admin routes
func setupAdminRoutes(r *gin.Engine, a *app) {
	// Privacy policy route
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{})
	})

	// Admin login page
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{})
	})

	// Admin login handler
	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		if a.admin.validCredentials(username, password) {
			// Set secure cookie (24 hours)
			c.SetCookie("admin_token", a.admin.token, 3600*24, "/admin", "", false, true)
			a.logger.Info("admin login successful", zap.String("visitor", a.admin.hashIP(c.ClientIP())))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		a.logger.Warn("failed admin login attempt", zap.String("visitor", a.admin.hashIP(c.ClientIP())))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"error": "Invalid credentials",
		})
	})

	// Admin logout
	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie("admin_token", "", -1, "/admin", "", false, true)
		a.logger.Info("admin logout", zap.String("visitor", a.admin.hashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	// Protected admin routes group
	adminGroup := r.Group("/admin")
	adminGroup.Use(a.admin.middleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			a.logger.Error("error loading admin stats", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats": stats,
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.db.RecentVisits(c.Request.Context(), 200)
		if err != nil {
			a.logger.Error("error loading visitors", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{
			"visitors": visitors,
		})
	})

	// Privacy compliance endpoint
	adminGroup.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		a.cleanupOldVisitorData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup done"})
	})

	// Admin statistics export (for backups or analysis)
	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		a.logger.Info("admin stats exported", zap.String("visitor", a.admin.hashIP(c.ClientIP())))
		c.JSON(http.StatusOK, stats)
	})
}
