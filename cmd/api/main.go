package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkin/internal/auth"
	"checkin/internal/checkin"
	"checkin/internal/config"
	"checkin/internal/device"
	"checkin/internal/evidence"
	"checkin/internal/httpmiddleware"
	"checkin/internal/identity"
	"checkin/internal/queue"
	"checkin/internal/session"
	"checkin/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisList(redisClient.Client, "checkin:recorded")
	}

	sessions := session.NewResolver(session.NewRepository(db.Client))
	identityRepo := identity.NewRepository(db.Client)
	students := identity.NewValidator(identityRepo)
	records := checkin.NewRepository(db.Client)
	svc := checkin.NewService(sessions, students, records, q, cfg.DefaultGeofenceRadiusM)

	// Evidence storage client (nil when not configured)
	var evidenceStore evidence.Store
	if cfg.EvidenceCloudName != "" && cfg.EvidenceAPIKey != "" && cfg.EvidenceAPISecret != "" {
		evidenceStore = evidence.New(cfg.EvidenceCloudName, cfg.EvidenceAPIKey, cfg.EvidenceAPISecret, cfg.EvidenceFolder)
		log.Println("evidence storage configured:", cfg.EvidenceCloudName)
	} else {
		log.Println("evidence storage not configured (EVIDENCE_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	// Kiosk deployments trade an enrollment ref for a bearer token so
	// later submissions ride the authenticated path.
	r.POST("/v1/tokens", func(c *gin.Context) {
		var req struct {
			EnrollmentRef string `json:"enrollment_ref" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		studentID, err := identityRepo.ActiveStudentID(c.Request.Context(), strings.TrimSpace(req.EnrollmentRef))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			return
		}
		if studentID == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": identity.ErrStudentNotFound.Error(), "field": "enrollment_ref"})
			return
		}
		token, err := auth.Issue(strings.TrimSpace(req.EnrollmentRef), cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token": token.Value,
			"expires_at":   token.ExpiresAt.Unix(),
		})
	})

	v1 := r.Group("/v1", auth.StudentAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	// Requirements read contract: what does the session expect, so the
	// client can skip irrelevant capture steps.
	v1.GET("/sessions/:token", func(c *gin.Context) {
		req, err := svc.Requirements(c.Request.Context(), c.Param("token"), "")
		if err != nil {
			writeCheckinError(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
	})

	v1.GET("/sessions", func(c *gin.Context) {
		code := c.Query("class_code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "class_code required"})
			return
		}
		req, err := svc.Requirements(c.Request.Context(), "", code)
		if err != nil {
			writeCheckinError(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
	})

	// Evidence upload — stores a photo or signature blob and returns
	// the ref the client cites in the submission. Failures here are
	// non-fatal to the check-in itself.
	v1.POST("/evidence", func(c *gin.Context) {
		if evidenceStore == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evidence storage not configured"})
			return
		}

		var result *evidence.StoreResult
		var err error
		switch {
		case strings.Contains(c.ContentType(), "multipart/form-data"):
			file, header, ferr := c.Request.FormFile("file")
			if ferr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
				return
			}
			defer file.Close()
			data, ferr := io.ReadAll(file)
			if ferr != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
				return
			}
			result, err = evidenceStore.StoreBytes(c.Request.Context(), data, header.Filename)
		default:
			var body struct {
				Data string `json:"data" binding:"required"`
			}
			if berr := c.ShouldBindJSON(&body); berr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
				return
			}
			result, err = evidenceStore.StoreDataURL(c.Request.Context(), body.Data)
		}

		if err != nil {
			log.Printf("evidence upload failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "evidence upload failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ref":   result.Ref,
			"url":   result.SecureURL,
			"bytes": result.Bytes,
		})
	})

	// The submission contract.
	v1.POST("/checkins", func(c *gin.Context) {
		var req struct {
			SessionToken  string `json:"session_token"`
			ClassCode     string `json:"class_code"`
			EnrollmentRef string `json:"enrollment_ref"`
			EntryCode     string `json:"entry_code" binding:"required"`
			Evidence      struct {
				Geo              *checkin.GeoInput `json:"geo"`
				PhotoRef         string            `json:"photo_ref"`
				PhotoSkipped     bool              `json:"photo_skipped"`
				SignatureRef     string            `json:"signature_ref"`
				SignatureSkipped bool              `json:"signature_skipped"`
			} `json:"evidence"`
			DeviceSignals device.Signals `json:"device_signals"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.SessionToken == "" && req.ClassCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_token or class_code required"})
			return
		}

		in := checkin.SubmitInput{
			SessionToken:     req.SessionToken,
			ClassCode:        req.ClassCode,
			EnrollmentRef:    req.EnrollmentRef,
			EntryCode:        req.EntryCode,
			UserAgent:        c.Request.UserAgent(),
			Signals:          req.DeviceSignals,
			Location:         req.Evidence.Geo,
			PhotoRef:         req.Evidence.PhotoRef,
			PhotoSkipped:     req.Evidence.PhotoSkipped,
			SignatureRef:     req.Evidence.SignatureRef,
			SignatureSkipped: req.Evidence.SignatureSkipped,
		}
		if claims, ok := auth.FromContext(c); ok {
			in.Authenticated = true
			in.EnrollmentRef = claims.Subject
		}

		result, err := svc.Submit(c.Request.Context(), in)
		if err != nil {
			writeCheckinError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

// writeCheckinError maps protocol errors to statuses with field-level
// attribution. Validation errors are terminal for the attempt; only a
// persistence failure is marked retryable.
func writeCheckinError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "field": "session_token"})
	case errors.Is(err, session.ErrClassNotFound), errors.Is(err, session.ErrNoOpenSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "field": "class_code"})
	case errors.Is(err, checkin.ErrInvalidEntryCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "field": "entry_code"})
	case errors.Is(err, identity.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "field": "enrollment_ref"})
	case errors.Is(err, identity.ErrNotEnrolled):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "field": "enrollment_ref"})
	case errors.Is(err, checkin.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, checkin.ErrPersistence):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
