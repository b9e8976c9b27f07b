package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"face-fusion-server/modules/common/config"
	"face-fusion-server/modules/common/gemini"
	"face-fusion-server/modules/common/logger"
	fusionredis "face-fusion-server/modules/common/redis"
	"face-fusion-server/modules/fusion"
	"face-fusion-server/modules/session"
)

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "face-fusion",
	})
}

// 서버 메트릭 조회 엔드포인트
func getMetrics(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"server": manager.Metrics(),
		})
	}
}

// 만료 세션 강제 정리 (관리자용)
func forceCleanupSessions(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cleaned := manager.CleanupExpired(time.Now())

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "Cleanup completed",
			"cleaned": cleaned,
		})
	}
}

// newRouter - 라우터 설정
func newRouter(manager *session.Manager, handler *session.Handler) *mux.Router {
	r := mux.NewRouter()

	// CORS 미들웨어 적용
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/metrics", getMetrics(manager)).Methods("GET")
	r.HandleFunc("/admin/cleanup", forceCleanupSessions(manager)).Methods("POST")
	handler.RegisterRoutes(r)

	return r
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("❌ Failed to load config")
	}
	log := logger.New(cfg.IsDevelopment())
	if !cfg.DotEnvLoaded {
		log.Warn().Msg("⚠️  .env file not found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Gemini 클라이언트
	client, err := gemini.NewClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to create Gemini client")
	}
	analyzer := fusion.NewAnalyzer(client.Models, cfg.AnalysisModel, log)
	composer := fusion.NewComposer(client.Models, cfg.ImageModel, log)

	// Redis status relay (선택)
	var relay session.Relay
	if cfg.RedisEnabled() {
		rdb, err := fusionredis.Connect(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Redis unavailable, status updates stay local")
		} else {
			defer rdb.Close()
			relay = fusionredis.NewStatusRelay(rdb, log)
		}
	}

	hub := session.NewHub(relay, log)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("❌ Status relay stopped")
		}
	}()

	manager := session.NewManager(session.ManagerConfig{
		DefaultLanguage: cfg.DefaultLanguage,
		DefaultRatio:    cfg.DefaultAspectRatio,
		IdleTTL:         cfg.SessionIdleTTL,
		MaxAge:          cfg.SessionMaxAge,
	}, analyzer, composer, hub, log)

	// 정리 루틴 시작
	manager.StartCleanupRoutine(ctx, 5*time.Minute)

	handler := session.NewHandler(manager, hub, cfg.MaxUploadBytes, log)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(manager, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("port", cfg.Port).
		Str("language", string(cfg.DefaultLanguage)).
		Str("aspect_ratio", string(cfg.DefaultAspectRatio)).
		Bool("redis", relay != nil).
		Msg("🚀 Face Fusion server starting")
	log.Info().Msgf("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Info().Msgf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("❌ Graceful shutdown failed")
		}
	}()

	// 서버 시작
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
	log.Info().Msg("👋 Server stopped")
}
