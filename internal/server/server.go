// Package server exposes occupation search, batch matching and the survey
// explorer over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"yashubustudio/surveyx/nco"
)

const maxBodyBytes = 4 << 20

// API holds dependencies for API handlers.
type API struct {
	svc    *nco.Service
	logger *slog.Logger

	mu         sync.RWMutex
	survey     *nco.Dataset
	surveyErr  error
	surveyPath string
}

// NewAPI creates the handler set. surveyPath is a .ctl descriptor or a data
// file; when set it is loaded at once and a failure is reported by the survey
// routes.
func NewAPI(svc *nco.Service, surveyPath string, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	api := &API{svc: svc, logger: logger.With("component", "http"), surveyPath: surveyPath}
	if surveyPath != "" {
		api.ReloadSurvey()
	} else {
		api.SetSurvey(nil, nco.ErrDataNotFound)
	}
	return api
}

// SetSurvey replaces the dataset served by the survey routes.
func (api *API) SetSurvey(ds *nco.Dataset, err error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.survey = ds
	api.surveyErr = err
}

// ReloadSurvey reads the survey dataset again from its source.
func (api *API) ReloadSurvey() error {
	ds, err := nco.LoadSurveyPath(api.surveyPath)
	if err != nil {
		api.logger.Warn("survey load failed", "path", api.surveyPath, "error", err)
	} else {
		api.logger.Info("survey loaded", "path", api.surveyPath, "rows", ds.Len())
	}
	api.SetSurvey(ds, err)
	return err
}

func (api *API) currentSurvey() (*nco.Dataset, error) {
	api.mu.RLock()
	defer api.mu.RUnlock()
	if api.surveyErr != nil {
		return nil, api.surveyErr
	}
	return api.survey, nil
}

// SetupRoutes defines all the API routes.
func SetupRoutes(router *gin.Engine, api *API) {
	router.GET("/health", api.HealthHandler)

	ncoRoutes := router.Group("/nco")
	{
		ncoRoutes.POST("/search", api.SearchHandler)
		ncoRoutes.POST("/match", api.MatchHandler)
	}

	surveyRoutes := router.Group("/survey")
	{
		surveyRoutes.GET("/columns", api.SurveyColumnsHandler)
		surveyRoutes.GET("/search", api.SurveySearchHandler)
		surveyRoutes.GET("/export", api.SurveyExportHandler)
		surveyRoutes.POST("/reload", api.SurveyReloadHandler)
	}
}

// NewRouter builds a gin engine with the standard middleware chain.
func NewRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(api.logger), RequestSizeLimitMiddleware(maxBodyBytes))
	SetupRoutes(router, api)
	return router
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "component", "http", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
