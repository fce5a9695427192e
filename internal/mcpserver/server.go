// Package mcpserver exposes occupation search and the survey explorer as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"yashubustudio/surveyx/nco"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingService is returned when NewServer is given no service.
var ErrMissingService = errors.New("nco service is required")

// Server is the MCP server for surveyx.
type Server struct {
	svc    *nco.Service
	logger *slog.Logger
	server *mcp.Server

	mu     sync.RWMutex
	survey *nco.Dataset
}

// NewServer creates an MCP server around svc. survey may be nil, in which
// case survey_search reports that no survey is loaded.
func NewServer(svc *nco.Service, survey *nco.Dataset, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, ErrMissingService
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		survey: survey,
		logger: logger.With("component", "mcp"),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "surveyx",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// SetSurvey replaces the dataset served by survey_search.
func (s *Server) SetSurvey(ds *nco.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.survey = ds
}

func (s *Server) currentSurvey() (*nco.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.survey == nil {
		return nil, nco.ErrDataNotFound
	}
	return s.survey, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
