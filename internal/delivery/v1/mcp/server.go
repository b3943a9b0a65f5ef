// Package mcp публикует семантический поиск по винам как MCP-инструмент поверх
// streamable HTTP.
package mcp

import (
	"context"
	"net/http"

	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	Version        = "0.1.0"
	SearchToolName = "search-wines"
)

type Server struct {
	catalogUsecase usecase.CatalogUC
	logger         logger.Logger
	server         *mcp.Server
}

func NewServer(catalogUsecase usecase.CatalogUC, logger logger.Logger) *Server {
	s := &Server{
		catalogUsecase: catalogUsecase,
		logger:         logger,
		server:         mcp.NewServer(&mcp.Implementation{Name: "wine-search", Version: Version}, nil),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        SearchToolName,
		Description: "Semantic search over the indexed wine catalog",
	}, s.handleSearch)

	return s
}

// Handler отдаёт MCP-сервер по streamable HTTP
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// SearchInput аргументы инструмента search-wines
type SearchInput struct {
	Query string `json:"query,omitempty" jsonschema:"free text describing the wine, defaults to red wine"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 5)"`
}

type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type SearchResult struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit < 0 {
		limit = 0
	}

	res, err := s.catalogUsecase.Query(ctx, usecase.NewQueryReq(input.Query, limit))
	if err != nil {
		s.logger.Errorf(err, "mcp %s failed", SearchToolName)
		return nil, SearchOutput{}, e.Wrap(whereami.WhereAmI(), err)
	}

	output := SearchOutput{
		Query:   res.Query,
		Results: make([]SearchResult, len(res.Matches)),
		Count:   len(res.Matches),
	}
	for i, m := range res.Matches {
		output.Results[i] = SearchResult{
			ID:       m.ID.String(),
			Score:    float64(m.Score),
			Metadata: m.Metadata,
		}
	}

	return nil, output, nil
}
