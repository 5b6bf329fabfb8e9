// Command mcp-server exposes advertisement selection over the Model Context
// Protocol, letting agent tooling request ads and inspect marketplace
// inventory through stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/config"
	"github.com/openadstack/adselect/internal/db"
	"github.com/openadstack/adselect/internal/models"
	"github.com/openadstack/adselect/internal/observability"
	"github.com/openadstack/adselect/internal/selection"
	"github.com/openadstack/adselect/internal/targeting"
	"github.com/openadstack/adselect/internal/targeting/predicates"
)

type SelectAdvertisementInput struct {
	CustomerID    string `json:"customer_id,omitempty"`
	MarketplaceID string `json:"marketplace_id"`
}

type SelectAdvertisementOutput struct {
	ID                string `json:"id"`
	Empty             bool   `json:"empty"`
	ContentID         string `json:"content_id,omitempty"`
	RenderableContent string `json:"renderable_content,omitempty"`
}

type ListContentInput struct {
	MarketplaceID string `json:"marketplace_id"`
}

type ListContentOutput struct {
	Content []models.AdvertisementContent `json:"content"`
}

// AdSelectServer holds the dependencies for the MCP tools.
type AdSelectServer struct {
	store  *db.Store
	engine *selection.Engine
	logger *zap.Logger
}

// SelectAdvertisement runs one selection pass for the given customer and
// marketplace.
func (s *AdSelectServer) SelectAdvertisement(ctx context.Context, req *mcp.CallToolRequest, input SelectAdvertisementInput) (*mcp.CallToolResult, SelectAdvertisementOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if input.MarketplaceID == "" {
		return nil, SelectAdvertisementOutput{}, fmt.Errorf("marketplace_id is required")
	}

	ad, err := s.engine.SelectAdvertisement(ctx, input.CustomerID, input.MarketplaceID)
	if err != nil {
		s.logger.Error("selection failed", zap.Error(err), zap.String("marketplace_id", input.MarketplaceID))
		return nil, SelectAdvertisementOutput{}, err
	}

	out := SelectAdvertisementOutput{ID: ad.ID, Empty: ad.Empty()}
	if !ad.Empty() {
		out.ContentID = ad.Content.ContentID
		out.RenderableContent = ad.Content.RenderableContent
	}
	return nil, out, nil
}

// ListContent returns the advertisement content loaded for a marketplace.
func (s *AdSelectServer) ListContent(ctx context.Context, req *mcp.CallToolRequest, input ListContentInput) (*mcp.CallToolResult, ListContentOutput, error) {
	if input.MarketplaceID == "" {
		return nil, ListContentOutput{}, fmt.Errorf("marketplace_id is required")
	}
	content, err := s.store.GetContent(ctx, input.MarketplaceID)
	if err != nil {
		return nil, ListContentOutput{}, err
	}
	return nil, ListContentOutput{Content: content}, nil
}

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName + "-mcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	profiles, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer profiles.Close()

	registry := predicates.NewRegistry(profiles)
	store := db.NewStore()
	if err := store.Reload(pg, registry); err != nil {
		logger.Fatal("failed to load store", zap.Error(err))
	}

	pool := targeting.NewPool(cfg.PredicateWorkers)
	defer pool.Close()

	engine := selection.NewEngine(store, store, pool, cfg.EvaluationTimeout, logger, observability.NewNoOpRegistry())

	adServer := &AdSelectServer{store: store, engine: engine, logger: logger}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "adselect",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_advertisement",
		Description: "Select one eligible advertisement for a customer in a marketplace",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"customer_id": map[string]interface{}{
					"type":        "string",
					"description": "Customer to target; omit for anonymous traffic",
				},
				"marketplace_id": map[string]interface{}{
					"type":        "string",
					"description": "Marketplace the advertisement will render in",
				},
			},
			"required": []string{"marketplace_id"},
		},
	}, adServer.SelectAdvertisement)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_content",
		Description: "List the advertisement content loaded for a marketplace",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"marketplace_id": map[string]interface{}{
					"type":        "string",
					"description": "Marketplace to list content for",
				},
			},
			"required": []string{"marketplace_id"},
		},
	}, adServer.ListContent)

	logger.Info("MCP server running via stdio")
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
