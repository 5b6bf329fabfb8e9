package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/openadstack/adselect/internal/analytics"
	"github.com/openadstack/adselect/internal/middleware"
	"github.com/openadstack/adselect/internal/models"
	"github.com/openadstack/adselect/internal/observability"
	"github.com/openadstack/adselect/internal/targeting"
)

var tracer = otel.Tracer("adselect")

// AdvertisementResponse is the JSON body returned by GET /advertisement.
// Empty is true when no content was available or eligible.
type AdvertisementResponse struct {
	ID                string `json:"id"`
	Empty             bool   `json:"empty"`
	ContentID         string `json:"content_id,omitempty"`
	MarketplaceID     string `json:"marketplace_id,omitempty"`
	RenderableContent string `json:"renderable_content,omitempty"`
}

// AdvertisementHandler handles GET /advertisement requests. The marketplace
// is required; the customer is optional (anonymous traffic still gets ads
// whose targeting does not require recognition).
func (s *Server) AdvertisementHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "AdvertisementHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/advertisement"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "advertisement"
	const method = "GET"

	marketplaceID := r.URL.Query().Get("marketplaceId")
	if marketplaceID == "" {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "marketplaceId required", http.StatusBadRequest)
		return
	}
	customerID := r.URL.Query().Get("customerId")

	requestID := uuid.NewString()
	rc := targeting.ResolveRequestContext(customerID, marketplaceID, r.UserAgent(), clientIP(r), s.GeoIP)

	span.SetAttributes(
		attribute.String("marketplace_id", marketplaceID),
		attribute.String("customer_id", customerID),
		attribute.String("request_id", requestID),
	)

	s.recordEvent(ctx, logger, "ad_request", requestID, "", rc)
	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("advertisement request",
			zap.String("request_id", requestID),
			zap.String("customer_id", customerID),
			zap.String("marketplace_id", marketplaceID))
	}

	ad, err := s.Engine.SelectForContext(ctx, rc)
	if err != nil {
		logger.Error("advertisement selection failed",
			zap.Error(err),
			zap.String("request_id", requestID))
		span.SetAttributes(attribute.String("ad.result", "error"))
		s.recordEvent(ctx, logger, "selection_error", requestID, "", rc)
		s.Metrics.IncrementRequests(endpoint, method, "500")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		http.Error(w, "selection failed", http.StatusInternalServerError)
		return
	}

	resp := AdvertisementResponse{ID: ad.ID, Empty: ad.Empty()}
	if ad.Empty() {
		span.SetAttributes(attribute.String("ad.result", "empty"))
		s.recordEvent(ctx, logger, "ad_empty", requestID, "", rc)
	} else {
		span.SetAttributes(
			attribute.String("ad.result", "served"),
			attribute.String("ad.content_id", ad.Content.ContentID),
		)
		resp.ContentID = ad.Content.ContentID
		resp.MarketplaceID = ad.Content.MarketplaceID
		resp.RenderableContent = ad.Content.RenderableContent
		s.recordEvent(ctx, logger, "ad_served", requestID, ad.Content.ContentID, rc)
	}

	s.Metrics.IncrementRequests(endpoint, method, "200")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
	writeJSON(w, resp)
}

// recordEvent forwards a selection event to analytics. Analytics being down
// never fails the request; the event is only logged.
func (s *Server) recordEvent(ctx context.Context, logger *zap.Logger, eventType, requestID, contentID string, rc models.RequestContext) {
	if s.Analytics == nil {
		return
	}
	if err := s.Analytics.RecordEvent(ctx, eventType, requestID, contentID, rc); err != nil && err != analytics.ErrUnavailable {
		logger.Error("analytics record", zap.Error(err), zap.String("event_type", eventType))
	}
}

// clientIP extracts the originating client IP, preferring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx != -1 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
