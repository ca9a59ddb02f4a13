package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/snapcaselabs/snapcase/backend/internal/checkout"
	"github.com/snapcaselabs/snapcase/backend/internal/fault"
	"github.com/snapcaselabs/snapcase/backend/internal/orders"
	"github.com/snapcaselabs/snapcase/backend/internal/payments"
	"github.com/snapcaselabs/snapcase/backend/internal/printful"
	"github.com/snapcaselabs/snapcase/backend/internal/templatestore"
	"github.com/snapcaselabs/snapcase/backend/internal/webhooks"
	"go.uber.org/zap"
)

const defaultWebhookBodyLimit = 1 << 20

var (
	errMissingGate      = errors.New("consistency gate dependency required")
	errMissingTemplates = errors.New("template directory dependency required")
	errMissingIngestor  = errors.New("webhook ingestor dependency required")
	errMissingPayments  = errors.New("payment starter dependency required")
)

// PaymentStarter opens payment sessions for gate-accepted checkouts.
type PaymentStarter interface {
	StartSession(ctx context.Context, resolution checkout.Resolution) (payments.Session, error)
}

// NonceIssuer requests embedded-designer nonces from the print provider.
type NonceIssuer interface {
	IssueNonce(ctx context.Context, externalProductID, externalCustomerID string) (printful.Nonce, error)
}

// Dependencies wires the funnel services into the HTTP surface.
type Dependencies struct {
	Gate                *checkout.Gate
	Payments            PaymentStarter
	Templates           *templatestore.Directory
	Orders              *orders.Service
	Nonces              NonceIssuer
	Ingestor            *webhooks.Ingestor
	PrintfulProductMap  map[string]string
	WebhookMaxBodyBytes int64
	Logger              *zap.Logger
}

// NewHTTPHandler builds the gin router for the fulfillment funnel.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Gate == nil {
		return nil, errMissingGate
	}
	if deps.Templates == nil {
		return nil, errMissingTemplates
	}
	if deps.Ingestor == nil {
		return nil, errMissingIngestor
	}
	if deps.Payments == nil {
		return nil, errMissingPayments
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bodyLimit := deps.WebhookMaxBodyBytes
	if bodyLimit <= 0 {
		bodyLimit = defaultWebhookBodyLimit
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		gate:       deps.Gate,
		payments:   deps.Payments,
		templates:  deps.Templates,
		orders:     deps.Orders,
		nonces:     deps.Nonces,
		ingestor:   deps.Ingestor,
		productMap: deps.PrintfulProductMap,
		bodyLimit:  bodyLimit,
		logger:     logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.POST("/api/checkout", handler.handleCheckout)
	router.POST("/api/edm/nonce", handler.handleNonce)
	router.GET("/api/templates/product/:externalProductId", handler.handleTemplateLookup)
	router.POST("/api/templates", handler.handleTemplateSave)
	router.POST("/api/orders", handler.handleOrderCreate)
	router.POST("/api/webhooks/printful", handler.handleWebhook)

	return router, nil
}

type httpHandler struct {
	gate       *checkout.Gate
	payments   PaymentStarter
	templates  *templatestore.Directory
	orders     *orders.Service
	nonces     NonceIssuer
	ingestor   *webhooks.Ingestor
	productMap map[string]string
	bodyLimit  int64
	logger     *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type checkoutRequestPayload struct {
	VariantID       int64             `json:"variantId"`
	TemplateStoreID string            `json:"templateStoreId"`
	TemplateID      string            `json:"templateId"`
	DesignImage     string            `json:"designImage"`
	Email           string            `json:"email"`
	Quantity        int               `json:"quantity"`
	ShippingOption  string            `json:"shippingOption"`
	UnitPriceCents  *int64            `json:"unitPriceCents"`
	Currency        string            `json:"currency"`
	Pricing         *checkout.Pricing `json:"pricing"`
}

func (p checkoutRequestPayload) toRequest() checkout.Request {
	return checkout.Request{
		VariantID:       p.VariantID,
		TemplateStoreID: p.TemplateStoreID,
		TemplateID:      p.TemplateID,
		DesignImageURL:  p.DesignImage,
		Email:           p.Email,
		Quantity:        p.Quantity,
		ShippingOption:  p.ShippingOption,
		UnitPriceCents:  p.UnitPriceCents,
		Currency:        p.Currency,
		Pricing:         p.Pricing,
	}
}

type checkoutResponsePayload struct {
	SessionID      string `json:"sessionId"`
	URL            string `json:"url"`
	Mock           bool   `json:"mock,omitempty"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Currency       string `json:"currency"`
}

func (h *httpHandler) handleCheckout(c *gin.Context) {
	var request checkoutRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, fault.Wrap(fault.KindValidation, "checkout.invalid_request",
			"request body is not valid JSON", err))
		return
	}

	resolution, err := h.gate.Resolve(c.Request.Context(), request.toRequest())
	if err != nil {
		h.respondError(c, err)
		return
	}

	session, err := h.payments.StartSession(c.Request.Context(), resolution)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, checkoutResponsePayload{
		SessionID:      session.ID,
		URL:            session.URL,
		Mock:           session.Mock,
		UnitPriceCents: resolution.UnitPriceCents,
		Currency:       resolution.Currency,
	})
}

type nonceRequestPayload struct {
	ExternalProductID  string `json:"externalProductId"`
	ExternalCustomerID string `json:"externalCustomerId"`
}

type nonceResponsePayload struct {
	Nonce      string  `json:"nonce"`
	TemplateID *string `json:"templateId"`
	ExpiresAt  *int64  `json:"expiresAt"`
}

func (h *httpHandler) handleNonce(c *gin.Context) {
	if h.nonces == nil {
		h.respondError(c, fault.New(fault.KindConfigurationMissing, "nonce.provider_unconfigured",
			"print provider is not configured").WithStatus(http.StatusServiceUnavailable))
		return
	}

	var request nonceRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ExternalProductID) == "" {
		h.respondError(c, fault.New(fault.KindValidation, "nonce.invalid_request",
			"externalProductId is required"))
		return
	}

	nonce, err := h.nonces.IssueNonce(c.Request.Context(), request.ExternalProductID, request.ExternalCustomerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, nonceResponsePayload{
		Nonce:      nonce.Value,
		TemplateID: optionalString(nonce.TemplateID),
		ExpiresAt:  nonce.ExpiresAt,
	})
}

type templateLookupResponsePayload struct {
	ExternalProductID string                `json:"externalProductId"`
	PrintfulProductID *string               `json:"printfulProductId"`
	Template          templateStatusPayload `json:"template"`
}

type templateStatusPayload struct {
	Exists     bool    `json:"exists"`
	TemplateID *string `json:"templateId"`
}

func (h *httpHandler) handleTemplateLookup(c *gin.Context) {
	externalProductID := c.Param("externalProductId")
	c.Header("Cache-Control", "no-store")

	response := templateLookupResponsePayload{
		ExternalProductID: externalProductID,
		PrintfulProductID: optionalString(h.productMap[externalProductID]),
		Template:          templateStatusPayload{Exists: false, TemplateID: nil},
	}

	record, err := h.templates.GetByExternalProductID(c.Request.Context(), externalProductID)
	if err != nil {
		// Lookup stays 200 by contract; a broken directory only means create mode.
		h.logger.Warn("template lookup failed", zap.Error(err),
			zap.String("external_product_id", externalProductID))
		c.JSON(http.StatusOK, response)
		return
	}
	if record != nil {
		response.Template = templateStatusPayload{
			Exists:     true,
			TemplateID: optionalString(record.TemplateID),
		}
	}

	c.JSON(http.StatusOK, response)
}

type templateSaveRequestPayload struct {
	TemplateID        string `json:"templateId"`
	TemplateStoreID   string `json:"templateStoreId"`
	VariantID         int64  `json:"variantId"`
	ExternalProductID string `json:"externalProductId"`
	DesignURL         string `json:"designUrl"`
	PrintfulFileID    string `json:"printfulFileId"`
	PrintfulFileURL   string `json:"printfulFileUrl"`
	Source            string `json:"source"`
}

type templateSaveResponsePayload struct {
	TemplateStoreID string  `json:"templateStoreId"`
	StoredAt        int64   `json:"storedAt"`
	DesignURL       string  `json:"designUrl,omitempty"`
	PrintfulFileID  *string `json:"printfulFileId"`
	PrintfulFileURL *string `json:"printfulFileUrl"`
}

func (h *httpHandler) handleTemplateSave(c *gin.Context) {
	var request templateSaveRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, fault.Wrap(fault.KindValidation, "template.invalid_request",
			"request body is not valid JSON", err))
		return
	}
	if request.VariantID <= 0 {
		h.respondError(c, fault.New(fault.KindValidation, "template.invalid_variant",
			"variantId must be a positive integer"))
		return
	}
	if strings.TrimSpace(request.ExternalProductID) == "" {
		h.respondError(c, fault.New(fault.KindValidation, "template.missing_external_product_id",
			"externalProductId is required"))
		return
	}

	record, err := h.templates.Upsert(c.Request.Context(), templatestore.UpsertInput{
		TemplateStoreID:   request.TemplateStoreID,
		TemplateID:        request.TemplateID,
		VariantID:         request.VariantID,
		ExternalProductID: request.ExternalProductID,
		DesignURL:         request.DesignURL,
		PrintfulFileID:    request.PrintfulFileID,
		PrintfulFileURL:   request.PrintfulFileURL,
	})
	if err != nil {
		h.logger.Error("template save failed", zap.Error(err))
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, templateSaveResponsePayload{
		TemplateStoreID: record.TemplateStoreID,
		StoredAt:        record.CreatedAtSeconds,
		DesignURL:       record.DesignURL,
		PrintfulFileID:  optionalString(record.PrintfulFileID),
		PrintfulFileURL: optionalString(record.PrintfulFileURL),
	})
}

type orderCreateRequestPayload struct {
	VariantID       int64  `json:"variantId"`
	TemplateStoreID string `json:"templateStoreId"`
	TemplateID      string `json:"templateId"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  *int64 `json:"unitPriceCents"`
	Currency        string `json:"currency"`
	Email           string `json:"email"`
}

type orderCreateResponsePayload struct {
	OrderID        string `json:"orderId"`
	VariantID      int64  `json:"variantId"`
	TemplateID     string `json:"templateId,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Currency       string `json:"currency"`
	CreatedAt      int64  `json:"createdAt"`
}

func (h *httpHandler) handleOrderCreate(c *gin.Context) {
	if h.orders == nil {
		h.respondError(c, fault.New(fault.KindConfigurationMissing, "order.storage_unconfigured",
			"order storage is not configured"))
		return
	}

	var request orderCreateRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, fault.Wrap(fault.KindValidation, "order.invalid_request",
			"request body is not valid JSON", err))
		return
	}

	resolution, err := h.gate.Resolve(c.Request.Context(), checkout.Request{
		VariantID:       request.VariantID,
		TemplateStoreID: request.TemplateStoreID,
		TemplateID:      request.TemplateID,
		Quantity:        request.Quantity,
		UnitPriceCents:  request.UnitPriceCents,
		Currency:        request.Currency,
		Email:           request.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), resolution)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderCreateResponsePayload{
		OrderID:        order.OrderID,
		VariantID:      order.VariantID,
		TemplateID:     order.TemplateID,
		Quantity:       order.Quantity,
		UnitPriceCents: order.UnitPriceCents,
		Currency:       order.Currency,
		CreatedAt:      order.CreatedAtSeconds,
	})
}

func (h *httpHandler) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.bodyLimit))
	if err != nil {
		h.respondError(c, fault.Wrap(fault.KindValidation, "webhook.payload_too_large",
			"webhook payload exceeds the configured size limit", err))
		return
	}

	result, err := h.ingestor.Ingest(body, c.Request.Header)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := fault.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.String("path", c.FullPath()))
	}
	c.JSON(status, fault.ResponseOf(err))
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
