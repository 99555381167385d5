package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/api/dto"
	"github.com/pkazakov/tradefloor/internal/core"
	"github.com/pkazakov/tradefloor/internal/metrics"
	"github.com/pkazakov/tradefloor/internal/middleware"
	"github.com/pkazakov/tradefloor/internal/port"
)

// Server is the HTTP front end: it validates order requests, hands them
// to the partition router and acknowledges the enqueue immediately.
// Match outcomes are never reported here; they travel over the
// engine's listener channel.
type Server struct {
	router    *core.Router
	cache     port.MarketDataCache
	rateLimit time.Duration
	log       *zap.Logger
}

func NewServer(router *core.Router, cache port.MarketDataCache, rateLimit time.Duration, log *zap.Logger) *Server {
	return &Server{router: router, cache: cache, rateLimit: rateLimit, log: log}
}

func (s *Server) Run(addr string) error {
	return s.routes().Run(addr)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	orders := r.Group("/")
	if s.rateLimit > 0 {
		rl := middleware.NewRateLimiter(s.rateLimit)
		orders.Use(rl.Middleware())
	}
	orders.GET("/sell", s.sell)
	orders.GET("/buy", s.buy)

	r.GET("/marketprice", s.marketPrice)
	r.GET("/volume", s.volume)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unknown path " + c.Request.URL.Path})
	})

	return r
}

func (s *Server) sell(c *gin.Context) {
	productID, userID, quantity, err := s.orderParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	price, err := decimal.NewFromString(c.Query("price"))
	if err != nil || !price.IsPositive() {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "price must be a positive number"})
		return
	}

	id, err := s.router.SubmitSalesOrder(userID, productID, quantity, price)
	if err != nil {
		s.submitError(c, productID, err)
		return
	}
	metrics.OrdersSubmitted.WithLabelValues("sell").Inc()
	c.JSON(http.StatusOK, dto.OrderAccepted{Msg: "ok", ID: id})
}

func (s *Server) buy(c *gin.Context) {
	productID, userID, quantity, err := s.orderParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	id, err := s.router.SubmitPurchaseOrder(userID, productID, quantity)
	if err != nil {
		s.submitError(c, productID, err)
		return
	}
	metrics.OrdersSubmitted.WithLabelValues("buy").Inc()
	c.JSON(http.StatusOK, dto.OrderAccepted{Msg: "ok", ID: id})
}

// orderParams validates the query parameters shared by /sell and /buy.
func (s *Server) orderParams(c *gin.Context) (productID, userID string, quantity int, err error) {
	productID = c.Query("productId")
	if productID == "" {
		return "", "", 0, errors.New("productId is required")
	}
	userID = c.Query("userId")
	if userID == "" {
		return "", "", 0, errors.New("userId is required")
	}
	quantity, convErr := strconv.Atoi(c.Query("quantity"))
	if convErr != nil || quantity <= 0 {
		return "", "", 0, errors.New("quantity must be a positive integer")
	}
	return productID, userID, quantity, nil
}

func (s *Server) submitError(c *gin.Context, productID string, err error) {
	if errors.Is(err, core.ErrUnroutableProduct) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: fmt.Sprintf("unknown productId %q", productID)})
		return
	}
	s.log.Error("order submission failed", zap.String("productId", productID), zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
}

func (s *Server) marketPrice(c *gin.Context) {
	productID := c.Query("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "productId is required"})
		return
	}
	if s.cache == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "market data not available"})
		return
	}
	mp, err := s.cache.GetMarketPrice(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if mp == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no price known for " + productID})
		return
	}
	c.JSON(http.StatusOK, dto.MarketPriceResponse{
		ProductID: mp.ProductID,
		Price:     mp.Price,
		Timestamp: mp.Timestamp,
	})
}

func (s *Server) volume(c *gin.Context) {
	productID := c.Query("productId")
	if productID == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "productId is required"})
		return
	}
	if s.cache == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "market data not available"})
		return
	}
	vr, err := s.cache.GetVolume(c.Request.Context(), productID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if vr == nil {
		c.JSON(http.StatusOK, dto.VolumeResponse{ProductID: productID, Turnover: decimal.Zero})
		return
	}
	c.JSON(http.StatusOK, dto.VolumeResponse{
		ProductID: vr.ProductID,
		Quantity:  vr.Quantity,
		Turnover:  vr.Turnover,
		Count:     vr.Count,
	})
}
