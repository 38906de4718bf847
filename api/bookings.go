package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/service/ledger"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service ledger.BookingLedger
}

type createBookingRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	ProviderID int64  `json:"provider_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
	Time       string `json:"time" binding:"required"`
	Service    string `json:"service" binding:"required"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
}

type bookingResponse struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	ProviderID    int64  `json:"provider_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PairTime      string `json:"pair_time,omitempty"`
	Service       string `json:"service"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	TrackingCode  string `json:"tracking_code,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func NewBookingHandler(service ledger.BookingLedger) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:user_id", h.history)
	router.PUT("/:user_id/paid", h.markPaid)
	router.DELETE("/:user_id", h.cancel)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.Reserve(c.Request.Context(), ledger.ReserveInput{
		UserID:     req.UserID,
		ProviderID: req.ProviderID,
		Date:       req.Date,
		Time:       req.Time,
		Service:    domain.ServiceKind(req.Service),
		Name:       req.Name,
		Phone:      req.Phone,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) history(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	list, err := h.service.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]bookingResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toBookingResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) markPaid(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if err := h.service.SetPaymentStatus(c.Request.Context(), userID, domain.PaymentStatusPaid); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	cancelled, err := h.service.Cancel(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !cancelled {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrReservationConflict), errors.Is(err, domain.ErrActiveBookingExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		UserID:        b.UserID,
		ProviderID:    b.ProviderID,
		Date:          b.Date,
		Time:          b.Time,
		PairTime:      b.PairTime,
		Service:       string(b.Service),
		Name:          b.Name,
		Phone:         b.Phone,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TrackingCode:  b.TrackingCode,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
}
