package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/mlukyanov/skyfare/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type startBookingRequest struct {
	FlightID    int64  `json:"flight_id"`
	PassengerID int64  `json:"passenger_id"`
	SeatNo      string `json:"seat_no"`
}

type confirmPaymentRequest struct {
	// Approved defaults to true when the field is omitted, so plain
	// confirmation requests succeed.
	Approved *bool `json:"approved"`
}

type bookingResponse struct {
	BookingID        string `json:"booking_id"`
	PNR              string `json:"pnr,omitempty"`
	FlightID         int64  `json:"flight_id"`
	PassengerID      int64  `json:"passenger_id"`
	SeatNo           string `json:"seat_no"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"payment_status"`
	LockedPriceCents int64  `json:"locked_price_cents"`
	CreatedAt        string `json:"created_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.start)
	router.POST("/:ref/pay", h.confirm)
	router.DELETE("/:ref", h.cancel)
	router.GET("/:ref", h.get)
}

// RegisterPassenger mounts the passenger-scoped routes; they live in a
// separate group to keep the wildcard trees disjoint.
func (h *BookingHandler) RegisterPassenger(router *gin.RouterGroup) {
	router.GET("/:passenger_id/bookings", h.history)
}

func (h *BookingHandler) start(c *gin.Context) {
	var req startBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.StartBooking(c.Request.Context(), booking.StartBookingInput{
		FlightID:    req.FlightID,
		PassengerID: req.PassengerID,
		SeatNo:      req.SeatNo,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) confirm(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	approved := req.Approved == nil || *req.Approved

	b, err := h.service.ConfirmPayment(c.Request.Context(), c.Param("ref"), booking.PaymentOutcome{Approved: approved})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) history(c *gin.Context) {
	passengerID, err := strconv.ParseInt(c.Param("passenger_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid passenger id"})
		return
	}
	bookings, err := h.service.BookingHistory(c.Request.Context(), passengerID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, out)
}

// writeError maps the domain error taxonomy onto HTTP statuses, keeping
// business rejections distinct from system faults.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrFlightNotFound), errors.Is(err, domain.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoSeatsAvailable), errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStorageUnavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		BookingID:        b.ID,
		PNR:              b.PNR,
		FlightID:         b.FlightID,
		PassengerID:      b.PassengerID,
		SeatNo:           b.SeatNo,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		LockedPriceCents: b.LockedPriceCents,
		CreatedAt:        b.CreatedAt.Format(time.RFC3339),
	}
}
