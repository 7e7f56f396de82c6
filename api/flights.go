package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/mlukyanov/skyfare/internal/service/flights"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type flightResponse struct {
	ID             int64  `json:"flight_id"`
	FlightNumber   string `json:"flight_number"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartureTime  string `json:"departure_time"`
	ArrivalTime    string `json:"arrival_time"`
	TotalSeats     int    `json:"total_seats"`
	SeatsAvailable int    `json:"seats_available"`
	BaseFareCents  int64  `json:"base_fare_cents"`
}

type priceResponse struct {
	flightResponse
	DynamicPriceCents int64   `json:"dynamic_price_cents"`
	DemandFactor      float64 `json:"demand_factor"`
}

type fareHistoryItem struct {
	PriceCents     int64   `json:"price_cents"`
	SeatsAvailable int     `json:"seats_available"`
	DemandFactor   float64 `json:"demand_factor"`
	Reason         string  `json:"reason"`
	RecordedAt     string  `json:"recorded_at"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/price", h.price)
	router.GET("/:id/fare_history", h.fareHistory)
}

// RegisterSearch mounts route search at the API root.
func (h *FlightHandler) RegisterSearch(router gin.IRoutes) {
	router.GET("/search", h.search)
}

func (h *FlightHandler) list(c *gin.Context) {
	flights, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]flightResponse, 0, len(flights))
	for _, f := range flights {
		out = append(out, toFlightResponse(f))
	}
	c.JSON(http.StatusOK, out)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight))
}

func (h *FlightHandler) price(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	priced, err := h.service.CurrentPrice(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, priceResponse{
		flightResponse:    toFlightResponse(priced.Flight),
		DynamicPriceCents: priced.PriceCents,
		DemandFactor:      priced.DemandFactor,
	})
}

func (h *FlightHandler) search(c *gin.Context) {
	origin := c.Query("origin")
	destination := c.Query("destination")
	if origin == "" || destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination are required"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	results, err := h.service.Search(c.Request.Context(), origin, destination, date, c.Query("sort"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]priceResponse, 0, len(results))
	for _, r := range results {
		out = append(out, priceResponse{
			flightResponse:    toFlightResponse(r.Flight),
			DynamicPriceCents: r.PriceCents,
			DemandFactor:      r.DemandFactor,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *FlightHandler) fareHistory(c *gin.Context) {
	id, ok := flightID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.service.FareHistory(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]fareHistoryItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, fareHistoryItem{
			PriceCents:     e.PriceCents,
			SeatsAvailable: e.SeatsAvailable,
			DemandFactor:   e.DemandFactor,
			Reason:         e.Reason,
			RecordedAt:     e.RecordedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

func flightID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func toFlightResponse(f domain.Flight) flightResponse {
	return flightResponse{
		ID:             f.ID,
		FlightNumber:   f.FlightNumber,
		Origin:         f.Origin,
		Destination:    f.Destination,
		DepartureTime:  f.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    f.ArrivalTime.Format(time.RFC3339),
		TotalSeats:     f.TotalSeats,
		SeatsAvailable: f.AvailableSeats,
		BaseFareCents:  f.BaseFareCents,
	}
}
