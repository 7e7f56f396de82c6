package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mlukyanov/skyfare/internal/domain"
	"github.com/mlukyanov/skyfare/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) StartBooking(ctx context.Context, input booking.StartBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ConfirmPayment(ctx context.Context, bookingID string, outcome booking.PaymentOutcome) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, ref string) (*domain.Booking, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, pnr string) (*domain.Booking, error) {
	args := m.Called(ctx, pnr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) BookingHistory(ctx context.Context, passengerID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, passengerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func pendingBooking() *domain.Booking {
	return &domain.Booking{
		ID:               "b9f6f0b0-0c8a-4a3e-97a3-1f6f3e2d4c5b",
		FlightID:         1,
		PassengerID:      42,
		SeatNo:           "12A",
		Status:           domain.BookingStatusPending,
		PaymentStatus:    domain.PaymentStatusPending,
		LockedPriceCents: 187500,
		CreatedAt:        time.Now(),
	}
}

func TestBookingHandler_start(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := `{"flight_id": 1, "passenger_id": 42, "seat_no": "12A"}`
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	input := booking.StartBookingInput{FlightID: 1, PassengerID: 42, SeatNo: "12A"}
	mockService.On("StartBooking", c.Request.Context(), input).Return(pendingBooking(), nil)

	handler.start(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, int64(187500), resp.LockedPriceCents)
	assert.Empty(t, resp.PNR)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_start_NoSeats(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body := `{"flight_id": 1, "passenger_id": 42}`
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	input := booking.StartBookingInput{FlightID: 1, PassengerID: 42}
	mockService.On("StartBooking", c.Request.Context(), input).Return(nil, domain.ErrNoSeatsAvailable)

	handler.start(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_start_BadJSON(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewBufferString("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirm(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	b := pendingBooking()
	c.Params = gin.Params{{Key: "ref", Value: b.ID}}
	c.Request = httptest.NewRequest("POST", "/bookings/"+b.ID+"/pay", bytes.NewBufferString(`{"approved": true}`))
	c.Request.Header.Set("Content-Type", "application/json")

	confirmed := *b
	confirmed.Status = domain.BookingStatusConfirmed
	confirmed.PaymentStatus = domain.PaymentStatusPaid
	confirmed.PNR = "AB12CD"

	mockService.On("ConfirmPayment", c.Request.Context(), b.ID, booking.PaymentOutcome{Approved: true}).Return(&confirmed, nil)

	handler.confirm(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED", resp.Status)
	assert.Equal(t, "AB12CD", resp.PNR)

	mockService.AssertExpectations(t)
}

// An empty confirm body means a plain approval.
func TestBookingHandler_confirm_EmptyBody(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	b := pendingBooking()
	c.Params = gin.Params{{Key: "ref", Value: b.ID}}
	c.Request = httptest.NewRequest("POST", "/bookings/"+b.ID+"/pay", nil)

	confirmed := *b
	confirmed.Status = domain.BookingStatusConfirmed
	confirmed.PaymentStatus = domain.PaymentStatusPaid
	confirmed.PNR = "ZZ99XX"

	mockService.On("ConfirmPayment", c.Request.Context(), b.ID, booking.PaymentOutcome{Approved: true}).Return(&confirmed, nil)

	handler.confirm(c)

	assert.Equal(t, http.StatusOK, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirm_Declined(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	b := pendingBooking()
	c.Params = gin.Params{{Key: "ref", Value: b.ID}}
	c.Request = httptest.NewRequest("POST", "/bookings/"+b.ID+"/pay", bytes.NewBufferString(`{"approved": false}`))
	c.Request.Header.Set("Content-Type", "application/json")

	failed := *b
	failed.Status = domain.BookingStatusFailed
	failed.PaymentStatus = domain.PaymentStatusFailed

	mockService.On("ConfirmPayment", c.Request.Context(), b.ID, booking.PaymentOutcome{Approved: false}).Return(&failed, nil)

	handler.confirm(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FAILED", resp.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirm_AlreadyDecided(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "ref", Value: "some-id"}}
	c.Request = httptest.NewRequest("POST", "/bookings/some-id/pay", nil)

	mockService.On("ConfirmPayment", c.Request.Context(), "some-id", booking.PaymentOutcome{Approved: true}).Return(nil, domain.ErrInvalidState)

	handler.confirm(c)

	assert.Equal(t, http.StatusConflict, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "ref", Value: "AB12CD"}}
	c.Request = httptest.NewRequest("DELETE", "/bookings/AB12CD", nil)

	cancelled := pendingBooking()
	cancelled.PNR = "AB12CD"
	cancelled.Status = domain.BookingStatusCancelled

	mockService.On("CancelBooking", c.Request.Context(), "AB12CD").Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_cancel_NotFound(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "ref", Value: "NOPE99"}}
	c.Request = httptest.NewRequest("DELETE", "/bookings/NOPE99", nil)

	mockService.On("CancelBooking", c.Request.Context(), "NOPE99").Return(nil, domain.ErrBookingNotFound)

	handler.cancel(c)

	assert.Equal(t, http.StatusNotFound, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_get(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "ref", Value: "AB12CD"}}
	c.Request = httptest.NewRequest("GET", "/bookings/AB12CD", nil)

	b := pendingBooking()
	b.PNR = "AB12CD"
	b.Status = domain.BookingStatusConfirmed
	b.PaymentStatus = domain.PaymentStatusPaid

	mockService.On("GetBooking", c.Request.Context(), "AB12CD").Return(b, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_history(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "passenger_id", Value: "42"}}
	c.Request = httptest.NewRequest("GET", "/passengers/42/bookings", nil)

	bookings := []domain.Booking{*pendingBooking()}
	mockService.On("BookingHistory", c.Request.Context(), int64(42)).Return(bookings, nil)

	handler.history(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []bookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, int64(42), resp[0].PassengerID)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_history_InvalidID(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "passenger_id", Value: "abc"}}
	c.Request = httptest.NewRequest("GET", "/passengers/abc/bookings", nil)

	handler.history(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	mockService.AssertExpectations(t)
}
