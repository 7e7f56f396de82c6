package email

import (
	"context"
	"fmt"

	"github.com/mlukyanov/skyfare/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("notify passenger %d about %s for flight %d seat %s (pnr %q)\n",
		event.PassengerID, event.Type, event.FlightID, event.SeatNo, event.PNR)
	return nil
}
