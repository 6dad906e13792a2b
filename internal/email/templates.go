package email

import (
	"fmt"
	"strings"
)

type Message struct {
	Subject string
	Body    string
}

type BookingDetails struct {
	BookingID   int64
	CourtName   string
	Date        string
	StartTime   string
	EndTime     string
	CheckInCode string
	AmountCents int64
	Currency    string
	Reason      string
}

// FormatAmount renders cents as a decimal amount with the currency code.
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
	if currency == "" {
		return amount
	}
	return amount + " " + strings.ToUpper(currency)
}

func BuildBookingConfirmed(details BookingDetails) Message {
	var body strings.Builder
	body.WriteString("Your court booking is confirmed.\n\n")
	writeBookingLines(&body, details)
	if details.CheckInCode != "" {
		fmt.Fprintf(&body, "Check-in code: %s\n", details.CheckInCode)
	}
	return Message{
		Subject: fmt.Sprintf("Booking #%d confirmed", details.BookingID),
		Body:    body.String(),
	}
}

func BuildBookingCancelled(details BookingDetails) Message {
	var body strings.Builder
	body.WriteString("Your court booking has been cancelled.\n\n")
	writeBookingLines(&body, details)
	if reason := strings.TrimSpace(details.Reason); reason != "" {
		fmt.Fprintf(&body, "Reason: %s\n", reason)
	}
	return Message{
		Subject: fmt.Sprintf("Booking #%d cancelled", details.BookingID),
		Body:    body.String(),
	}
}

func BuildSplitPaymentCompleted(details BookingDetails) Message {
	var body strings.Builder
	body.WriteString("Every participant has paid their share. Your booking is confirmed.\n\n")
	writeBookingLines(&body, details)
	if details.AmountCents > 0 {
		fmt.Fprintf(&body, "Total collected: %s\n", FormatAmount(details.AmountCents, details.Currency))
	}
	return Message{
		Subject: fmt.Sprintf("Split payment completed for booking #%d", details.BookingID),
		Body:    body.String(),
	}
}

func writeBookingLines(body *strings.Builder, details BookingDetails) {
	if details.CourtName != "" {
		fmt.Fprintf(body, "Court: %s\n", details.CourtName)
	}
	fmt.Fprintf(body, "Date: %s\n", details.Date)
	fmt.Fprintf(body, "Time: %s - %s\n", details.StartTime, details.EndTime)
}
