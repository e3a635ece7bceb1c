package bookings

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// DocumentRenderer produces the QR pass and itinerary PDF of a confirmed booking
type DocumentRenderer struct {
	secret []byte
}

func NewDocumentRenderer(secret string) *DocumentRenderer {
	return &DocumentRenderer{secret: []byte(secret)}
}

// QRPayload returns booking_ref|booking_id|signature
func (d *DocumentRenderer) QRPayload(b *Booking) string {
	data := fmt.Sprintf("%s|%s", b.BookingRef, b.ID)
	return fmt.Sprintf("%s|%s", data, d.sign(data))
}

// VerifyQRPayload checks a scanned payload and returns the booking reference it carries
func (d *DocumentRenderer) VerifyQRPayload(payload string) (string, bool) {
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return "", false
	}
	expected := d.sign(parts[0] + "|" + parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return "", false
	}
	return parts[0], true
}

func (d *DocumentRenderer) sign(data string) string {
	h := hmac.New(sha256.New, d.secret)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// QRCode renders the booking pass as a 256px PNG
func (d *DocumentRenderer) QRCode(b *Booking) ([]byte, error) {
	if b.Status != StatusConfirmed {
		return nil, ErrNotConfirmed
	}
	png, err := qrcode.Encode(d.QRPayload(b), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// Itinerary renders an A4 itinerary with the booking details and its QR pass
func (d *DocumentRenderer) Itinerary(b *Booking) ([]byte, error) {
	qrPNG, err := d.QRCode(b)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("World Tour itinerary "+b.BookingRef, true)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "World Tour Itinerary")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	for _, line := range itineraryLines(b) {
		pdf.Cell(0, 10, line)
		pdf.Ln(8)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 30, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func itineraryLines(b *Booking) []string {
	lines := []string{
		fmt.Sprintf("Reference: %s", b.BookingRef),
		fmt.Sprintf("Booking: %s", b.ItemName),
		fmt.Sprintf("Type: %s", strings.ReplaceAll(string(b.TargetKind), "_", " ")),
	}

	const day = "Mon, 02 Jan 2006"
	const minute = "Mon, 02 Jan 2006 15:04 MST"
	if b.TargetKind == KindFlight {
		if b.DepartureTime != nil {
			lines = append(lines, "Departure: "+b.DepartureTime.Format(minute))
		}
		if b.ArrivalTime != nil {
			lines = append(lines, "Arrival: "+b.ArrivalTime.Format(minute))
		}
	} else {
		if b.StartDate != nil {
			lines = append(lines, "From: "+b.StartDate.Format(day))
		}
		if b.EndDate != nil {
			lines = append(lines, "To: "+b.EndDate.Format(day))
		}
	}

	lines = append(lines,
		fmt.Sprintf("Travellers: %d", b.PartySize),
		fmt.Sprintf("Total paid: %s", b.Total().String()),
	)
	if b.PaymentReference != nil {
		lines = append(lines, "Payment reference: "+*b.PaymentReference)
	}
	if b.ConfirmedAt != nil {
		lines = append(lines, "Confirmed: "+b.ConfirmedAt.Format(time.RFC1123))
	}
	return lines
}
