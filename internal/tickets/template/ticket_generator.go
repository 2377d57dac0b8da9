package template

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/signintech/gopdf"

	"ms-reservations/internal/models"
)

const dateLayout = "2006-01-02 15:04 MST"

type TicketPDFGenerator struct {
	fontPath string
}

func NewTicketPDFGenerator(fontPath string) *TicketPDFGenerator {
	if fontPath == "" {
		fontPath = "./fonts/DejaVuSans.ttf"
	}
	return &TicketPDFGenerator{fontPath: fontPath}
}

func (g *TicketPDFGenerator) Generate(ticket models.TicketData, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	err := pdf.AddTTFFont("dejavu", g.fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	err = pdf.SetFont("dejavu", "", 14)
	if err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}

	addHeader(pdf, ticket)

	pdf.SetY(90)
	addTicketInfo(pdf, ticket)

	if len(qrCode) > 0 {
		pdf.SetY(pdf.GetY() + 20)
		addQRCode(pdf, qrCode)
	}

	pdf.SetY(780)
	addFooter(pdf)

	var buf bytes.Buffer
	err = pdf.Write(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func addHeader(pdf *gopdf.GoPdf, ticket models.TicketData) {
	pdf.SetX(40)
	pdf.SetY(40)
	pdf.Cell(nil, "EVENT TICKET")
	pdf.Br(24)
	pdf.SetX(40)
	pdf.Cell(nil, ticket.EventTitle)
}

// ticketLines lists the label/value rows printed on the ticket, skipping empty values.
func ticketLines(ticket models.TicketData) [][2]string {
	end := ""
	if ticket.EndAt != nil {
		end = ticket.EndAt.Format(dateLayout)
	}
	cityCountry := strings.Trim(strings.Join([]string{ticket.LocationCity, ticket.LocationCountry}, ", "), ", ")

	rows := [][2]string{
		{"Ticket code", ticket.TicketCode},
		{"Participant", ticket.ParticipantName},
		{"Email", ticket.ParticipantEmail},
		{"Starts", ticket.StartAt.Format(dateLayout)},
		{"Ends", end},
		{"Venue", ticket.LocationName},
		{"Address", ticket.LocationAddress},
		{"City", cityCountry},
		{"Status", string(ticket.Status)},
	}

	out := rows[:0]
	for _, row := range rows {
		if row[1] != "" {
			out = append(out, row)
		}
	}
	return out
}

func addTicketInfo(pdf *gopdf.GoPdf, ticket models.TicketData) {
	for _, row := range ticketLines(ticket) {
		pdf.SetX(40)
		pdf.Cell(nil, row[0]+": "+row[1])
		pdf.Br(20)
	}
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		pdf.Cell(nil, "Failed to load QR code")
		return
	}

	rect := &gopdf.Rect{W: 150, H: 150}
	err = pdf.ImageFrom(img, 40, pdf.GetY(), rect)
	if err != nil {
		pdf.Cell(nil, "Failed to draw QR code")
	}
}

func addFooter(pdf *gopdf.GoPdf) {
	pdf.SetX(40)
	pdf.Cell(nil, "Present this ticket at the entrance.")
}
