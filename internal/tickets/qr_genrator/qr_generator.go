package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-reservations/internal/models"
)

const qrSize = 256

// qrPayload is what door staff decode from the code; it carries no personal data.
type qrPayload struct {
	TicketCode    string `json:"ticket_code"`
	ReservationID string `json:"reservation_id"`
	EventID       string `json:"event_id"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// GenerateEncryptedQR renders a PNG QR code of the encrypted ticket payload.
func (q *QRGenerator) GenerateEncryptedQR(ticket models.TicketData) ([]byte, error) {
	if ticket.TicketCode == "" {
		return nil, errors.New("ticket has no code")
	}

	token, err := q.Seal(ticket)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, qrSize)
}

// Seal returns the base64url token embedded in the QR code.
func (q *QRGenerator) Seal(ticket models.TicketData) (string, error) {
	data, err := json.Marshal(qrPayload{
		TicketCode:    ticket.TicketCode,
		ReservationID: ticket.ReservationID,
		EventID:       ticket.EventID,
	})
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// Open reverses Seal and returns the ticket code, reservation id and event id.
func (q *QRGenerator) Open(token string) (ticketCode, reservationID, eventID string, err error) {
	data, err := decryptAES(token, q.secret)
	if err != nil {
		return "", "", "", err
	}
	var p qrPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", "", "", err
	}
	return p.TicketCode, p.ReservationID, p.EventID, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(token string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv, data := ciphertext[:aes.BlockSize], ciphertext[aes.BlockSize:]
	plain := make([]byte, len(data))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plain, data)
	return plain, nil
}
