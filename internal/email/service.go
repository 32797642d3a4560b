package email

import (
	"fmt"
	"net/smtp"
)

// Service sends alert mail via SMTP.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendLowStockAlert mails a replenishment prompt for a product that has
// fallen below its minimum stock threshold.
func (s *Service) SendLowStockAlert(to string, a LowStockAlert) error {
	subject := fmt.Sprintf("[Low stock] %s is down to %d unit(s)", a.ProductName, a.AvailableQty)
	body := BuildLowStockBody(a)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
