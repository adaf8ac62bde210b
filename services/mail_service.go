package services

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/gomail.v2"

	"github.com/rsleiman/souqly_backend/models"
)

// SendWelcomeEmail sends the new member their referral code after a
// successful registration. Failures are logged, never fatal: the
// registration itself has already committed.
func SendWelcomeEmail(member *models.Member) {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	if smtpHost == "" {
		log.Println("SMTP_HOST not configured, skipping welcome email")
		return
	}
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	subject := "Welcome to Souqly"
	body := fmt.Sprintf("Dear %s,\n\nYour account has been created successfully.\nYour referral code is %s. Share it to grow your network and earn pair bonuses.\n\nBest regards,\nThe Souqly Team", member.FullName, member.ReferralCode)

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", member.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	if err := d.DialAndSend(m); err != nil {
		log.Printf("Failed to send welcome email to %s: %v", member.Email, err)
	}
}
