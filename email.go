package main

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var errEmailNotConfigured = errors.New("EMAIL_NOT_CONFIGURED")

func sendPasswordResetEmail(cfg Config, to string, token string) error {
	if cfg.SMTPHost == "" || cfg.SMTPUser == "" || cfg.SMTPPass == "" || cfg.SMTPFrom == "" {
		return errEmailNotConfigured
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	resetLink := fmt.Sprintf("%s/#/reset?token=%s", baseURL, token)

	subject := "Coindrop password reset"
	body := fmt.Sprintf("Use this link to reset your password:\n\n%s\n\nIf you did not request a reset, you can ignore this email.", resetLink)

	msg := strings.Join([]string{
		"From: " + cfg.SMTPFrom,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, port)
	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	return smtp.SendMail(addr, auth, cfg.SMTPFrom, []string{to}, []byte(msg))
}
