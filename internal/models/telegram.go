package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for an install notification.
type TelegramMessage struct {
	Success   bool
	Host      string
	Unit      string
	User      string
	WorkDir   string
	StartTime time.Time
	Duration  time.Duration

	// Install stats (if successful).
	InstalledPath  string
	StepsCompleted int

	// Error info (if failed).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
