package models

// NotificationConfig is read by the dispatcher and mutated only through the
// operator-facing config endpoints.
type NotificationConfig struct {
	IsPaired   bool     `json:"isPaired"`
	IsBlocked  bool     `json:"isBlocked"`
	Recipients []string `json:"recipients"`
}
