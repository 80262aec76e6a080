package models

type AdminStats struct {
	Students          int64 `json:"students"`
	Questions         int64 `json:"questions"`
	ActiveAttempts    int64 `json:"activeAttempts"`
	CompletedAttempts int64 `json:"completedAttempts"`
}
