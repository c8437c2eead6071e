package models

type UserStats struct {
	TotalSaved float64 `json:"totalSaved"`
	DealsFound int     `json:"dealsFound"`
	Level      string  `json:"level"`
	IsPremium  bool    `json:"isPremium"`
	Referrals  int     `json:"referrals"`
}

func DefaultUserStats() UserStats {
	return UserStats{
		TotalSaved: 12500,
		DealsFound: 42,
		Level:      "Smart Shopper",
		Referrals:  3,
	}
}

type HistoryItem struct {
	Query string `json:"query"`
	Date  string `json:"date"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}
