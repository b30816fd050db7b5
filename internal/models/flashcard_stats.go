package models

type FlashcardStat struct {
	TotalCards      int     `json:"totalCards"`
	TotalReviews    int     `json:"totalReviews"`
	CardsMastered   int     `json:"cardsMastered"`
	CardsStruggling int     `json:"cardsStruggling"`
	CardsDue        int     `json:"cardsDue"`
	CardsDueSoon    int     `json:"cardsDueSoon"`
	OverallAccuracy float64 `json:"overallAccuracy"`
	AvgEaseFactor   float64 `json:"avgEaseFactor"`
	AvgIntervalDays float64 `json:"avgIntervalDays"`
	AvgTimeSeconds  float64 `json:"avgTimeSeconds"`
	StreakDays      int     `json:"streakDays"`
}
