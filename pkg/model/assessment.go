package model

import "time"

// Assessment vote bounds.
const (
	MinVote = 1
	MaxVote = 5
)

// Assessment is a star rating of the service left by a user.
type Assessment struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"userId" yaml:"user_id"`
	Username  string    `json:"username" yaml:"username"`
	Vote      int       `json:"vote" yaml:"vote"`
	Comment   string    `json:"comment" yaml:"comment"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// NewAssessment is the body of a create-assessment request.
type NewAssessment struct {
	Vote    int    `json:"vote" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// AverageVote returns the mean vote of the assessments, or 0 for none.
func AverageVote(list []Assessment) float64 {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, a := range list {
		sum += a.Vote
	}
	return float64(sum) / float64(len(list))
}
