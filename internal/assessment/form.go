// Package assessment implements the star-rating form users fill in to
// rate the service.
package assessment

import (
	"context"
	"strings"

	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
)

// User-facing messages.
const (
	MsgNoRating = "please select a rating"
	MsgNoToken  = "no authentication token, please sign in again"
	MsgThanks   = "Thanks for your rating!"
	MsgFailed   = "could not send the rating"
)

// Creator posts assessments. *hackloud.Client satisfies it.
type Creator interface {
	CreateAssessment(ctx context.Context, a model.NewAssessment, token string) error
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Form is the assessment form state.
type Form struct {
	Vote    int
	Comment string

	// OnCreated runs after the backend accepts an assessment.
	OnCreated func()
}

// Submit validates the form and sends it. The fields are cleared only after
// the backend confirms; on failure they are kept so the user can retry.
func (f *Form) Submit(ctx context.Context, c Creator, token string, n Notifier) error {
	if f.Vote < model.MinVote || f.Vote > model.MaxVote {
		n.Error(MsgNoRating)
		return hackloud.NewValidationError("CreateAssessment", map[string]string{"vote": MsgNoRating})
	}
	if token == "" {
		n.Error(MsgNoToken)
		return hackloud.WrapError("CreateAssessment", hackloud.ErrNoToken)
	}

	a := model.NewAssessment{Vote: f.Vote, Comment: strings.TrimSpace(f.Comment)}
	if err := c.CreateAssessment(ctx, a, token); err != nil {
		msg := hackloud.Message(err)
		if msg == "" {
			msg = MsgFailed
		}
		n.Error(msg)
		return err
	}

	n.Success(MsgThanks)
	f.Vote = 0
	f.Comment = ""
	if f.OnCreated != nil {
		f.OnCreated()
	}
	return nil
}

var labels = [...]string{
	1: "Very dissatisfied",
	2: "Dissatisfied",
	3: "Neutral",
	4: "Satisfied",
	5: "Excellent!",
}

// Label returns the caption of a vote, or "" outside 1..5.
func Label(vote int) string {
	if vote < model.MinVote || vote > model.MaxVote {
		return ""
	}
	return labels[vote]
}

// Stars renders a vote as filled and empty stars.
func Stars(vote int) string {
	if vote < 0 {
		vote = 0
	}
	if vote > model.MaxVote {
		vote = model.MaxVote
	}
	return strings.Repeat("★", vote) + strings.Repeat("☆", model.MaxVote-vote)
}
