package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/me/hackloud/pkg/hackloud"
	"github.com/me/hackloud/pkg/model"
)

type fakeCreator struct {
	got   []model.NewAssessment
	token string
	err   error
}

func (c *fakeCreator) CreateAssessment(_ context.Context, a model.NewAssessment, token string) error {
	c.got = append(c.got, a)
	c.token = token
	return c.err
}

type notes struct{ ok, failed []string }

func (n *notes) Success(msg string) { n.ok = append(n.ok, msg) }
func (n *notes) Error(msg string)   { n.failed = append(n.failed, msg) }

func TestSubmit_NoVoteRejectedLocally(t *testing.T) {
	c := &fakeCreator{}
	n := &notes{}
	f := &Form{Vote: 0, Comment: "great"}

	err := f.Submit(context.Background(), c, "tok", n)
	if !hackloud.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if hackloud.FieldErrors(err)["vote"] != MsgNoRating {
		t.Errorf("FieldErrors = %v", hackloud.FieldErrors(err))
	}
	if len(c.got) != 0 {
		t.Error("backend called for vote 0")
	}
	if len(n.failed) != 1 || n.failed[0] != MsgNoRating {
		t.Errorf("notifications = %+v", n)
	}
	if f.Comment != "great" {
		t.Error("form cleared on rejection")
	}
}

func TestSubmit_Success(t *testing.T) {
	c := &fakeCreator{}
	n := &notes{}
	created := 0
	f := &Form{Vote: 5, Comment: "  great  ", OnCreated: func() { created++ }}

	if err := f.Submit(context.Background(), c, "tok", n); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(c.got) != 1 || c.got[0].Vote != 5 || c.got[0].Comment != "great" || c.token != "tok" {
		t.Errorf("sent %+v with token %q", c.got, c.token)
	}
	if f.Vote != 0 || f.Comment != "" {
		t.Errorf("form not cleared: %+v", f)
	}
	if created != 1 || len(n.ok) != 1 {
		t.Errorf("created = %d, notifications = %+v", created, n)
	}
}

func TestSubmit_NoToken(t *testing.T) {
	c := &fakeCreator{}
	n := &notes{}
	f := &Form{Vote: 3}

	err := f.Submit(context.Background(), c, "", n)
	if !errors.Is(err, hackloud.ErrNoToken) {
		t.Fatalf("err = %v", err)
	}
	if len(c.got) != 0 || n.failed[0] != MsgNoToken {
		t.Errorf("calls = %d, notifications = %+v", len(c.got), n)
	}
}

func TestSubmit_BackendFailureKeepsFields(t *testing.T) {
	c := &fakeCreator{err: hackloud.NewError("CreateAssessment", hackloud.KindAuth, "invalid token")}
	n := &notes{}
	f := &Form{Vote: 4, Comment: "ok"}

	if err := f.Submit(context.Background(), c, "tok", n); !hackloud.IsAuthError(err) {
		t.Fatalf("err = %v", err)
	}
	if f.Vote != 4 || f.Comment != "ok" {
		t.Errorf("form changed on failure: %+v", f)
	}
	if len(n.failed) != 1 || n.failed[0] != "invalid token" {
		t.Errorf("notifications = %+v", n)
	}
}

func TestLabelAndStars(t *testing.T) {
	tests := []struct {
		vote  int
		label string
		stars string
	}{
		{0, "", "☆☆☆☆☆"},
		{1, "Very dissatisfied", "★☆☆☆☆"},
		{3, "Neutral", "★★★☆☆"},
		{5, "Excellent!", "★★★★★"},
		{6, "", "★★★★★"},
	}
	for _, tt := range tests {
		if got := Label(tt.vote); got != tt.label {
			t.Errorf("Label(%d) = %q, want %q", tt.vote, got, tt.label)
		}
		if got := Stars(tt.vote); got != tt.stars {
			t.Errorf("Stars(%d) = %q, want %q", tt.vote, got, tt.stars)
		}
	}
}
