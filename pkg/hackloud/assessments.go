package hackloud

import (
	"context"
	"net/http"
	"net/url"

	"github.com/me/hackloud/internal/validate"
	"github.com/me/hackloud/pkg/model"
)

// ListAssessments returns the public assessments, newest first.
func (c *Client) ListAssessments(ctx context.Context) ([]model.Assessment, error) {
	var list []model.Assessment
	if err := c.call(ctx, request{op: "ListAssessments", method: http.MethodGet, path: "/assessments"}, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CreateAssessment posts a rating for the service.
func (c *Client) CreateAssessment(ctx context.Context, a model.NewAssessment, token string) error {
	const op = "CreateAssessment"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	if errs := validate.Struct(a); len(errs) > 0 {
		return NewValidationError(op, errs)
	}
	r, err := jsonRequest(op, http.MethodPost, "/assessments", token, a)
	if err != nil {
		return err
	}
	return c.call(ctx, r, nil)
}

// DeleteAssessment removes an assessment. The backend only allows admins.
func (c *Client) DeleteAssessment(ctx context.Context, id, token string) error {
	const op = "DeleteAssessment"
	if err := c.checkToken(op, token); err != nil {
		return err
	}
	return c.call(ctx, request{op: op, method: http.MethodDelete, path: "/assessments/" + url.PathEscape(id), token: token}, nil)
}
