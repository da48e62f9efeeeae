package oura

import (
	"context"
	"fmt"

	"github.com/custodia-labs/hrwatch/internal/core/domain"
)

const personalInfoPath = "/v2/usercollection/personal_info"

// PersonalInfo is the subset of the account profile hrwatch uses.
type PersonalInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// PersonalInfo returns the profile of the token's owner. The email is the
// user id hrwatch stores credentials under.
func (c *Client) PersonalInfo(ctx context.Context, accessToken string) (*PersonalInfo, error) {
	var info PersonalInfo
	if err := c.get(ctx, accessToken, personalInfoPath, nil, &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, fmt.Errorf("%w: personal info has no email (is the email scope granted?)", domain.ErrPermanent)
	}
	return &info, nil
}
