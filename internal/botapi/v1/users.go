package botapi

import "context"

type User struct {
	Id           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

func (c *client) GetMe(ctx context.Context) (*User, *APIError, error) {
	response := new(User)
	apiErr, err := c.execute(ctx, "getMe", struct{}{}, response)
	if err != nil || apiErr != nil {
		return nil, apiErr, err
	}
	return response, nil, nil
}
