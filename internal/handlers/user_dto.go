package handlers

import (
	"encoding/json"

	"github.com/sbilibin2017/culinary-connect/internal/models"
	"github.com/sbilibin2017/culinary-connect/internal/services"
)

// UserResponse is the public profile of a user
// swagger:model UserResponse
type UserResponse struct {
	ID          int64   `json:"id" example:"1"`
	Username    string  `json:"username" example:"chef1"`
	Email       string  `json:"email" example:"chef1@example.com"`
	FirstName   string  `json:"first_name" example:"Julia"`
	LastName    string  `json:"last_name" example:"Child"`
	Bio         string  `json:"bio" example:"Home cook"`
	DateOfBirth *string `json:"date_of_birth" example:"1990-08-15"`
}

func newUserResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
	}
	if u.DateOfBirth != nil {
		dob := u.DateOfBirth.Format(services.DateLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}

// ProfileRequest carries writable profile fields. Absent fields are left untouched.
// swagger:model ProfileRequest
type ProfileRequest struct {
	Email     *string `json:"email" example:"chef1@example.com"`
	FirstName *string `json:"first_name" example:"Julia"`
	LastName  *string `json:"last_name" example:"Child"`
	Bio       *string `json:"bio" example:"Home cook"`
	// YYYY-MM-DD, null clears it
	DateOfBirth json.RawMessage `json:"date_of_birth,omitempty" swaggertype:"string" example:"1990-08-15"`
}

// toUpdate converts the request, mapping a null date of birth to "clear".
func (p ProfileRequest) toUpdate() (models.ProfileUpdate, error) {
	update := models.ProfileUpdate{
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Bio:       p.Bio,
	}
	if len(p.DateOfBirth) == 0 {
		return update, nil
	}

	dob := ""
	if string(p.DateOfBirth) != "null" {
		if err := json.Unmarshal(p.DateOfBirth, &dob); err != nil || dob == "" {
			verr := &services.ValidationError{}
			verr.Add("date_of_birth", "date has wrong format, use YYYY-MM-DD")
			return update, verr
		}
	}
	update.DateOfBirth = &dob
	return update, nil
}
