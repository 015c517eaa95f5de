package services

import (
	"net/mail"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/sbilibin2017/culinary-connect/internal/models"
)

// DateLayout is the wire format of dates.
const DateLayout = "2006-01-02"

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

func validateUsername(username string, verr *ValidationError) {
	switch {
	case username == "":
		verr.Add("username", "this field may not be blank")
	case utf8.RuneCountInString(username) > 150:
		verr.Add("username", "ensure this field has no more than 150 characters")
	case !usernamePattern.MatchString(username):
		verr.Add("username", "enter a valid username: letters, numbers and @/./+/-/_ only")
	}
}

// applyProfile overlays the supplied fields of update onto base.
func applyProfile(base models.Profile, update models.ProfileUpdate, verr *ValidationError) models.Profile {
	if update.Email != nil {
		email := *update.Email
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				verr.Add("email", "enter a valid email address")
			}
		}
		if len(email) > 254 {
			verr.Add("email", "ensure this field has no more than 254 characters")
		}
		base.Email = email
	}
	if update.FirstName != nil {
		if utf8.RuneCountInString(*update.FirstName) > 150 {
			verr.Add("first_name", "ensure this field has no more than 150 characters")
		}
		base.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		if utf8.RuneCountInString(*update.LastName) > 150 {
			verr.Add("last_name", "ensure this field has no more than 150 characters")
		}
		base.LastName = *update.LastName
	}
	if update.Bio != nil {
		base.Bio = *update.Bio
	}
	if update.DateOfBirth != nil {
		if *update.DateOfBirth == "" {
			base.DateOfBirth = nil
		} else if dob, err := time.Parse(DateLayout, *update.DateOfBirth); err != nil {
			verr.Add("date_of_birth", "date has wrong format, use YYYY-MM-DD")
		} else {
			base.DateOfBirth = &dob
		}
	}
	return base
}
