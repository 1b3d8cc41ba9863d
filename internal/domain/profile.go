package domain

import "time"

// Profile is the campus-facing profile for an account. Accounts themselves
// (credentials, sessions) live in the external identity provider; this table
// only references them by user_id. The sole write the verification subsystem
// performs here is flipping is_email_verified from false to true.
type Profile struct {
	UserID          string    `json:"user_id" dynamodbav:"user_id"`
	FullName        string    `json:"full_name" dynamodbav:"full_name"`
	Bio             string    `json:"bio,omitempty" dynamodbav:"bio"`
	Campus          string    `json:"campus,omitempty" dynamodbav:"campus"`
	YearOfStudy     int       `json:"year_of_study,omitempty" dynamodbav:"year_of_study"`
	Interests       []string  `json:"interests,omitempty" dynamodbav:"interests"`
	AvatarKey       string    `json:"-" dynamodbav:"avatar_key"`
	AvatarURL       string    `json:"avatar_url,omitempty" dynamodbav:"-"`
	IsEmailVerified bool      `json:"is_email_verified" dynamodbav:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

type UpdateProfileRequest struct {
	FullName    *string   `json:"full_name" validate:"omitempty,min=1,max=100"`
	Bio         *string   `json:"bio" validate:"omitempty,max=500"`
	Campus      *string   `json:"campus" validate:"omitempty,max=60"`
	YearOfStudy *int      `json:"year_of_study" validate:"omitempty,gte=1,lte=6"`
	Interests   *[]string `json:"interests" validate:"omitempty,max=20,dive,min=1,max=40"`
}
