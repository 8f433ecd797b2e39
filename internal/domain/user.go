package domain

import "time"

// Identity is the durable user record. PhoneNumber is unique across identities,
// enforced by a phone claim row written in the same transaction.
type Identity struct {
	UserID           string    `json:"id" dynamodbav:"user_id"`
	PhoneNumber      string    `json:"phone_number" dynamodbav:"phone_number,omitempty"`
	ProfileCompleted bool      `json:"profile_completed" dynamodbav:"profile_completed"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

// PhoneClaim binds a phone number to exactly one identity.
type PhoneClaim struct {
	PhoneNumber string    `dynamodbav:"phone_number"`
	UserID      string    `dynamodbav:"user_id"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
}

// Profile is the profile row keyed by the effective identity id.
// AIAnalysis is always null; scoring is not computed here.
type Profile struct {
	UserID            string                 `json:"user_id" dynamodbav:"user_id"`
	PhotoURL          *string                `json:"photo_url" dynamodbav:"photo_url"`
	QuestionnaireData map[string]interface{} `json:"questionnaire_data" dynamodbav:"questionnaire_data"`
	AIAnalysis        interface{}            `json:"ai_analysis" dynamodbav:"ai_analysis"`
	CreatedAt         time.Time              `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time              `json:"updated" dynamodbav:"updated_at"`
}

type CreateProfileRequest struct {
	UserID            string                 `json:"userId" validate:"required"`
	PhotoURL          *string                `json:"photoUrl"`
	QuestionnaireData map[string]interface{} `json:"questionnaireData" validate:"required"`
	PhoneNumber       *string                `json:"phoneNumber"`
}
