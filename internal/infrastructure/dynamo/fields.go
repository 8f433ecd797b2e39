package dynamo

// DynamoDB attribute names used in expressions across all repos.
const (
	fieldUserID           = "user_id"
	fieldPhoneNumber      = "phone_number"
	fieldProfileCompleted = "profile_completed"
	fieldUpdatedAt        = "updated_at"
	fieldCreatedAt        = "created_at"
	fieldEntryID          = "entry_id"

	indexUserEntries = "user_id-entry_id-index"
)
