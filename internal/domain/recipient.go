package domain

// DemoUserID is the user id clients send to address the demo recipient.
const DemoUserID = "demo-user"

// Recipient is who a notification is addressed to. It is either a
// RealIdentity or a DemoIdentity; callers switch on the concrete type.
type Recipient interface {
	recipient()
}

// RealIdentity is a persisted identity. Preferences and the notification log apply.
type RealIdentity struct {
	UserID      string
	PhoneNumber string
}

// DemoIdentity is the unauthenticated demo recipient. It is never persisted
// and always passes the preference gate.
type DemoIdentity struct {
	PhoneNumber string
}

func (RealIdentity) recipient() {}
func (DemoIdentity) recipient() {}

// RecipientUserID returns the user id a recipient is logged under.
func RecipientUserID(r Recipient) string {
	switch v := r.(type) {
	case RealIdentity:
		return v.UserID
	case DemoIdentity:
		return DemoUserID
	default:
		return ""
	}
}
