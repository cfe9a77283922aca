package entity

import "time"

// Subscription tiers accepted by the users table check constraint.
const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

// Subscriptions lists every valid tier.
var Subscriptions = []string{SubscriptionStarter, SubscriptionPro, SubscriptionBusiness}

// User represents an account row in the `users` table.
// Token holds the single active session; nil means logged out.
// VerificationToken is cleared once the emailed link is consumed.
type User struct {
	ID                int64     `db:"id" json:"id"`
	Email             string    `db:"email" json:"email"`
	PasswordHash      string    `db:"password_hash" json:"-"`
	Token             *string   `db:"token" json:"-"`
	Subscription      string    `db:"subscription" json:"subscription"`
	AvatarURL         string    `db:"avatar_url" json:"avatarURL"`
	Verify            bool      `db:"verify" json:"verify"`
	VerificationToken *string   `db:"verification_token" json:"-"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// PublicView is the projection returned by signup, login and current.
type PublicView struct {
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
}

func (u *User) Public() PublicView {
	return PublicView{Email: u.Email, Subscription: u.Subscription}
}
