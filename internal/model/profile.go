package model

import "time"

// Profile mirrors the 'profiles' table: the role store mapping an identity
// provider user id to a privilege tier.  Rows are provisioned out of band
// (the provider's admin console seeds a profile per invited editor); this
// service only ever reads them.
type Profile struct {
	ID        string    // profiles.id (identity provider user id)
	Email     string    // profiles.email
	Role      string    // profiles.role (reader|editor|admin)
	CreatedAt time.Time // profiles.created_at
	UpdatedAt time.Time // profiles.updated_at
}
