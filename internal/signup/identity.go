// File: internal/signup/identity.go
package signup

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Identity is the generated persona a run signs up with. BirthDay stays at
// or below 28 so the date is valid in every month.
type Identity struct {
	FirstName  string
	LastName   string
	BirthDay   int
	BirthMonth int
	BirthYear  int
	Gender     string
	Username   string
	Password   string
}

// NewIdentity generates a fresh random persona. The username is derived
// from the name and birth date so it reads plausibly on the signup form.
func NewIdentity() Identity {
	id := Identity{
		FirstName:  gofakeit.FirstName(),
		LastName:   gofakeit.LastName(),
		BirthDay:   gofakeit.Number(1, 28),
		BirthMonth: gofakeit.Number(1, 12),
		BirthYear:  gofakeit.Number(1985, 2005),
		Gender:     gofakeit.RandomString([]string{"male", "female"}),
		Password:   gofakeit.Password(true, true, true, true, false, 16),
	}
	id.Username = id.deriveUsername()
	return id
}

// deriveUsername builds the base username: name plus zero-padded birth
// month and year, lowercased and stripped of anything non-alphanumeric.
func (id Identity) deriveUsername() string {
	base := strings.ToLower(id.FirstName + id.LastName)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	return fmt.Sprintf("%s%02d%d", base, id.BirthMonth, id.BirthYear)
}

// RegenerateUsername produces an alternative username after the current one
// was rejected as taken.
func (id *Identity) RegenerateUsername() {
	id.Username = fmt.Sprintf("%s%d", id.deriveUsername(), gofakeit.Number(10, 9999))
}

// Email joins the username with the mail domain.
func (id Identity) Email(domain string) string {
	return id.Username + "@" + domain
}
