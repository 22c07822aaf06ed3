package core

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of expense dates.
const DateLayout = "2006-01-02"

// MaxDescriptionLength bounds expense descriptions, in characters.
const MaxDescriptionLength = 200

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Expense struct {
		ID          int64
		UserID      int64
		Description string
		Amount      Money
		Category    string
		Date        Date
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// ExpenseInput is the unvalidated form of an expense as submitted by a user.
	ExpenseInput struct {
		Description string
		Amount      string
		Category    string
		Date        string
	}

	// Principal identifies the authenticated user performing an operation.
	// The zero value is unauthenticated.
	Principal struct {
		UserID int64
	}
)

// Authenticated reports whether p carries a user id.
func (p Principal) Authenticated() bool {
	return p.UserID > 0
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len([]rune(e.Description)) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Parse validates the input and converts it into an Expense owned by nobody yet.
// Field values are trimmed.
func (in ExpenseInput) Parse() (Expense, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Expense{}, err
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Expense{}, err
	}
	e := Expense{
		Description: strings.TrimSpace(in.Description),
		Amount:      amount,
		Category:    strings.TrimSpace(in.Category),
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// NormalizeEmail trims the address and checks that it parses as a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}

// ValidatePassword rejects empty passwords and those bcrypt would truncate.
func ValidatePassword(password string) error {
	if password == "" || len(password) > MaxPasswordBytes {
		return ErrInvalidPassword
	}
	return nil
}
