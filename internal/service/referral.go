package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/referral-service/internal/model"
)

// Field limits, in characters.
const (
	loginMin, loginMax       = 4, 20
	passwordMin, passwordMax = 6, 30
	nameMin, nameMax         = 1, 50
)

// Referral is one validated user + document submission.
type Referral struct {
	Login          string
	Password       string
	Gender         int
	LastName       string
	FirstName      string
	DocumentTypeID int
	// Document is the full submitted document object, compacted.
	Document json.RawMessage
}

type referralEnvelope struct {
	Data *struct {
		Users []json.RawMessage `json:"Users"`
	} `json:"Data"`
}

// ParseReferral extracts the first user and its first document from body
// and validates them. It returns ErrMalformedPayload when the nesting is
// wrong and a *ValidationError for the first field that is missing, has the
// wrong JSON type or is out of range.
func ParseReferral(body []byte) (Referral, error) {
	var env referralEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Data == nil || len(env.Data.Users) == 0 {
		return Referral{}, ErrMalformedPayload
	}
	var user map[string]json.RawMessage
	if err := json.Unmarshal(env.Data.Users[0], &user); err != nil || user == nil {
		return Referral{}, ErrMalformedPayload
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(user["Documents"], &docs); err != nil || len(docs) == 0 {
		return Referral{}, ErrMalformedPayload
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(docs[0], &doc); err != nil || doc == nil {
		return Referral{}, ErrMalformedPayload
	}

	var r Referral
	// each field is type-checked then range-checked before the next one is
	// looked at, so the first failing field in order is the one reported
	if err := stringField(user, "login", &r.Login); err != nil {
		return Referral{}, err
	}
	r.Login = NormalizeLogin(r.Login)
	if err := r.checkField("login"); err != nil {
		return Referral{}, err
	}
	if err := stringField(user, "password", &r.Password); err != nil {
		return Referral{}, err
	}
	if err := r.checkField("password"); err != nil {
		return Referral{}, err
	}
	if json.Unmarshal(user["sex"], &r.Gender) != nil {
		r.Gender = 0
	}
	if err := r.checkField("sex"); err != nil {
		return Referral{}, err
	}
	if err := stringField(user, "lastName", &r.LastName); err != nil {
		return Referral{}, err
	}
	if err := r.checkField("lastName"); err != nil {
		return Referral{}, err
	}
	if err := stringField(user, "firstName", &r.FirstName); err != nil {
		return Referral{}, err
	}
	if err := r.checkField("firstName"); err != nil {
		return Referral{}, err
	}
	if json.Unmarshal(doc["documentType_id"], &r.DocumentTypeID) != nil {
		r.DocumentTypeID = 0
	}
	if err := r.checkField("documentType_id"); err != nil {
		return Referral{}, err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, docs[0]); err != nil {
		return Referral{}, ErrMalformedPayload
	}
	r.Document = compact.Bytes()
	return r, nil
}

// NormalizeLogin is the canonical form of a login, used for both storing
// and looking up users.
func NormalizeLogin(login string) string { return strings.TrimSpace(login) }

var fieldOrder = []string{"login", "password", "sex", "lastName", "firstName", "documentType_id"}

// Validate checks every field against its limits in a fixed order and
// reports the first violation.
func (r Referral) Validate() error {
	for _, f := range fieldOrder {
		if err := r.checkField(f); err != nil {
			return err
		}
	}
	if !json.Valid(r.Document) {
		return ErrMalformedPayload
	}
	return nil
}

func (r Referral) checkField(field string) error {
	switch field {
	case "login":
		return checkLength(field, r.Login, loginMin, loginMax)
	case "password":
		return checkLength(field, r.Password, passwordMin, passwordMax)
	case "sex":
		if r.Gender != model.GenderMale && r.Gender != model.GenderFemale {
			return invalid(field, "sex must be %d (male) or %d (female)", model.GenderMale, model.GenderFemale)
		}
	case "lastName":
		return checkLength(field, r.LastName, nameMin, nameMax)
	case "firstName":
		return checkLength(field, r.FirstName, nameMin, nameMax)
	case "documentType_id":
		if r.DocumentTypeID <= 0 {
			return invalid(field, "documentType_id must be a positive integer")
		}
	}
	return nil
}

// stringField decodes obj[key] into dst. A missing key, null or non-string
// value is a validation failure for key.
func stringField(obj map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := obj[key]
	if !ok || string(raw) == "null" {
		return invalid(key, "%s is required", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return invalid(key, "%s must be a string", key)
	}
	return nil
}

func checkLength(field, v string, lo, hi int) error {
	if n := utf8.RuneCountInString(v); n < lo || n > hi {
		return invalid(field, "%s must be between %d and %d characters", field, lo, hi)
	}
	return nil
}
