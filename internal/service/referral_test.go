package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(user map[string]any) []byte {
	b, _ := json.Marshal(map[string]any{"Data": map[string]any{"Users": []any{user}}})
	return b
}

func validUser() map[string]any {
	return map[string]any{
		"login":     "alice1",
		"password":  "secret1",
		"sex":       1,
		"lastName":  "Doe",
		"firstName": "Alice",
		"Documents": []any{map[string]any{"documentType_id": 3, "num": "AB1"}},
	}
}

func TestParseReferral_Valid(t *testing.T) {
	r, err := ParseReferral(payload(validUser()))
	require.NoError(t, err)
	assert.Equal(t, "alice1", r.Login)
	assert.Equal(t, "secret1", r.Password)
	assert.Equal(t, 1, r.Gender)
	assert.Equal(t, "Doe", r.LastName)
	assert.Equal(t, "Alice", r.FirstName)
	assert.Equal(t, 3, r.DocumentTypeID)
	assert.JSONEq(t, `{"documentType_id":3,"num":"AB1"}`, string(r.Document))
}

func TestParseReferral_KeepsFullDocumentCompacted(t *testing.T) {
	body := []byte(`{"Data":{"Users":[{"login":"alice1","password":"secret1","sex":2,"lastName":"Doe","firstName":"Alice",
		"Documents":[ { "documentType_id": 3, "num": "AB1", "issued": {"by": "X", "year": 2020} } ]}]}}`)
	r, err := ParseReferral(body)
	require.NoError(t, err)
	assert.Equal(t, `{"documentType_id":3,"num":"AB1","issued":{"by":"X","year":2020}}`, string(r.Document))
}

func TestParseReferral_CountsCharactersNotBytes(t *testing.T) {
	u := validUser()
	u["lastName"] = strings.Repeat("Ж", 50) // 100 bytes
	u["login"] = "юзер"                     // 4 characters
	_, err := ParseReferral(payload(u))
	require.NoError(t, err)
}

func TestParseReferral_Malformed(t *testing.T) {
	noDocs := validUser()
	delete(noDocs, "Documents")
	emptyDocs := validUser()
	emptyDocs["Documents"] = []any{}
	scalarDoc := validUser()
	scalarDoc["Documents"] = []any{"passport"}

	cases := map[string][]byte{
		"not json":        []byte("{"),
		"no Data":         []byte(`{"Users":[]}`),
		"no Users":        []byte(`{"Data":{}}`),
		"empty Users":     []byte(`{"Data":{"Users":[]}}`),
		"user not object": []byte(`{"Data":{"Users":[42]}}`),
		"no Documents":    payload(noDocs),
		"empty Documents": payload(emptyDocs),
		"scalar document": payload(scalarDoc),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReferral(body)
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestParseReferral_FieldValidation(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(u map[string]any)
		field string
	}{
		{"login too short", func(u map[string]any) { u["login"] = "ab" }, "login"},
		{"login too long", func(u map[string]any) { u["login"] = strings.Repeat("a", 21) }, "login"},
		{"login missing", func(u map[string]any) { delete(u, "login") }, "login"},
		{"login not string", func(u map[string]any) { u["login"] = 12345 }, "login"},
		{"password too short", func(u map[string]any) { u["password"] = "12345" }, "password"},
		{"password too long", func(u map[string]any) { u["password"] = strings.Repeat("p", 31) }, "password"},
		{"sex zero", func(u map[string]any) { u["sex"] = 0 }, "sex"},
		{"sex three", func(u map[string]any) { u["sex"] = 3 }, "sex"},
		{"sex string", func(u map[string]any) { u["sex"] = "1" }, "sex"},
		{"sex missing", func(u map[string]any) { delete(u, "sex") }, "sex"},
		{"lastName empty", func(u map[string]any) { u["lastName"] = "" }, "lastName"},
		{"lastName too long", func(u map[string]any) { u["lastName"] = strings.Repeat("x", 51) }, "lastName"},
		{"firstName empty", func(u map[string]any) { u["firstName"] = "" }, "firstName"},
		{"firstName null", func(u map[string]any) { u["firstName"] = nil }, "firstName"},
		{"document type missing", func(u map[string]any) {
			u["Documents"] = []any{map[string]any{"num": "AB1"}}
		}, "documentType_id"},
		{"document type negative", func(u map[string]any) {
			u["Documents"] = []any{map[string]any{"documentType_id": -1}}
		}, "documentType_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := validUser()
			tc.mut(u)
			_, err := ParseReferral(payload(u))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.Contains(t, ve.Message, tc.field)
		})
	}
}

func TestParseReferral_BoundaryLengthsAccepted(t *testing.T) {
	for _, n := range []int{4, 20} {
		u := validUser()
		u["login"] = strings.Repeat("l", n)
		u["password"] = strings.Repeat("p", 6)
		u["firstName"] = "A"
		u["lastName"] = strings.Repeat("z", 50)
		_, err := ParseReferral(payload(u))
		assert.NoError(t, err, fmt.Sprintf("login length %d", n))
	}
}

func TestParseReferral_ReportsFirstViolatedField(t *testing.T) {
	u := validUser()
	u["password"] = "x"
	u["firstName"] = ""
	_, err := ParseReferral(payload(u))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)
}

func TestParseReferral_LoginLengthMessage(t *testing.T) {
	u := validUser()
	u["login"] = "ab"
	_, err := ParseReferral(payload(u))
	require.EqualError(t, err, "login must be between 4 and 20 characters")
}

func TestParseReferral_TrimsLogin(t *testing.T) {
	u := validUser()
	u["login"] = "  bob1 "
	r, err := ParseReferral(payload(u))
	require.NoError(t, err)
	assert.Equal(t, "bob1", r.Login)

	u["login"] = "    "
	_, err = ParseReferral(payload(u))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "login", ve.Field)
}

func TestValidate_ChecksFieldsInOrder(t *testing.T) {
	r := Referral{Login: "alice1", Password: "x", Gender: 9, LastName: "Doe", FirstName: "", DocumentTypeID: 3,
		Document: []byte(`{"documentType_id":3}`)}
	var ve *ValidationError
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "password", ve.Field)

	r.Password = "secret1"
	require.ErrorAs(t, r.Validate(), &ve)
	assert.Equal(t, "sex", ve.Field)
}
