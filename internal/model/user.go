package model

import "encoding/json"

// Gender classifiers stored in users.gender_id.
const (
    GenderMale   = 1
    GenderFemale = 2
)

// User types stored in users.type_id.  Referral submissions always write
// TypeReferred; admins are provisioned out of band.
const (
    TypeAdmin    = 1
    TypeReferred = 2
)

// Role names carried in the access token's role claim.
const (
    RoleAdmin    = "ADMIN"
    RoleReferred = "REFERRED"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash is never serialized.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Login        – unique login, the natural key for referral upserts.
//  PasswordHash – bcrypt hashed password.
//  GenderID     – GenderMale or GenderFemale.
//  TypeID       – TypeAdmin or TypeReferred.
//  LastName     – family name.
//  FirstName    – given name.
//  PatrName     – patronymic, nullable.
type User struct {
    ID           uint64  `json:"id"`
    Login        string  `json:"login"`
    PasswordHash string  `json:"-"`
    GenderID     int     `json:"genderId"`
    TypeID       int     `json:"typeId"`
    LastName     string  `json:"lastName"`
    FirstName    string  `json:"firstName"`
    PatrName     *string `json:"patrName"`
}

// Role maps the user's type to the role claim issued at login.
func (u User) Role() string {
    if u.TypeID == TypeAdmin {
        return RoleAdmin
    }
    return RoleReferred
}

// Document models a row in the `documents` table.  Data holds the full
// submitted document object as JSON text.
type Document struct {
    ID     uint64
    UserID uint64
    TypeID int
    Data   json.RawMessage
}

// UserWithDocuments is the read model returned by the detail and listing
// endpoints.  Documents holds each stored payload decoded as JSON.
type UserWithDocuments struct {
    User
    Documents []json.RawMessage `json:"documents"`
}
