// Package model defines the data structures used throughout the application.
package model

import "time"

// User is an account created on the first successful Google sign-in.
//
// GoogleID is the provider's stable subject identifier and is unique; ID is
// our own xid so primary keys are not tied to a third party's numbering.
// Profile fields are captured once at creation and never refreshed.
//
// JSON uses "_id" because the single-page client keys everything on it.
type User struct {
	ID        string    `json:"_id"`
	GoogleID  string    `json:"googleId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserSummary is the public slice of a User embedded in recipes and ratings.
type UserSummary struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Summary returns the public projection of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}
