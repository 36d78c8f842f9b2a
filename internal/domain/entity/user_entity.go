package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Password holds the transformed credential and is never serialized.
// IsDeleted marks a soft-deleted record; such rows stay retrievable by id.
type User struct {
	ID           string     `json:"id"`
	UserName     string     `json:"userName"`
	Password     string     `json:"-"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Role         string     `json:"role"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	ModifiedDate *time.Time `json:"modifiedDate"`
	CreatedDate  time.Time  `json:"createdDate"`
	IsActive     bool       `json:"isActive"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
	IsDeleted    bool       `json:"isDeleted"`
}

// Touch stamps ModifiedDate with t.
func (u *User) Touch(t time.Time) {
	ts := t.UTC()
	u.ModifiedDate = &ts
}

// PagedResult is a single page of a listing.
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
}
