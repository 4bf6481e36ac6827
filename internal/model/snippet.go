// Package model defines the data structures used throughout the application.
package model

import "time"

// Snippet represents a saved code snippet.
//
// ID is assigned by the store on insert and CreatedAt by the repository.
// Neither changes afterwards: there is no update path.
type Snippet struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}
