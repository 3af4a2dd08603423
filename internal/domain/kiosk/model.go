// Package kiosk rotates the media shown on the idle kiosk screen. Items
// carry a kind tag instead of subtypes so the rotation logic never
// branches on concrete media classes.
package kiosk

import (
	"time"
)

// Kind discriminates what an item's URL points at.
type Kind string

const (
	KindImage   Kind = "image"
	KindVideo   Kind = "video"
	KindWebsite Kind = "website"
)

// Item is one entry of the rotation.
type Item struct {
	ID       int64      `db:"id" json:"id"`
	Name     string     `db:"name" json:"name"`
	Kind     Kind       `db:"kind" json:"kind"`
	URL      string     `db:"url" json:"url"`
	Active   bool       `db:"active" json:"active"`
	Ordering int        `db:"ordering" json:"ordering"`
	Start    *time.Time `db:"start_at" json:"start,omitempty"`
	End      *time.Time `db:"end_at" json:"end,omitempty"`
}

// ShownAt reports whether the item's display window covers t. A nil
// endpoint leaves that side open.
func (i *Item) ShownAt(t time.Time) bool {
	if !i.Active {
		return false
	}
	if i.Start != nil && t.Before(*i.Start) {
		return false
	}
	if i.End != nil && t.After(*i.End) {
		return false
	}
	return true
}
