// Package models defines the domain types for quicknote.
package models

import "time"

// DisplayLayout is how note timestamps are rendered for people.
const DisplayLayout = "Monday, January 2, 3:04PM"

// Note is one timestamped entry of the notes file.
type Note struct {
	Timestamp time.Time `json:"date"`
	Content   string    `json:"content"`
}

// Display renders the timestamp with DisplayLayout.
func (n Note) Display() string {
	return n.Timestamp.Format(DisplayLayout)
}

// NoteView is the wire shape handed to UI layers.
type NoteView struct {
	Date    time.Time `json:"date"`
	Display string    `json:"display"`
	Content string    `json:"content"`
}

// View projects n into its wire shape.
func (n Note) View() NoteView {
	return NoteView{Date: n.Timestamp, Display: n.Display(), Content: n.Content}
}
