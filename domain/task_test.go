package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueWithin(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	window := 24 * time.Hour

	at := func(d time.Duration) *time.Time {
		due := now.Add(d)
		return &due
	}

	assert.False(t, (&Task{}).DueWithin(now, window), "no due date")
	assert.False(t, (&Task{DueDate: at(-time.Hour)}).DueWithin(now, window), "already past due")
	assert.False(t, (&Task{DueDate: &now}).DueWithin(now, window), "window is exclusive at now")
	assert.True(t, (&Task{DueDate: at(time.Minute)}).DueWithin(now, window))
	assert.True(t, (&Task{DueDate: at(24 * time.Hour)}).DueWithin(now, window), "window is inclusive at the boundary")
	assert.False(t, (&Task{DueDate: at(24*time.Hour + time.Second)}).DueWithin(now, window))

	var nilTask *Task
	assert.False(t, nilTask.DueWithin(now, window))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusActive))
	assert.True(t, ValidStatus(StatusCompleted))
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}

func TestIsCompleted(t *testing.T) {
	assert.True(t, (&Task{Status: StatusCompleted}).IsCompleted())
	assert.False(t, (&Task{Status: StatusActive}).IsCompleted())

	var nilTask *Task
	assert.False(t, nilTask.IsCompleted())
}
