package model

import "time"

// Bucket identifies which aggregate counter an active todo contributes to.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketToday
	BucketUpcoming
	BucketInbox
)

// upcomingDays is the width of the upcoming window, counted from tomorrow.
const upcomingDays = 7

// Counts holds the four aggregate counters shown in navigation.
type Counts struct {
	Inbox     int `json:"inbox"`
	Today     int `json:"today"`
	Upcoming  int `json:"upcoming"`
	Completed int `json:"completed"`
}

// Add returns the element-wise sum of c and d.
func (c Counts) Add(d Counts) Counts {
	return Counts{
		Inbox:     c.Inbox + d.Inbox,
		Today:     c.Today + d.Today,
		Upcoming:  c.Upcoming + d.Upcoming,
		Completed: c.Completed + d.Completed,
	}
}

// Negate flips the sign of every counter.
func (c Counts) Negate() Counts {
	return Counts{Inbox: -c.Inbox, Today: -c.Today, Upcoming: -c.Upcoming, Completed: -c.Completed}
}

// Bump adds delta to the counter for b. BucketNone is ignored.
func (c *Counts) Bump(b Bucket, delta int) {
	switch b {
	case BucketToday:
		c.Today += delta
	case BucketUpcoming:
		c.Upcoming += delta
	case BucketInbox:
		c.Inbox += delta
	}
}

// BucketOf returns the bucket a todo belongs to while it is active.
// Today wins over upcoming, which wins over inbox. The completed flag is
// ignored; callers decide whether the todo counts as active.
func BucketOf(t Todo, defaultProjectID string, now time.Time) Bucket {
	if t.DueDate != nil {
		today := startOfDay(now)
		due := startOfDay(t.DueDate.In(now.Location()))
		switch {
		case due.Equal(today):
			return BucketToday
		case due.After(today) && !due.After(today.AddDate(0, 0, upcomingDays)):
			return BucketUpcoming
		}
	}
	if defaultProjectID != "" && t.ProjectKey() == defaultProjectID {
		return BucketInbox
	}
	return BucketNone
}

// CountTodos derives counters from scratch.
func CountTodos(todos []Todo, defaultProjectID string, now time.Time) Counts {
	var c Counts
	for _, t := range todos {
		if t.Completed {
			c.Completed++
			continue
		}
		c.Bump(BucketOf(t, defaultProjectID, now), 1)
	}
	return c
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
