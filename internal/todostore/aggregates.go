package todostore

import "github.com/nhle/todosync/internal/model"

// The helpers below adjust the derived aggregates in place. Every caller
// holds s.mu.

// bumpProject adds delta to the todo count of project id, never going
// below zero. Unknown or empty ids are ignored.
func (s *Store) bumpProject(id string, delta int) {
	if id == "" || delta == 0 {
		return
	}
	for i := range s.projects {
		if s.projects[i].ID != id {
			continue
		}
		s.projects[i].TodoCount += delta
		if s.projects[i].TodoCount < 0 {
			s.projects[i].TodoCount = 0
		}
		return
	}
}

// bumpLabels adds delta to each named label. Missing labels are created on
// increment; a label reaching zero is removed.
func (s *Store) bumpLabels(names []string, delta int) {
	for _, name := range model.NormalizeLabels(names) {
		s.bumpLabel(name, delta)
	}
}

func (s *Store) bumpLabel(name string, delta int) {
	for i := range s.labels {
		if s.labels[i].Name != name {
			continue
		}
		s.labels[i].Count += delta
		if s.labels[i].Count <= 0 {
			s.labels = append(s.labels[:i], s.labels[i+1:]...)
		}
		return
	}
	if delta > 0 {
		s.labels = append(s.labels, model.Label{Name: name, Count: delta})
	}
}

// activeLabels returns the labels t contributes to the label aggregate.
// Completed todos contribute none.
func activeLabels(t model.Todo) []string {
	if t.Completed {
		return nil
	}
	return t.Labels
}

// reconcileAggregates moves project and label counts from the confirmed
// copy of a todo to its new server copy.
func (s *Store) reconcileAggregates(before, after model.Todo) {
	if before.ProjectKey() != after.ProjectKey() {
		s.bumpProject(before.ProjectKey(), -1)
		s.bumpProject(after.ProjectKey(), 1)
	}

	oldSet := make(map[string]bool)
	for _, l := range activeLabels(before) {
		oldSet[l] = true
	}
	newSet := make(map[string]bool)
	for _, l := range activeLabels(after) {
		newSet[l] = true
	}
	for _, l := range model.NormalizeLabels(activeLabels(before)) {
		if !newSet[l] {
			s.bumpLabel(l, -1)
		}
	}
	for _, l := range model.NormalizeLabels(activeLabels(after)) {
		if !oldSet[l] {
			s.bumpLabel(l, 1)
		}
	}
}

// completionDelta computes the counter change for flipping the completed
// flag of before into after, clamped so no counter goes negative. The
// returned delta is exactly what should be added to s.counts. Callers only
// ask when the flag actually flips.
func (s *Store) completionDelta(before, after model.Todo) model.Counts {
	var d model.Counts

	defaultID := model.DefaultProjectID(s.projects)
	now := s.now()

	if after.Completed {
		d.Completed = 1
		b := model.BucketOf(before, defaultID, now)
		if bucketValue(s.counts, b) > 0 {
			d.Bump(b, -1)
		}
		return d
	}

	if s.counts.Completed > 0 {
		d.Completed = -1
	}
	d.Bump(model.BucketOf(after, defaultID, now), 1)
	return d
}

// applyCounts adds delta to the counters, flooring each at zero.
func (s *Store) applyCounts(delta model.Counts) {
	c := s.counts.Add(delta)
	s.counts = model.Counts{
		Inbox:     max(c.Inbox, 0),
		Today:     max(c.Today, 0),
		Upcoming:  max(c.Upcoming, 0),
		Completed: max(c.Completed, 0),
	}
}

func bucketValue(c model.Counts, b model.Bucket) int {
	switch b {
	case model.BucketToday:
		return c.Today
	case model.BucketUpcoming:
		return c.Upcoming
	case model.BucketInbox:
		return c.Inbox
	}
	return 0
}
