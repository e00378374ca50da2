package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, cid := range evt.CourseIDs {
		if _, ok := repo.db.courses[cid]; !ok {
			return event.Event{}, course.ErrNotFound
		}
	}
	evt.ID = repo.db.nextID("events")
	stored := evt
	stored.CourseIDs = append([]int(nil), evt.CourseIDs...)
	repo.db.events[evt.ID] = &stored
	return evt, nil
}

func (repo *eventRepository) UpcomingEvents(_ context.Context, studentID int, from string, limit int) ([]event.Upcoming, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	upcoming := make([]event.Upcoming, 0)
	for _, evt := range repo.db.events {
		if evt.Date < from {
			continue
		}
		for _, cid := range evt.CourseIDs {
			if _, ok := repo.db.enrollments[pair{studentID, cid}]; !ok {
				continue
			}
			crs := repo.db.courses[cid]
			upcoming = append(upcoming, event.Upcoming{
				ID:          evt.ID,
				Title:       evt.Title,
				Description: evt.Description,
				Date:        evt.Date,
				CourseID:    crs.ID,
				CourseName:  crs.Title,
			})
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		if upcoming[i].Date != upcoming[j].Date {
			return upcoming[i].Date < upcoming[j].Date
		}
		if upcoming[i].ID != upcoming[j].ID {
			return upcoming[i].ID < upcoming[j].ID
		}
		return upcoming[i].CourseID < upcoming[j].CourseID
	})
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}
