// Package instructor builds the instructor's view of their students.
package instructor

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/qlearn/core/progress"
	"github.com/trezcool/qlearn/core/user"
)

// maxConcurrentSummaries bounds the per-student summary queries run at once.
const maxConcurrentSummaries = 8

type StudentOverview struct {
	user.User
	CompletedCourses int `json:"completedCourses"`
	TotalCourses     int `json:"totalCourses"`
	AverageGrade     int `json:"averageGrade"`
}

type (
	Repository interface {
		// InstructorStudents lists, once each and by name, the students enrolled in one of the
		// instructor's courses or mapped to the instructor.
		InstructorStudents(ctx context.Context, instructorID int) ([]user.User, error)
	}

	Service interface {
		Students(ctx context.Context, instructor user.User) ([]StudentOverview, error)
	}

	service struct {
		repo     Repository
		progress progress.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, progressSvc progress.Service) Service {
	return &service{repo: repo, progress: progressSvc}
}

func (svc *service) Students(ctx context.Context, instructor user.User) ([]StudentOverview, error) {
	students, err := svc.repo.InstructorStudents(ctx, instructor.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	overviews := make([]StudentOverview, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSummaries)
	for i, stdnt := range students {
		i, stdnt := i, stdnt
		g.Go(func() error {
			sum, err := svc.progress.Summary(gctx, stdnt.ID)
			if err != nil {
				return errors.Wrapf(err, "summarizing student %d", stdnt.ID)
			}
			overviews[i] = StudentOverview{
				User:             stdnt,
				CompletedCourses: sum.CompletedCourses,
				TotalCourses:     sum.TotalCourses,
				AverageGrade:     sum.AverageGrade,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return overviews, nil
}
