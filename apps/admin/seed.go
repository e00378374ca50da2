package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/course"
	"github.com/trezcool/qlearn/core/event"
	"github.com/trezcool/qlearn/core/mapping"
	"github.com/trezcool/qlearn/core/user"
	appfs "github.com/trezcool/qlearn/fs"
)

type (
	seedData struct {
		Password    string           `yaml:"password"`
		Accounts    []seedAccount    `yaml:"accounts"`
		ParentLinks []seedParentLink `yaml:"parentLinks"`
		Mappings    []seedMapping    `yaml:"mappings"`
		Courses     []seedCourse     `yaml:"courses"`
		Events      []seedEvent      `yaml:"events"`
	}

	seedAccount struct {
		Name           string `yaml:"name"`
		Email          string `yaml:"email"`
		Role           string `yaml:"role"`
		ContactNumber  string `yaml:"contactNumber"`
		WhatsappNumber string `yaml:"whatsappNumber"`
		Technology     string `yaml:"technology"`
	}

	seedParentLink struct {
		Parent   string   `yaml:"parent"`
		Students []string `yaml:"students"`
	}

	seedMapping struct {
		Teacher    string `yaml:"teacher"`
		Student    string `yaml:"student"`
		Technology string `yaml:"technology"`
	}

	seedCourse struct {
		Title       string       `yaml:"title"`
		Description string       `yaml:"description"`
		Instructor  string       `yaml:"instructor"`
		Students    []string     `yaml:"students"`
		Modules     []seedModule `yaml:"modules"`
	}

	seedModule struct {
		Title   string       `yaml:"title"`
		Lessons []seedLesson `yaml:"lessons"`
	}

	seedLesson struct {
		Title    string    `yaml:"title"`
		Content  string    `yaml:"content"`
		VideoURL string    `yaml:"videoUrl"`
		Test     *seedTest `yaml:"test"`
	}

	seedTest struct {
		Title        string         `yaml:"title"`
		PassingScore int            `yaml:"passingScore"`
		Questions    []seedQuestion `yaml:"questions"`
	}

	seedQuestion struct {
		Question      string   `yaml:"question"`
		Options       []string `yaml:"options"`
		CorrectAnswer int      `yaml:"correctAnswer"`
	}

	seedEvent struct {
		Title       string   `yaml:"title"`
		Description string   `yaml:"description"`
		DaysFromNow int      `yaml:"daysFromNow"`
		Courses     []string `yaml:"courses"`
	}
)

// seedStats counts what a seed run created.
type seedStats struct {
	Users, Courses, Enrollments, Tests, Events int
}

func (cli *commandLine) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo accounts, courses and events; existing accounts and courses are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadSeed(file)
			if err != nil {
				return err
			}
			stats, err := cli.seed(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "Seeded %d users, %d courses, %d enrollments, %d tests, %d events\n",
				stats.Users, stats.Courses, stats.Enrollments, stats.Tests, stats.Events)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "a seed file to load instead of the embedded one")
	return cmd
}

func loadSeed(file string) (seedData, error) {
	var (
		raw []byte
		err error
	)
	if file != "" {
		raw, err = os.ReadFile(file)
	} else {
		raw, err = fs.ReadFile(appfs.FS, appfs.SeedFile)
	}
	if err != nil {
		return seedData{}, errors.Wrap(err, "reading seed")
	}

	var data seedData
	if err = yaml.Unmarshal(raw, &data); err != nil {
		return seedData{}, errors.Wrap(err, "parsing seed")
	}
	return data, nil
}

func (cli *commandLine) seed(ctx context.Context, data seedData) (seedStats, error) {
	var stats seedStats
	now := time.Now().UTC()

	ids := make(map[string]int, len(data.Accounts)) // email -> id
	for _, acc := range data.Accounts {
		email := core.CleanString(acc.Email, true /* lower */)
		usr, err := cli.users.GetUser(ctx, user.GetFilter{Email: email})
		if err != nil {
			if !core.IsNotFound(err) {
				return stats, err
			}
			usr = user.User{
				Name:           acc.Name,
				Email:          email,
				Role:           acc.Role,
				ContactNumber:  acc.ContactNumber,
				WhatsappNumber: acc.WhatsappNumber,
				Technology:     acc.Technology,
				IsActive:       true,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err = usr.SetPassword(data.Password); err != nil {
				return stats, err
			}
			if usr, err = cli.users.CreateUser(ctx, usr); err != nil {
				return stats, errors.Wrapf(err, "creating %s", email)
			}
			stats.Users++
		}
		ids[email] = usr.ID
	}
	userID := func(email string) (int, error) {
		if id, ok := ids[core.CleanString(email, true /* lower */)]; ok {
			return id, nil
		}
		return 0, errors.Errorf("%s is not a seeded account", email)
	}

	for _, link := range data.ParentLinks {
		parentID, err := userID(link.Parent)
		if err != nil {
			return stats, err
		}
		for _, email := range link.Students {
			studentID, err := userID(email)
			if err != nil {
				return stats, err
			}
			if err = cli.parents.LinkParent(ctx, parentID, studentID); err != nil {
				return stats, errors.Wrap(err, "linking parent")
			}
		}
	}

	for _, m := range data.Mappings {
		teacherID, err := userID(m.Teacher)
		if err != nil {
			return stats, err
		}
		studentID, err := userID(m.Student)
		if err != nil {
			return stats, err
		}
		mp := mapping.Mapping{TeacherID: teacherID, StudentID: studentID, Technology: m.Technology, AssignedDate: now}
		if _, err = cli.mappings.SaveMapping(ctx, mp); err != nil {
			return stats, errors.Wrap(err, "saving mapping")
		}
	}

	existing, err := cli.courses.QueryCourses(ctx, course.QueryFilter{})
	if err != nil {
		return stats, errors.Wrap(err, "querying courses")
	}
	courseIDs := make(map[string]int, len(existing)) // title -> id
	for _, crs := range existing {
		courseIDs[crs.Title] = crs.ID
	}
	created := make(map[int]bool)

	for _, sc := range data.Courses {
		courseID, ok := courseIDs[sc.Title]
		if !ok {
			if courseID, err = cli.seedCourse(ctx, sc, userID, now, &stats); err != nil {
				return stats, err
			}
			courseIDs[sc.Title] = courseID
			created[courseID] = true
		}
		for _, email := range sc.Students {
			studentID, err := userID(email)
			if err != nil {
				return stats, err
			}
			if err = cli.courses.Enroll(ctx, studentID, courseID); err != nil {
				return stats, errors.Wrap(err, "enrolling student")
			}
			stats.Enrollments++
		}
	}

	// events are only scheduled along with their courses, so reseeding does not repeat them
	today := core.Today()
	for _, se := range data.Events {
		evt := event.Event{
			Title:       se.Title,
			Description: se.Description,
			Date:        today.AddDate(0, 0, se.DaysFromNow).Format(core.DateLayout),
			CreatedBy:   ids[core.CleanString(firstInstructor(data, se), true)],
			CreatedAt:   now,
		}
		fresh := true
		for _, title := range se.Courses {
			id, ok := courseIDs[title]
			if !ok {
				return stats, errors.Errorf("event %q: unknown course %q", se.Title, title)
			}
			fresh = fresh && created[id]
			evt.CourseIDs = append(evt.CourseIDs, id)
		}
		if !fresh {
			continue
		}
		if _, err = cli.events.CreateEvent(ctx, evt); err != nil {
			return stats, errors.Wrap(err, "creating event")
		}
		stats.Events++
	}
	return stats, nil
}

func (cli *commandLine) seedCourse(ctx context.Context, sc seedCourse, userID func(string) (int, error), now time.Time, stats *seedStats) (int, error) {
	instructorID, err := userID(sc.Instructor)
	if err != nil {
		return 0, err
	}

	nc := course.NewCourse{Title: sc.Title, Description: sc.Description}
	for _, sm := range sc.Modules {
		nm := course.NewModule{Title: sm.Title}
		for _, sl := range sm.Lessons {
			nm.Lessons = append(nm.Lessons, course.NewLesson{Title: sl.Title, Content: sl.Content, VideoURL: sl.VideoURL})
		}
		nc.Modules = append(nc.Modules, nm)
	}
	detail, err := cli.courses.CreateCourse(ctx, course.Course{
		Title:        sc.Title,
		Description:  sc.Description,
		InstructorID: instructorID,
		CreatedAt:    now,
	}, nc.Build())
	if err != nil {
		return 0, errors.Wrapf(err, "creating course %q", sc.Title)
	}
	stats.Courses++

	for i, sm := range sc.Modules {
		for j, sl := range sm.Lessons {
			if sl.Test == nil {
				continue
			}
			ti := course.TestInput{Title: sl.Test.Title, PassingScore: sl.Test.PassingScore}
			for _, q := range sl.Test.Questions {
				ti.Questions = append(ti.Questions, course.QuestionInput{Text: q.Question, Options: q.Options, CorrectAnswer: q.CorrectAnswer})
			}
			lessonID := detail.Modules[i].Lessons[j].ID
			if _, err = cli.courses.SaveLessonTest(ctx, ti.Build(lessonID)); err != nil {
				return 0, errors.Wrapf(err, "saving test of lesson %d", lessonID)
			}
			stats.Tests++
		}
	}
	return detail.ID, nil
}

// firstInstructor is the instructor of the first course of se.
func firstInstructor(data seedData, se seedEvent) string {
	for _, title := range se.Courses {
		for _, sc := range data.Courses {
			if sc.Title == title {
				return sc.Instructor
			}
		}
	}
	return ""
}
