package enroll

import "time"

type (
	// Progress tracks a student's advancement through a course's content.
	Progress struct {
		CompletedModules     []string `json:"completed_modules"`
		CompletedLessons     []string `json:"completed_lessons"`
		CompletionPercentage float64  `json:"completion_percentage"`
	}

	// Enrollment is the fact that a student may access a course.
	// Unique per (StudentID, CourseID); enrolling twice yields the same record.
	Enrollment struct {
		ID         string    `json:"id"`
		StudentID  string    `json:"student_id"`
		CourseID   string    `json:"course_id"`
		EnrolledAt time.Time `json:"enrolled_at"` // UTC
		Progress   Progress  `json:"progress"`
	}
)

func (p Progress) HasModule(id string) bool { return contains(p.CompletedModules, id) }
func (p Progress) HasLesson(id string) bool { return contains(p.CompletedLessons, id) }

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
