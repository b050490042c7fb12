package inmemdb

import (
	"sync"

	"github.com/thisismugil/edutech/core/chat"
	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
)

// in-memory store backing tests and local hacking; not for production use.
type (
	DB struct {
		user   *userTable
		course *courseTable
		enroll *enrollmentTable
		chat   *messageTable
	}

	userTable struct {
		sync.RWMutex
		table    map[string]*user.User
		profiles map[string]*user.EducatorProfile // keyed by UserID
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enroll.Enrollment
	}

	messageTable struct {
		sync.RWMutex
		table    map[string]*chat.Message
		seqCount int64
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{
			table:    make(map[string]*user.User),
			profiles: make(map[string]*user.EducatorProfile),
		},
		course: &courseTable{table: make(map[string]*course.Course)},
		enroll: &enrollmentTable{table: make(map[string]*enroll.Enrollment)},
		chat:   &messageTable{table: make(map[string]*chat.Message)},
	}
	return db, nil
}
