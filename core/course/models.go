package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/thisismugil/edutech/core"
)

// Levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

type (
	QuizQuestion struct {
		Question           string   `json:"question"`
		Options            []string `json:"options"`
		CorrectAnswerIndex int      `json:"correct_answer_index"`
	}

	Lesson struct {
		ID             string         `json:"id"`
		Title          string         `json:"title"`
		Content        string         `json:"content"` // Markdown
		Order          int            `json:"order"`
		ReferenceLinks []string       `json:"reference_links,omitempty"`
		VideoURL       string         `json:"video_url,omitempty"`
		QuizQuestions  []QuizQuestion `json:"quiz_questions,omitempty"`
	}

	Module struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Description string   `json:"description,omitempty"`
		Order       int      `json:"order"`
		Lessons     []Lesson `json:"lessons"`
	}

	Course struct {
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		Topic         string    `json:"topic"`
		Description   string    `json:"description"`
		Level         string    `json:"level"`
		Tone          string    `json:"tone"`
		TotalDuration string    `json:"total_duration"` // e.g. "10 hours"
		EducatorID    string    `json:"educator_id"`
		EducatorName  string    `json:"educator_name,omitempty"` // read-side projection
		Modules       []Module  `json:"modules"`
		IsPublished   bool      `json:"is_published"`
		Tags          []string  `json:"tags,omitempty"`
		ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
		AIGenerated   bool      `json:"ai_generated"`
		CreatedAt     time.Time `json:"created_at"` // UTC
		UpdatedAt     time.Time `json:"updated_at"` // UTC
	}
)

// LessonCount counts lessons across all modules; used for progress percentages.
func (c *Course) LessonCount() int {
	var n int
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title         string   `json:"title" validate:"required,min=3"`
	Topic         string   `json:"topic" validate:"required"`
	Description   string   `json:"description" validate:"required"`
	Level         string   `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Tone          string   `json:"tone"`
	TotalDuration string   `json:"total_duration" validate:"required"`
	Modules       []Module `json:"modules"`
	IsPublished   bool     `json:"is_published"`
	Tags          []string `json:"tags"`
	ThumbnailURL  string   `json:"thumbnail_url"`
	AIGenerated   bool     `json:"ai_generated"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Topic = core.CleanString(nc.Topic)
	nc.Description = core.CleanString(nc.Description)
	nc.Level = core.CleanString(nc.Level, true /* lower */)
	nc.Tone = core.CleanString(nc.Tone)
	if nc.Tone == "" {
		nc.Tone = "professional"
	}
	return validate.Struct(nc)
}

// UpdateCourse defines what may be modified on an existing Course.
// Nil/zero fields keep their stored values.
type UpdateCourse struct {
	Title         string    `json:"title" validate:"omitempty,min=3"`
	Topic         string    `json:"topic"`
	Description   string    `json:"description"`
	Level         string    `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Tone          string    `json:"tone"`
	TotalDuration string    `json:"total_duration"`
	Modules       *[]Module `json:"modules"`
	IsPublished   *bool     `json:"is_published"`
	Tags          *[]string `json:"tags"`
	ThumbnailURL  string    `json:"thumbnail_url"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Level = core.CleanString(uc.Level, true /* lower */)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	return nil
}

// Apply merges the update into orig, returning the course to persist.
func (uc UpdateCourse) Apply(orig Course) Course {
	if uc.Title != "" {
		orig.Title = uc.Title
	}
	if uc.Topic != "" {
		orig.Topic = core.CleanString(uc.Topic)
	}
	if uc.Description != "" {
		orig.Description = core.CleanString(uc.Description)
	}
	if uc.Level != "" {
		orig.Level = uc.Level
	}
	if uc.Tone != "" {
		orig.Tone = core.CleanString(uc.Tone)
	}
	if uc.TotalDuration != "" {
		orig.TotalDuration = core.CleanString(uc.TotalDuration)
	}
	if uc.Modules != nil {
		orig.Modules = *uc.Modules
	}
	if uc.IsPublished != nil {
		orig.IsPublished = *uc.IsPublished
	}
	if uc.Tags != nil {
		orig.Tags = *uc.Tags
	}
	if uc.ThumbnailURL != "" {
		orig.ThumbnailURL = core.CleanString(uc.ThumbnailURL)
	}
	orig.UpdatedAt = time.Now().UTC()
	return orig
}

// QueryFilter narrows the catalog listing. Published-only is the default;
// filtering by one's own EducatorID lifts it (educators see their drafts).
type QueryFilter struct {
	Topic      string `query:"topic"`
	Level      string `query:"level"`
	Search     string `query:"search"`
	EducatorID string `query:"educator_id"`

	// IncludeUnpublished is set by the service, never bound from a request.
	IncludeUnpublished bool `query:"-" json:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Topic = core.CleanString(qf.Topic)
	qf.Level = core.CleanString(qf.Level, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
	qf.EducatorID = core.CleanString(qf.EducatorID)
}
