// Package aisvc drafts course material through the Gemini REST API.
package aisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/course"
)

const baseURL = "https://generativelanguage.googleapis.com/v1beta/models"

type geminiGenerator struct {
	apiKey string
	model  string
	client *http.Client
	logger core.Logger
}

var _ course.SyllabusGenerator = (*geminiGenerator)(nil) // interface compliance check

func NewGeminiGenerator(conf *core.Config, logger core.Logger) *geminiGenerator {
	return &geminiGenerator{
		apiKey: conf.GeminiAPIKey,
		model:  conf.GeminiModel,
		client: &http.Client{Timeout: 90 * time.Second},
		logger: logger,
	}
}

type (
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	part struct {
		Text string `json:"text"`
	}

	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	// syllabusDraft is the shape the model is instructed to return.
	syllabusDraft struct {
		Modules []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Lessons     []struct {
				Title string `json:"title"`
			} `json:"lessons"`
		} `json:"modules"`
	}
)

func (g *geminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding generation request")
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building generation request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling generation API")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", errors.Wrap(err, "reading generation response")
	}

	var out generateResponse
	if err = json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "decoding generation response")
	}
	if out.Error != nil {
		return "", errors.Errorf("generation API error %d: %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("generation API returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// stripFences removes a surrounding markdown code fence the model tends to
// wrap JSON answers in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func (g *geminiGenerator) GenerateSyllabus(ctx context.Context, req course.SyllabusRequest) ([]course.Module, error) {
	tone := req.Tone
	if tone == "" {
		tone = "professional"
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Design a course syllabus on %q for %s learners, to be completed in %s, written in a %s tone.\n",
		req.Topic, req.Level, req.Duration, tone)
	if req.Goals != "" {
		fmt.Fprintf(&prompt, "Learning goals: %s\n", req.Goals)
	}
	prompt.WriteString(`Respond with JSON only, no prose, in this exact shape:
{"modules":[{"title":"...","description":"...","lessons":[{"title":"..."}]}]}`)

	answer, err := g.generate(ctx, prompt.String())
	if err != nil {
		return nil, err
	}

	var draft syllabusDraft
	if err = json.Unmarshal([]byte(stripFences(answer)), &draft); err != nil {
		return nil, errors.Wrap(err, "decoding syllabus draft")
	}
	if len(draft.Modules) == 0 {
		return nil, errors.New("generation API returned an empty syllabus")
	}

	modules := make([]course.Module, 0, len(draft.Modules))
	for i, m := range draft.Modules {
		mod := course.Module{
			ID:          uuid.New().String(),
			Title:       m.Title,
			Description: m.Description,
			Order:       i + 1,
			Lessons:     make([]course.Lesson, 0, len(m.Lessons)),
		}
		for j, l := range m.Lessons {
			mod.Lessons = append(mod.Lessons, course.Lesson{
				ID:    uuid.New().String(),
				Title: l.Title,
				Order: j + 1,
			})
		}
		modules = append(modules, mod)
	}
	return modules, nil
}

func (g *geminiGenerator) GenerateLessonContent(ctx context.Context, req course.LessonContentRequest) (string, error) {
	tone := req.Tone
	if tone == "" {
		tone = "professional"
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Write the lesson %q from the module %q of the course %q.\n",
		req.LessonTitle, req.ModuleTitle, req.CourseTitle)
	if req.Level != "" {
		fmt.Fprintf(&prompt, "Target audience: %s learners.\n", req.Level)
	}
	fmt.Fprintf(&prompt, "Use a %s tone. Respond with Markdown only: headings, explanations, examples and a short summary.", tone)

	answer, err := g.generate(ctx, prompt.String())
	if err != nil {
		return "", err
	}
	return stripFences(answer), nil
}
