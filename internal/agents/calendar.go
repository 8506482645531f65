package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/veyra/automarket/internal/llm"
	"github.com/veyra/automarket/internal/prompts"
	"github.com/veyra/automarket/internal/workflow"
)

// calendarSchema constrains the model's calendar output before it is
// unmarshalled. Validation failures surface as stage errors instead of
// half-parsed records.
const calendarSchema = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["date", "title", "description"],
    "properties": {
      "date": {"type": "string", "format": "date-time"},
      "title": {"type": "string", "minLength": 1},
      "description": {"type": "string", "minLength": 1},
      "post_type": {"type": "string", "enum": ["feed", "story", "post", ""]}
    }
  }
}`

// Calendar turns a strategy document into an ordered content calendar.
type Calendar struct {
	client llm.Client
}

// Calendar implements workflow.CalendarAgent.
func (a *Calendar) Calendar(ctx context.Context, strategy string) ([]workflow.CalendarPost, error) {
	prompt := prompts.Format(prompts.MustGet(promptFile, "calendar"), map[string]string{
		"Strategy": strategy,
	})

	out, err := a.client.GenerateJSON(ctx, prompt, llm.TierFast)
	if err != nil {
		return nil, fmt.Errorf("failed to generate calendar: %w", err)
	}

	return ParseCalendar(out)
}

// ParseCalendar validates raw calendar JSON against the calendar schema and
// unmarshals it. Posts with a missing or unknown post_type default to the
// square post format.
func ParseCalendar(raw string) ([]workflow.CalendarPost, error) {
	raw = llm.CleanCodeBlock(raw)

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(calendarSchema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("calendar output failed schema validation: %s", strings.Join(issues, "; "))
	}

	var posts []workflow.CalendarPost
	if err := json.Unmarshal([]byte(raw), &posts); err != nil {
		return nil, fmt.Errorf("failed to parse calendar JSON: %w", err)
	}

	for i := range posts {
		if !posts[i].PostType.Valid() {
			posts[i].PostType = workflow.PostTypePost
		}
	}
	return posts, nil
}
