// Package validate holds the structural gate run before any save. All
// violations are collected and returned together; a non-nil result means
// planning and execution are not attempted at all.
package validate

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/survey-editor/model"
)

type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fail(result *multierror.Error, field, msg string, args ...any) *multierror.Error {
	return multierror.Append(result, &Error{Field: field, Message: fmt.Sprintf(msg, args...)})
}

// Survey checks the whole working tree. Returns nil when clean, otherwise
// a *multierror.Error listing every violation.
func Survey(sv *model.Survey) error {
	var result *multierror.Error

	if sv.Name == "" {
		result = fail(result, "survey.name", "is required")
	}
	if !sv.Type.Valid() {
		result = fail(result, "survey.type", "must be BASELINE, ENDLINE or OTHER")
	}

	for si, sec := range sv.Sections {
		result = section(result, si, sec)
	}

	return result.ErrorOrNil()
}

func section(result *multierror.Error, si int, sec *model.Section) *multierror.Error {
	at := fmt.Sprintf("sections[%d]", si)
	if sec.Title == "" {
		result = fail(result, at+".title", "is required")
	}
	for ei, e := range sec.Entries {
		result = entry(result, fmt.Sprintf("%s.entries[%d]", at, ei), e, false)
	}
	return result
}

func entry(result *multierror.Error, at string, e *model.Entry, nested bool) *multierror.Error {
	if e.Text == "" {
		result = fail(result, at+".text", "question text is required")
	}
	if !e.Type.Valid() {
		result = fail(result, at+".type", "unknown question type %q", string(e.Type))
		return result
	}

	switch e.Type {
	case model.EntryRadio, model.EntryCheckbox:
		if len(e.Choices) < 2 {
			result = fail(result, at+".choices", "%s question needs at least 2 choices", e.Type)
		}
		for ci, c := range e.Choices {
			if c.Text == "" {
				result = fail(result, fmt.Sprintf("%s.choices[%d].text", at, ci), "choice text is required")
			}
		}
	case model.EntryText:
		if len(e.Choices) > 0 || len(e.GridRows) > 0 {
			result = fail(result, at+".type", "TEXT question must not carry choices or rows")
		}
	case model.EntryGrid:
		if len(e.GridRows) < 1 {
			result = fail(result, at+".gridRows", "GRID question needs at least 1 row")
		}
		for ri, r := range e.GridRows {
			if r.Text == "" {
				result = fail(result, fmt.Sprintf("%s.gridRows[%d].text", at, ri), "row text is required")
			}
		}
	}

	result = followUpRules(result, at, e, nested)
	return result
}

func followUpRules(result *multierror.Error, at string, e *model.Entry, nested bool) *multierror.Error {
	if e.IsFollowUp {
		if e.Parent.IsZero() {
			result = fail(result, at+".parent", "follow-up needs a parent question reference")
		}
		if len(e.Triggers) == 0 {
			result = fail(result, at+".triggers", "follow-up needs at least one trigger choice")
		}
		if e.Type == model.EntryGrid {
			result = fail(result, at+".type", "a follow-up question cannot be GRID")
		}
	} else {
		if !e.Parent.IsZero() || len(e.Triggers) > 0 {
			result = fail(result, at+".parent", "non-follow-up question must not carry parent or trigger references")
		}
	}

	for ci, c := range e.Choices {
		fu := c.FollowUp
		if fu == nil {
			continue
		}
		fuAt := fmt.Sprintf("%s.choices[%d].followUp", at, ci)
		if !e.Type.HasChoices() {
			result = fail(result, fuAt, "only RADIO and CHECKBOX questions can carry follow-ups")
			continue
		}
		if nested {
			result = fail(result, fuAt, "follow-ups cannot nest deeper than one level")
			continue
		}
		if !fu.IsFollowUp {
			result = fail(result, fuAt+".isFollowUp", "nested question must be flagged as follow-up")
		}
		result = entry(result, fuAt, fu, true)
	}

	return result
}
