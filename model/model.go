package model

import "github.com/gofrs/uuid"

type SurveyType string

const (
	SurveyBaseline SurveyType = "BASELINE"
	SurveyEndline  SurveyType = "ENDLINE"
	SurveyOther    SurveyType = "OTHER"
)

func (t SurveyType) Valid() bool {
	switch t {
	case SurveyBaseline, SurveyEndline, SurveyOther:
		return true
	}
	return false
}

type EntryType string

const (
	EntryText     EntryType = "TEXT"
	EntryRadio    EntryType = "RADIO"
	EntryCheckbox EntryType = "CHECKBOX"
	EntryGrid     EntryType = "GRID"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryText, EntryRadio, EntryCheckbox, EntryGrid:
		return true
	}
	return false
}

// HasChoices reports whether entries of this type carry a choice list.
func (t EntryType) HasChoices() bool {
	return t == EntryRadio || t == EntryCheckbox
}

type Survey struct {
	ID          int        `json:"id,omitempty"`
	Name        string     `json:"name"`
	Type        SurveyType `json:"type"`
	Description string     `json:"description"`
	Sections    []*Section `json:"sections"`
}

// Section order is a dense 1-based sequence within the survey at save time.
type Section struct {
	LocalID     string   `json:"localId"`
	ServerID    int      `json:"serverId,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Order       int      `json:"order"`
	Entries     []*Entry `json:"entries"`
}

// Entry is a survey question. A follow-up entry lives nested under the
// choice that triggers it; Parent and Triggers are non-owning
// back-references used only to build API payloads.
type Entry struct {
	LocalID        string     `json:"localId"`
	ServerID       int        `json:"serverId,omitempty"`
	Text           string     `json:"text"`
	Type           EntryType  `json:"type"`
	Order          int        `json:"order"`
	Required       bool       `json:"required"`
	FreeTextOption bool       `json:"freeTextOption"`
	Image          Image      `json:"image"`
	IsFollowUp     bool       `json:"isFollowUp"`
	Parent         Ref        `json:"parent,omitempty"`
	Triggers       []Ref      `json:"triggers,omitempty"`
	Choices        []*Choice  `json:"choices,omitempty"`
	GridRows       []*GridRow `json:"gridRows,omitempty"`
}

// Choice owns at most one nested follow-up entry. Order is 1-based and
// rendered as a letter code (A, B, C, ...) on the wire.
type Choice struct {
	LocalID       string `json:"localId"`
	ServerID      int    `json:"serverId,omitempty"`
	Text          string `json:"text"`
	Order         int    `json:"order"`
	Image         Image  `json:"image"`
	AllowFreeText bool   `json:"allowFreeText"`
	FollowUp      *Entry `json:"followUp,omitempty"`
}

type GridRow struct {
	LocalID   string `json:"localId"`
	ServerID  int    `json:"serverId,omitempty"`
	RowNumber int    `json:"rowNumber"`
	Text      string `json:"text"`
	Image     Image  `json:"image"`
}

func NewLocalID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func NewSurvey(name string, typ SurveyType, description string) *Survey {
	return &Survey{Name: name, Type: typ, Description: description}
}

func NewSection(title string, order int) *Section {
	return &Section{LocalID: NewLocalID(), Title: title, Order: order}
}

func NewEntry(text string, typ EntryType, order int) *Entry {
	return &Entry{LocalID: NewLocalID(), Text: text, Type: typ, Order: order}
}

func NewChoice(text string, order int) *Choice {
	return &Choice{LocalID: NewLocalID(), Text: text, Order: order}
}

func NewGridRow(text string, rowNumber int) *GridRow {
	return &GridRow{LocalID: NewLocalID(), Text: text, RowNumber: rowNumber}
}

// DefaultChoices is the choice set installed when an entry switches to a
// choice-bearing type.
func DefaultChoices() []*Choice {
	return []*Choice{
		NewChoice("Option A", 1),
		NewChoice("Option B", 2),
	}
}

// DefaultGridRows is the row set installed when an entry switches to GRID.
func DefaultGridRows() []*GridRow {
	return []*GridRow{
		NewGridRow("Row 1", 1),
		NewGridRow("Row 2", 2),
	}
}

func (s *Section) Persisted() bool { return s.ServerID != 0 }
func (e *Entry) Persisted() bool   { return e.ServerID != 0 }
func (c *Choice) Persisted() bool  { return c.ServerID != 0 }
func (r *GridRow) Persisted() bool { return r.ServerID != 0 }

// Ref returns the identity reference for the entry: server id once
// persisted, local id before.
func (e *Entry) Ref() Ref {
	if e.ServerID != 0 {
		return ServerRef(e.ServerID)
	}
	return LocalRef(e.LocalID)
}

func (c *Choice) Ref() Ref {
	if c.ServerID != 0 {
		return ServerRef(c.ServerID)
	}
	return LocalRef(c.LocalID)
}

func (sv *Survey) SectionByServerID(id int) *Section {
	for _, s := range sv.Sections {
		if s.ServerID == id {
			return s
		}
	}
	return nil
}

func (s *Section) EntryByServerID(id int) *Entry {
	for _, e := range s.Entries {
		if e.ServerID == id {
			return e
		}
		for _, c := range e.Choices {
			if c.FollowUp != nil && c.FollowUp.ServerID == id {
				return c.FollowUp
			}
		}
	}
	return nil
}

func (e *Entry) ChoiceByServerID(id int) *Choice {
	for _, c := range e.Choices {
		if c.ServerID == id {
			return c
		}
	}
	return nil
}

func (e *Entry) RowByServerID(id int) *GridRow {
	for _, r := range e.GridRows {
		if r.ServerID == id {
			return r
		}
	}
	return nil
}

// Renumber rewrites section orders, entry orders and grid row numbers into
// dense 1-based sequences, and choice orders into 1..n per entry.
func (sv *Survey) Renumber() {
	for i, s := range sv.Sections {
		s.Order = i + 1
		for j, e := range s.Entries {
			e.Order = j + 1
			e.renumberChildren()
		}
	}
}

func (e *Entry) renumberChildren() {
	for i, c := range e.Choices {
		c.Order = i + 1
		if c.FollowUp != nil {
			c.FollowUp.renumberChildren()
		}
	}
	for i, r := range e.GridRows {
		r.RowNumber = i + 1
	}
}
