package upstream

// Wire shapes of the /v2 survey API. Entries come back as a flat list per
// section: follow-up questions sit next to main questions, linked through
// ParentQuestionID and TriggerChoiceIDs.

type Survey struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	SurveyType  string    `json:"surveyType"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections"`
}

type Section struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	SectionNumber int     `json:"sectionNumber"`
	Entries       []Entry `json:"entries"`
}

type Entry struct {
	ID                int       `json:"id"`
	Question          string    `json:"question"`
	QuestionType      string    `json:"questionType"`
	QuestionNumber    int       `json:"questionNumber"`
	IsRequired        bool      `json:"isRequired"`
	HasFreeTextOption bool      `json:"hasFreeTextOption"`
	QuestionImage     string    `json:"questionImage,omitempty"`
	IsFollowUp        bool      `json:"isFollowUp"`
	ParentQuestionID  int       `json:"parentQuestionId,omitempty"`
	TriggerChoiceIDs  []int     `json:"triggerChoiceIds,omitempty"`
	Choices           []Choice  `json:"choices,omitempty"`
	GridRows          []GridRow `json:"gridRows,omitempty"`
}

type Choice struct {
	ID           int    `json:"id"`
	ChoiceText   string `json:"choiceText"`
	ChoiceOrder  string `json:"choiceOrder"`
	ChoiceImage  string `json:"choiceImage,omitempty"`
	HasTextInput bool   `json:"hasTextInput"`
}

type GridRow struct {
	ID        int    `json:"id"`
	RowNumber int    `json:"rowNumber"`
	RowText   string `json:"rowText"`
	RowImage  string `json:"rowImage,omitempty"`
}

// Attachment is a freshly selected local file to send as a binary part.
// Never populated for an unchanged image.
type Attachment struct {
	Name string
	Data []byte
}

// IDMap maps client-assigned ids to the server ids a create call handed
// back, covering every nested node of the created payload.
type IDMap map[string]int

type CreateResult struct {
	Message string `json:"message"`
	IDs     IDMap  `json:"ids"`
}

type Message struct {
	Message string `json:"message"`
}

type SectionCreate struct {
	ClientID      string        `json:"clientId"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	SectionNumber int           `json:"sectionNumber"`
	Entries       []EntryCreate `json:"entries"`
}

type SectionUpdate struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	SectionNumber *int   `json:"sectionNumber,omitempty"`
}

// EntryCreate addresses the parent of a follow-up either by server id or by
// the client id sent in the parent's own create call, never both.
type EntryCreate struct {
	ClientID               string          `json:"clientId"`
	Question               string          `json:"question"`
	QuestionType           string          `json:"questionType"`
	QuestionNumber         int             `json:"questionNumber"`
	IsRequired             bool            `json:"isRequired"`
	HasFreeTextOption      bool            `json:"hasFreeTextOption"`
	IsFollowUp             bool            `json:"isFollowUp"`
	ParentQuestionID       int             `json:"parentQuestionId,omitempty"`
	ParentQuestionClientID string          `json:"parentQuestionClientId,omitempty"`
	TriggerChoiceIDs       []int           `json:"triggerChoiceIds,omitempty"`
	TriggerChoiceClientIDs []string        `json:"triggerChoiceClientIds,omitempty"`
	Choices                []ChoiceCreate  `json:"choices,omitempty"`
	GridRows               []GridRowCreate `json:"gridRows,omitempty"`
	QuestionImage          *Attachment     `json:"-"`
}

// EntryUpdate is partial: nil fields are not sent. An image clear goes out
// as an explicit empty questionImage; a replacement goes out as a binary
// attachment instead.
type EntryUpdate struct {
	Question          *string     `json:"question,omitempty"`
	QuestionType      *string     `json:"questionType,omitempty"`
	IsRequired        *bool       `json:"isRequired,omitempty"`
	HasFreeTextOption *bool       `json:"hasFreeTextOption,omitempty"`
	QuestionImage     *string     `json:"questionImage,omitempty"`
	ImageUpload       *Attachment `json:"-"`
}

type ChoiceCreate struct {
	ClientID     string      `json:"clientId"`
	ChoiceText   string      `json:"choiceText"`
	ChoiceOrder  string      `json:"choiceOrder"`
	HasTextInput bool        `json:"hasTextInput"`
	ChoiceImage  *Attachment `json:"-"`
}

type ChoiceUpdate struct {
	ChoiceText   *string     `json:"choiceText,omitempty"`
	ChoiceOrder  *string     `json:"choiceOrder,omitempty"`
	HasTextInput *bool       `json:"hasTextInput,omitempty"`
	ChoiceImage  *string     `json:"choiceImage,omitempty"`
	ImageUpload  *Attachment `json:"-"`
}

type GridRowCreate struct {
	ClientID  string      `json:"clientId"`
	RowNumber int         `json:"rowNumber"`
	RowText   string      `json:"rowText"`
	RowImage  *Attachment `json:"-"`
}

type GridRowUpdate struct {
	RowNumber   *int        `json:"rowNumber,omitempty"`
	RowText     *string     `json:"rowText,omitempty"`
	RowImage    *string     `json:"rowImage,omitempty"`
	ImageUpload *Attachment `json:"-"`
}

// Submission is the trainee answer payload passed through to the backend.
type Submission struct {
	SurveyID int                `json:"surveyId"`
	Answers  []SubmissionAnswer `json:"answers"`
}

type SubmissionAnswer struct {
	EntryID   int    `json:"entryId"`
	ChoiceIDs []int  `json:"choiceIds,omitempty"`
	RowID     int    `json:"rowId,omitempty"`
	Text      string `json:"text,omitempty"`
}
