package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// TokenSource supplies the bearer credential for the survey backend. The
// editor treats it as opaque: no parsing, no refresh logic of its own.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type staticToken string

func (t staticToken) Token(context.Context) (string, error) { return string(t), nil }

func StaticToken(token string) TokenSource { return staticToken(token) }

type Client struct {
	http   *resty.Client
	tokens TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// creates are not idempotent: only reads get another try
			if err != nil || r == nil || r.Request.Method != http.MethodGet {
				return false
			}
			e := APIError{Status: r.StatusCode()}
			return e.Temporary()
		})
	return &Client{http: hc, tokens: tokens}
}

func (c *Client) req(ctx context.Context) (*resty.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "upstream.token")
	}
	return c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetError(&APIError{}), nil
}

// setPayload attaches body either as plain JSON or, when binary attachments
// are present, as a multipart form with a JSON "payload" part plus one file
// part per attachment. Unchanged images never appear in either form.
func setPayload(rq *resty.Request, body any, files map[string]*Attachment) error {
	hasFiles := false
	for _, att := range files {
		if att != nil {
			hasFiles = true
			break
		}
	}
	if !hasFiles {
		rq.SetHeader("content-type", "application/json")
		rq.SetBody(body)
		return nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "upstream.payload.marshal")
	}
	rq.SetMultipartField("payload", "", "application/json", bytes.NewReader(raw))
	for field, att := range files {
		if att == nil {
			continue
		}
		rq.SetFileReader(field, att.Name, bytes.NewReader(att.Data))
	}
	return nil
}

func check(resp *resty.Response, err error, code string) error {
	if err != nil {
		return errors.Wrap(err, code)
	}
	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok || apiErr.Message == "" {
			apiErr = &APIError{Message: http.StatusText(resp.StatusCode())}
		}
		apiErr.Status = resp.StatusCode()
		return errors.Wrap(apiErr, code)
	}
	return nil
}

func (c *Client) GetSurvey(ctx context.Context, surveyID int) (*Survey, error) {
	rq, err := c.req(ctx)
	if err != nil {
		return nil, err
	}
	survey := &Survey{}
	resp, err := rq.SetResult(survey).
		Get("/v2/surveys/" + strconv.Itoa(surveyID))
	if err := check(resp, err, "upstream.get_survey"); err != nil {
		return nil, err
	}
	return survey, nil
}

func (c *Client) CreateSections(ctx context.Context, surveyID int, sections []SectionCreate) (IDMap, error) {
	rq, err := c.req(ctx)
	if err != nil {
		return nil, err
	}
	result := &CreateResult{}
	resp, err := rq.SetBody(sections).SetResult(result).
		Post(fmt.Sprintf("/v2/survey-sections/survey/%d/bulk", surveyID))
	if err := check(resp, err, "upstream.create_sections"); err != nil {
		return nil, err
	}
	return result.IDs, nil
}

func (c *Client) UpdateSection(ctx context.Context, sectionID int, upd SectionUpdate) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.SetBody(upd).
		Put("/v2/survey-sections/" + strconv.Itoa(sectionID))
	return check(resp, err, "upstream.update_section")
}

// DeleteSection fails upstream once the survey has collected responses.
func (c *Client) DeleteSection(ctx context.Context, sectionID int) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.Delete("/v2/survey-sections/" + strconv.Itoa(sectionID))
	return check(resp, err, "upstream.delete_section")
}

func (c *Client) CreateEntry(ctx context.Context, sectionID int, entry EntryCreate) (IDMap, error) {
	rq, err := c.req(ctx)
	if err != nil {
		return nil, err
	}
	files := map[string]*Attachment{"questionImage": entry.QuestionImage}
	for _, ch := range entry.Choices {
		if ch.ChoiceImage != nil {
			files["choiceImage."+ch.ClientID] = ch.ChoiceImage
		}
	}
	for _, row := range entry.GridRows {
		if row.RowImage != nil {
			files["rowImage."+row.ClientID] = row.RowImage
		}
	}
	if err := setPayload(rq, entry, files); err != nil {
		return nil, err
	}
	result := &CreateResult{}
	resp, err := rq.SetResult(result).
		Post("/v2/survey-entries/section/" + strconv.Itoa(sectionID))
	if err := check(resp, err, "upstream.create_entry"); err != nil {
		return nil, err
	}
	return result.IDs, nil
}

func (c *Client) UpdateEntry(ctx context.Context, entryID int, upd EntryUpdate) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	if err := setPayload(rq, upd, map[string]*Attachment{"questionImage": upd.ImageUpload}); err != nil {
		return err
	}
	resp, err := rq.Put("/v2/survey-entries/" + strconv.Itoa(entryID))
	return check(resp, err, "upstream.update_entry")
}

// DeleteEntry cascades to the entry's follow-ups server-side.
func (c *Client) DeleteEntry(ctx context.Context, entryID int) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.Delete("/v2/survey-entries/" + strconv.Itoa(entryID))
	return check(resp, err, "upstream.delete_entry")
}

func (c *Client) CreateChoice(ctx context.Context, entryID int, ch ChoiceCreate) (IDMap, error) {
	rq, err := c.req(ctx)
	if err != nil {
		return nil, err
	}
	if err := setPayload(rq, ch, map[string]*Attachment{"choiceImage": ch.ChoiceImage}); err != nil {
		return nil, err
	}
	result := &CreateResult{}
	resp, err := rq.SetResult(result).
		Post(fmt.Sprintf("/v2/survey-entries/%d/choices", entryID))
	if err := check(resp, err, "upstream.create_choice"); err != nil {
		return nil, err
	}
	return result.IDs, nil
}

func (c *Client) UpdateChoice(ctx context.Context, entryID, choiceID int, upd ChoiceUpdate) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	if err := setPayload(rq, upd, map[string]*Attachment{"choiceImage": upd.ImageUpload}); err != nil {
		return err
	}
	resp, err := rq.Put(fmt.Sprintf("/v2/survey-entries/%d/choices/%d", entryID, choiceID))
	return check(resp, err, "upstream.update_choice")
}

func (c *Client) DeleteChoice(ctx context.Context, entryID, choiceID int) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.Delete(fmt.Sprintf("/v2/survey-entries/%d/choices/%d", entryID, choiceID))
	return check(resp, err, "upstream.delete_choice")
}

func (c *Client) CreateGridRow(ctx context.Context, entryID int, row GridRowCreate) (IDMap, error) {
	rq, err := c.req(ctx)
	if err != nil {
		return nil, err
	}
	if err := setPayload(rq, row, map[string]*Attachment{"rowImage": row.RowImage}); err != nil {
		return nil, err
	}
	result := &CreateResult{}
	resp, err := rq.SetResult(result).
		Post(fmt.Sprintf("/v2/survey-entries/%d/grid-rows", entryID))
	if err := check(resp, err, "upstream.create_grid_row"); err != nil {
		return nil, err
	}
	return result.IDs, nil
}

func (c *Client) UpdateGridRow(ctx context.Context, entryID, rowID int, upd GridRowUpdate) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	if err := setPayload(rq, upd, map[string]*Attachment{"rowImage": upd.ImageUpload}); err != nil {
		return err
	}
	resp, err := rq.Put(fmt.Sprintf("/v2/survey-entries/%d/grid-rows/%d", entryID, rowID))
	return check(resp, err, "upstream.update_grid_row")
}

func (c *Client) DeleteGridRow(ctx context.Context, entryID, rowID int) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.Delete(fmt.Sprintf("/v2/survey-entries/%d/grid-rows/%d", entryID, rowID))
	return check(resp, err, "upstream.delete_grid_row")
}

func followUpQuery(rq *resty.Request, parentID int, triggerIDs []int) {
	rq.SetQueryParam("parentQuestionId", strconv.Itoa(parentID))
	for _, id := range triggerIDs {
		rq.QueryParam.Add("triggerChoiceIds", strconv.Itoa(id))
	}
}

func (c *Client) LinkFollowUp(ctx context.Context, entryID, parentID int, triggerIDs []int) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	followUpQuery(rq, parentID, triggerIDs)
	resp, err := rq.Post(fmt.Sprintf("/v2/survey-entries/%d/link-followup", entryID))
	return check(resp, err, "upstream.link_followup")
}

func (c *Client) UnlinkFollowUp(ctx context.Context, entryID, parentID int, triggerIDs []int) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	followUpQuery(rq, parentID, triggerIDs)
	resp, err := rq.Delete(fmt.Sprintf("/v2/survey-entries/%d/unlink-followup", entryID))
	return check(resp, err, "upstream.unlink_followup")
}

func (c *Client) reorder(ctx context.Context, path string, newPosition int) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.SetQueryParam("newPosition", strconv.Itoa(newPosition)).
		Patch(path)
	return check(resp, err, "upstream.reorder")
}

func (c *Client) ReorderSection(ctx context.Context, sectionID, newPosition int) error {
	return c.reorder(ctx, fmt.Sprintf("/v2/survey-sections/%d/reorder", sectionID), newPosition)
}

func (c *Client) ReorderEntry(ctx context.Context, entryID, newPosition int) error {
	return c.reorder(ctx, fmt.Sprintf("/v2/survey-entries/%d/reorder", entryID), newPosition)
}

func (c *Client) ReorderChoice(ctx context.Context, entryID, choiceID, newPosition int) error {
	return c.reorder(ctx, fmt.Sprintf("/v2/survey-entries/%d/choices/%d/reorder", entryID, choiceID), newPosition)
}

func (c *Client) ReorderGridRow(ctx context.Context, entryID, rowID, newPosition int) error {
	return c.reorder(ctx, fmt.Sprintf("/v2/survey-entries/%d/grid-rows/%d/reorder", entryID, rowID), newPosition)
}

func (c *Client) CreateSurvey(ctx context.Context, name, surveyType, description string) (int, error) {
	rq, err := c.req(ctx)
	if err != nil {
		return 0, err
	}
	var result struct {
		ID int `json:"id"`
	}
	resp, err := rq.
		SetBody(map[string]string{
			"name":        name,
			"surveyType":  surveyType,
			"description": description,
		}).
		SetResult(&result).
		Post("/v2/surveys")
	if err := check(resp, err, "upstream.create_survey"); err != nil {
		return 0, err
	}
	return result.ID, nil
}

func (c *Client) UpdateSurvey(ctx context.Context, surveyID int, name, surveyType, description string) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.
		SetBody(map[string]string{
			"name":        name,
			"surveyType":  surveyType,
			"description": description,
		}).
		Put("/v2/surveys/" + strconv.Itoa(surveyID))
	return check(resp, err, "upstream.update_survey")
}

func (c *Client) SubmitResponses(ctx context.Context, sub Submission) error {
	rq, err := c.req(ctx)
	if err != nil {
		return err
	}
	resp, err := rq.SetBody(sub).
		Post(fmt.Sprintf("/v2/surveys/%d/submissions", sub.SurveyID))
	return check(resp, err, "upstream.submit_responses")
}
