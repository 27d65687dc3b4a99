package model

import (
	"github.com/mbolis/survey-editor/log"
	"github.com/mbolis/survey-editor/upstream"
)

// LoadResult carries the two trees an edit session starts from, plus any
// follow-up entries that could not be nested. Working and Snapshot start
// structurally identical; only Working is handed to the UI.
type LoadResult struct {
	Working  *Survey
	Snapshot *Survey
	Orphans  []Orphan
}

// Orphan is a follow-up entry whose trigger choice already had another
// follow-up nested under it. The server allows this, the editing model does
// not (one follow-up per choice), so the extra is reported instead of being
// silently dropped.
type Orphan struct {
	EntryID       int    `json:"entryId"`
	ParentEntryID int    `json:"parentEntryId"`
	Question      string `json:"question"`
}

// Load rebuilds the editing tree from the backend's flat per-section entry
// lists. Follow-up entries are grouped by parent id; for each parent choice
// the first follow-up (in list order) whose trigger set contains the choice
// id is nested under it.
func Load(src *upstream.Survey) *LoadResult {
	working := &Survey{
		ID:          src.ID,
		Name:        src.Name,
		Type:        SurveyType(src.SurveyType),
		Description: src.Description,
	}

	var orphans []Orphan
	for _, sec := range src.Sections {
		section := &Section{
			LocalID:     NewLocalID(),
			ServerID:    sec.ID,
			Title:       sec.Title,
			Description: sec.Description,
			Order:       sec.SectionNumber,
		}

		followUps := map[int][]upstream.Entry{}
		for _, we := range sec.Entries {
			if we.IsFollowUp {
				followUps[we.ParentQuestionID] = append(followUps[we.ParentQuestionID], we)
			}
		}

		for _, we := range sec.Entries {
			if we.IsFollowUp {
				continue
			}
			entry := entryFromWire(we)
			for _, left := range attachFollowUps(entry, followUps[we.ID]) {
				orphans = append(orphans, Orphan{EntryID: left.ID, ParentEntryID: we.ID, Question: left.Question})
			}
			delete(followUps, we.ID)
			section.Entries = append(section.Entries, entry)
		}

		// follow-ups whose parent is missing from the section are orphans too
		for parentID, rest := range followUps {
			for _, we := range rest {
				orphans = append(orphans, Orphan{EntryID: we.ID, ParentEntryID: parentID, Question: we.Question})
			}
		}

		working.Sections = append(working.Sections, section)
	}

	for _, o := range orphans {
		log.Warnf("model.load.orphan_followup: entry %d (parent %d) not nested: %s", o.EntryID, o.ParentEntryID, o.Question)
	}

	return &LoadResult{
		Working:  working,
		Snapshot: working.Clone(),
		Orphans:  orphans,
	}
}

func entryFromWire(we upstream.Entry) *Entry {
	entry := &Entry{
		LocalID:        NewLocalID(),
		ServerID:       we.ID,
		Text:           we.Question,
		Type:           EntryType(we.QuestionType),
		Order:          we.QuestionNumber,
		Required:       we.IsRequired,
		FreeTextOption: we.HasFreeTextOption,
		Image:          ExistingImage(we.QuestionImage),
		IsFollowUp:     we.IsFollowUp,
	}
	if we.IsFollowUp {
		entry.Parent = ServerRef(we.ParentQuestionID)
		for _, id := range we.TriggerChoiceIDs {
			entry.Triggers = append(entry.Triggers, ServerRef(id))
		}
	}
	for i, wc := range we.Choices {
		order, err := ParseChoiceLetter(wc.ChoiceOrder)
		if err != nil {
			order = i + 1
		}
		entry.Choices = append(entry.Choices, &Choice{
			LocalID:       NewLocalID(),
			ServerID:      wc.ID,
			Text:          wc.ChoiceText,
			Order:         order,
			Image:         ExistingImage(wc.ChoiceImage),
			AllowFreeText: wc.HasTextInput,
		})
	}
	for _, wr := range we.GridRows {
		entry.GridRows = append(entry.GridRows, &GridRow{
			LocalID:   NewLocalID(),
			ServerID:  wr.ID,
			RowNumber: wr.RowNumber,
			Text:      wr.RowText,
			Image:     ExistingImage(wr.RowImage),
		})
	}
	return entry
}

// attachFollowUps nests each pending follow-up under the first of the
// parent's choices that triggers it. First match wins on both sides: a
// choice takes at most one follow-up, a follow-up nests under at most one
// choice. The unnested leftovers are returned for orphan reporting.
func attachFollowUps(parent *Entry, pending []upstream.Entry) []upstream.Entry {
	if len(pending) == 0 {
		return nil
	}
	used := make([]bool, len(pending))
	for _, choice := range parent.Choices {
		for i, we := range pending {
			if used[i] || !triggersChoice(we, choice.ServerID) {
				continue
			}
			choice.FollowUp = entryFromWire(we)
			used[i] = true
			break
		}
	}
	var left []upstream.Entry
	for i, we := range pending {
		if !used[i] {
			left = append(left, we)
		}
	}
	return left
}

func triggersChoice(we upstream.Entry, choiceID int) bool {
	if choiceID == 0 {
		return false
	}
	for _, id := range we.TriggerChoiceIDs {
		if id == choiceID {
			return true
		}
	}
	return false
}
