package plan

import (
	"strings"
	"testing"

	"github.com/mbolis/survey-editor/diff"
	"github.com/mbolis/survey-editor/model"
)

func persistedSurvey() *model.Survey {
	radio := &model.Entry{
		LocalID: model.NewLocalID(), ServerID: 100,
		Text: "do you agree?", Type: model.EntryRadio, Order: 1,
		Choices: []*model.Choice{
			{LocalID: model.NewLocalID(), ServerID: 200, Text: "yes", Order: 1},
			{LocalID: model.NewLocalID(), ServerID: 201, Text: "no", Order: 2},
		},
	}
	return &model.Survey{
		ID: 1, Name: "training", Type: model.SurveyBaseline,
		Sections: []*model.Section{{
			LocalID: model.NewLocalID(), ServerID: 10,
			Title: "intro", Order: 1,
			Entries: []*model.Entry{radio},
		}},
	}
}

func kindsOf(wave []Operation) map[Kind]int {
	kinds := map[Kind]int{}
	for _, op := range wave {
		kinds[op.Kind]++
	}
	return kinds
}

// A type switch must land before the replacement children: the update and
// the old children's deletes fire first, the new rows wait a wave.
func TestBuildTypeChangeOrdering(t *testing.T) {
	working := persistedSurvey()
	snapshot := working.Clone()
	entry := working.Sections[0].Entries[0]
	entry.Type = model.EntryGrid
	entry.Choices = nil
	entry.GridRows = model.DefaultGridRows()

	p := Build(diff.Detect(working, snapshot), working)

	if len(p.Unplannable) != 0 {
		t.Fatalf("unplannable = %v", p.Unplannable)
	}
	if len(p.Waves) != 2 {
		t.Fatalf("waves = %d, want 2", len(p.Waves))
	}

	wave0 := kindsOf(p.Waves[0])
	if wave0[UpdateEntry] != 1 || wave0[DeleteChoice] != 2 || len(p.Waves[0]) != 3 {
		t.Errorf("wave 0 = %v", wave0)
	}

	wave1 := kindsOf(p.Waves[1])
	if wave1[CreateRow] != 2 || len(p.Waves[1]) != 2 {
		t.Errorf("wave 1 = %v", wave1)
	}
	entryPath := diff.EntryPath(0, 0)
	for _, op := range p.Waves[1] {
		if op.DependsOn == nil || *op.DependsOn != entryPath {
			t.Errorf("%s does not depend on the type-changed entry", op)
		}
	}
}

// A brand-new section goes out as one bulk create, nested follow-ups and
// all, in a single wave.
func TestBuildNewSectionSingleBulkCreate(t *testing.T) {
	working := persistedSurvey()
	snapshot := working.Clone()

	sec := model.NewSection("extras", 2)
	entry := model.NewEntry("anything else?", model.EntryRadio, 1)
	entry.Choices = model.DefaultChoices()
	fu := model.NewEntry("tell us", model.EntryText, 1)
	fu.IsFollowUp = true
	entry.Choices[0].FollowUp = fu
	sec.Entries = []*model.Entry{entry}
	working.Sections = append(working.Sections, sec)

	p := Build(diff.Detect(working, snapshot), working)

	if len(p.Unplannable) != 0 {
		t.Fatalf("unplannable = %v", p.Unplannable)
	}
	if len(p.Waves) != 1 || len(p.Waves[0]) != 1 {
		t.Fatalf("plan = %d waves, %d ops", len(p.Waves), p.OpCount())
	}
	op := p.Waves[0][0]
	if op.Kind != CreateSections {
		t.Errorf("op = %s", op)
	}
	if len(op.Sections) != 1 || op.Sections[0] != 1 {
		t.Errorf("op.Sections = %v", op.Sections)
	}
}

func TestBuildFollowUpRefModes(t *testing.T) {
	t.Run("both persisted", func(t *testing.T) {
		working := persistedSurvey()
		snapshot := working.Clone()
		fu := model.NewEntry("why?", model.EntryText, 1)
		fu.IsFollowUp = true
		working.Sections[0].Entries[0].Choices[1].FollowUp = fu

		p := Build(diff.Detect(working, snapshot), working)

		if len(p.Waves) != 1 || len(p.Waves[0]) != 1 {
			t.Fatalf("plan = %d waves, %d ops", len(p.Waves), p.OpCount())
		}
		op := p.Waves[0][0]
		if op.Kind != CreateFollowUp || op.RefMode != RefServer || op.DependsOn != nil {
			t.Errorf("op = %+v", op)
		}
	})

	t.Run("parent created this save", func(t *testing.T) {
		working := persistedSurvey()
		snapshot := working.Clone()

		entry := model.NewEntry("new question", model.EntryRadio, 2)
		entry.Choices = model.DefaultChoices()
		fu := model.NewEntry("nested", model.EntryText, 1)
		fu.IsFollowUp = true
		entry.Choices[0].FollowUp = fu
		working.Sections[0].Entries = append(working.Sections[0].Entries, entry)

		p := Build(diff.Detect(working, snapshot), working)

		if len(p.Waves) != 2 {
			t.Fatalf("waves = %d, want 2", len(p.Waves))
		}
		if len(p.Waves[0]) != 1 || p.Waves[0][0].Kind != CreateEntry {
			t.Fatalf("wave 0 = %v", p.Waves[0])
		}
		if len(p.Waves[1]) != 1 {
			t.Fatalf("wave 1 = %v", p.Waves[1])
		}
		op := p.Waves[1][0]
		if op.Kind != CreateFollowUp || op.RefMode != RefClient {
			t.Errorf("op = %+v", op)
		}
		parentPath := diff.EntryPath(0, 1)
		if op.DependsOn == nil || *op.DependsOn != parentPath {
			t.Errorf("op.DependsOn = %v, want %v", op.DependsOn, parentPath)
		}
	})

	t.Run("persisted parent, unsaved trigger", func(t *testing.T) {
		working := persistedSurvey()
		snapshot := working.Clone()

		// client-only choice on a server-backed entry, with a follow-up
		choice := model.NewChoice("maybe", 3)
		fu := model.NewEntry("how so?", model.EntryText, 1)
		fu.IsFollowUp = true
		choice.FollowUp = fu
		working.Sections[0].Entries[0].Choices = append(working.Sections[0].Entries[0].Choices, choice)

		p := Build(diff.Detect(working, snapshot), working)

		if len(p.Unplannable) != 1 {
			t.Fatalf("unplannable = %v", p.Unplannable)
		}
		seqErr := p.Unplannable[0]
		if seqErr.Kind != CreateFollowUp {
			t.Errorf("unplannable kind = %s", seqErr.Kind)
		}
		if !strings.Contains(seqErr.Error(), "save the choice first") {
			t.Errorf("error = %s", seqErr)
		}

		// the choice create itself still goes through
		wave0 := kindsOf(p.Waves[0])
		if wave0[CreateChoice] != 1 {
			t.Errorf("wave 0 = %v", wave0)
		}
	})
}

func TestBuildChildCreateUnderStableEntryIsWaveZero(t *testing.T) {
	working := persistedSurvey()
	snapshot := working.Clone()
	entry := working.Sections[0].Entries[0]
	entry.Choices = append(entry.Choices, model.NewChoice("maybe", 3))

	p := Build(diff.Detect(working, snapshot), working)

	if len(p.Waves) != 1 {
		t.Fatalf("waves = %d, want 1", len(p.Waves))
	}
	op := p.Waves[0][0]
	if op.Kind != CreateChoice || op.DependsOn != nil {
		t.Errorf("op = %+v", op)
	}
}

func TestBuildEmptyChangeSet(t *testing.T) {
	working := persistedSurvey()
	p := Build(diff.Detect(working, working.Clone()), working)
	if !p.Empty() {
		t.Errorf("plan on identical trees = %d ops, %d unplannable", p.OpCount(), len(p.Unplannable))
	}
}
