package model

import "testing"

func TestChoiceLetter(t *testing.T) {
	cases := []struct {
		order int
		want  string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{0, ""},
		{-3, ""},
	}
	for _, c := range cases {
		if got := ChoiceLetter(c.order); got != c.want {
			t.Errorf("ChoiceLetter(%d) = %q, want %q", c.order, got, c.want)
		}
	}
}

func TestParseChoiceLetterRoundTrip(t *testing.T) {
	for order := 1; order <= 1000; order++ {
		got, err := ParseChoiceLetter(ChoiceLetter(order))
		if err != nil {
			t.Fatalf("ParseChoiceLetter(%q): %s", ChoiceLetter(order), err)
		}
		if got != order {
			t.Fatalf("round trip %d came back as %d", order, got)
		}
	}
}

func TestParseChoiceLetterInvalid(t *testing.T) {
	for _, code := range []string{"", "a", "A1", "-"} {
		if _, err := ParseChoiceLetter(code); err == nil {
			t.Errorf("ParseChoiceLetter(%q) did not fail", code)
		}
	}
}

func TestRenumber(t *testing.T) {
	sv := &Survey{Sections: []*Section{
		{Order: 7, Entries: []*Entry{
			{Order: 12, Choices: []*Choice{{Order: 5}, {Order: 9}}},
			{Order: 3, GridRows: []*GridRow{{RowNumber: 8}, {RowNumber: 2}}},
		}},
		{Order: 2},
	}}

	sv.Renumber()

	if sv.Sections[0].Order != 1 || sv.Sections[1].Order != 2 {
		t.Errorf("section orders = %d, %d", sv.Sections[0].Order, sv.Sections[1].Order)
	}
	entries := sv.Sections[0].Entries
	if entries[0].Order != 1 || entries[1].Order != 2 {
		t.Errorf("entry orders = %d, %d", entries[0].Order, entries[1].Order)
	}
	if entries[0].Choices[0].Order != 1 || entries[0].Choices[1].Order != 2 {
		t.Errorf("choice orders = %d, %d", entries[0].Choices[0].Order, entries[0].Choices[1].Order)
	}
	if entries[1].GridRows[0].RowNumber != 1 || entries[1].GridRows[1].RowNumber != 2 {
		t.Errorf("row numbers = %d, %d", entries[1].GridRows[0].RowNumber, entries[1].GridRows[1].RowNumber)
	}
}

func TestRefSides(t *testing.T) {
	local := LocalRef("abc")
	if id, ok := local.Local(); !ok || id != "abc" {
		t.Errorf("Local() = %q, %t", id, ok)
	}
	if _, ok := local.Server(); ok {
		t.Error("local ref claims a server side")
	}

	server := ServerRef(42)
	if id, ok := server.Server(); !ok || id != 42 {
		t.Errorf("Server() = %d, %t", id, ok)
	}
	if _, ok := server.Local(); ok {
		t.Error("server ref claims a local side")
	}

	var zero Ref
	if !zero.IsZero() {
		t.Error("zero Ref is not IsZero")
	}
	if local.IsZero() || server.IsZero() {
		t.Error("non-zero Ref reported as zero")
	}
}

func TestEntryRefPrefersServerID(t *testing.T) {
	e := NewEntry("q", EntryText, 1)
	if ref := e.Ref(); !ref.Equal(LocalRef(e.LocalID)) {
		t.Errorf("unpersisted entry ref = %s", ref)
	}
	e.ServerID = 9
	if ref := e.Ref(); !ref.Equal(ServerRef(9)) {
		t.Errorf("persisted entry ref = %s", ref)
	}
}

func TestImageTriState(t *testing.T) {
	existing := ExistingImage("http://img/1.png")
	if existing.Dirty() {
		t.Error("unchanged image reported dirty")
	}

	replace := ReplaceImage("new.png", []byte{1, 2})
	if !replace.Dirty() {
		t.Error("replacement not reported dirty")
	}
	settled := replace.Settled()
	if settled.State != ImageUnchanged || settled.URL != "new.png" || settled.Data != nil {
		t.Errorf("settled replacement = %+v", settled)
	}

	clear := ClearImage()
	if !clear.Dirty() {
		t.Error("clear not reported dirty")
	}
	settled = clear.Settled()
	if settled.State != ImageUnchanged || settled.URL != "" {
		t.Errorf("settled clear = %+v", settled)
	}
}

func TestCloneIndependence(t *testing.T) {
	choice := NewChoice("yes", 1)
	choice.FollowUp = NewEntry("why?", EntryText, 1)
	entry := NewEntry("agree?", EntryRadio, 1)
	entry.Choices = []*Choice{choice, NewChoice("no", 2)}
	entry.Image = ReplaceImage("q.png", []byte{7})
	sv := &Survey{
		Name:     "demo",
		Type:     SurveyBaseline,
		Sections: []*Section{{LocalID: NewLocalID(), Title: "intro", Order: 1, Entries: []*Entry{entry}}},
	}

	clone := sv.Clone()

	clone.Sections[0].Title = "changed"
	clone.Sections[0].Entries[0].Text = "changed"
	clone.Sections[0].Entries[0].Choices[0].FollowUp.Text = "changed"
	clone.Sections[0].Entries[0].Image.Data[0] = 99

	if sv.Sections[0].Title != "intro" {
		t.Error("clone shares section with original")
	}
	if sv.Sections[0].Entries[0].Text != "agree?" {
		t.Error("clone shares entry with original")
	}
	if sv.Sections[0].Entries[0].Choices[0].FollowUp.Text != "why?" {
		t.Error("clone shares nested follow-up with original")
	}
	if sv.Sections[0].Entries[0].Image.Data[0] != 7 {
		t.Error("clone shares image bytes with original")
	}
}

func TestNormalizeRefs(t *testing.T) {
	parent := NewEntry("parent", EntryRadio, 1)
	choice := NewChoice("yes", 1)
	parent.Choices = []*Choice{choice, NewChoice("no", 2)}

	fu := NewEntry("why?", EntryText, 1)
	fu.IsFollowUp = true
	choice.FollowUp = fu

	parent.NormalizeRefs()
	if !fu.Parent.Equal(LocalRef(parent.LocalID)) {
		t.Errorf("unpersisted parent ref = %s", fu.Parent)
	}
	if len(fu.Triggers) != 1 || !fu.Triggers[0].Equal(LocalRef(choice.LocalID)) {
		t.Errorf("default triggers = %v", fu.Triggers)
	}

	// once ids land, local trigger refs upgrade to server form
	parent.ServerID = 10
	choice.ServerID = 20
	parent.NormalizeRefs()
	if !fu.Parent.Equal(ServerRef(10)) {
		t.Errorf("persisted parent ref = %s", fu.Parent)
	}
	if len(fu.Triggers) != 1 || !fu.Triggers[0].Equal(ServerRef(20)) {
		t.Errorf("upgraded triggers = %v", fu.Triggers)
	}
}

func TestAssignServerIDs(t *testing.T) {
	sec := NewSection("s", 1)
	entry := NewEntry("q", EntryRadio, 1)
	choice := NewChoice("c", 1)
	fu := NewEntry("f", EntryText, 1)
	choice.FollowUp = fu
	entry.Choices = []*Choice{choice}
	sec.Entries = []*Entry{entry}

	AssignServerIDs(map[string]int{
		sec.LocalID:    1,
		entry.LocalID:  2,
		choice.LocalID: 3,
		fu.LocalID:     4,
	}, sec)

	if sec.ServerID != 1 || entry.ServerID != 2 || choice.ServerID != 3 || fu.ServerID != 4 {
		t.Errorf("ids = %d %d %d %d", sec.ServerID, entry.ServerID, choice.ServerID, fu.ServerID)
	}

	// already persisted nodes keep their ids
	AssignServerIDs(map[string]int{sec.LocalID: 99}, sec)
	if sec.ServerID != 1 {
		t.Errorf("reassigned persisted section to %d", sec.ServerID)
	}
}
