package model

func (sv *Survey) Clone() *Survey {
	if sv == nil {
		return nil
	}
	out := *sv
	if sv.Sections != nil {
		out.Sections = make([]*Section, len(sv.Sections))
		for i, s := range sv.Sections {
			out.Sections[i] = s.Clone()
		}
	}
	return &out
}

func (s *Section) Clone() *Section {
	out := *s
	if s.Entries != nil {
		out.Entries = make([]*Entry, len(s.Entries))
		for i, e := range s.Entries {
			out.Entries[i] = e.Clone()
		}
	}
	return &out
}

func (e *Entry) Clone() *Entry {
	out := *e
	out.Image = e.Image.clone()
	if e.Triggers != nil {
		out.Triggers = make([]Ref, len(e.Triggers))
		copy(out.Triggers, e.Triggers)
	}
	if e.Choices != nil {
		out.Choices = make([]*Choice, len(e.Choices))
		for i, c := range e.Choices {
			out.Choices[i] = c.Clone()
		}
	}
	if e.GridRows != nil {
		out.GridRows = make([]*GridRow, len(e.GridRows))
		for i, r := range e.GridRows {
			out.GridRows[i] = r.Clone()
		}
	}
	return &out
}

func (c *Choice) Clone() *Choice {
	out := *c
	out.Image = c.Image.clone()
	if c.FollowUp != nil {
		out.FollowUp = c.FollowUp.Clone()
	}
	return &out
}

func (r *GridRow) Clone() *GridRow {
	out := *r
	out.Image = r.Image.clone()
	return &out
}

func (im Image) clone() Image {
	out := im
	if im.Data != nil {
		out.Data = make([]byte, len(im.Data))
		copy(out.Data, im.Data)
	}
	return out
}
