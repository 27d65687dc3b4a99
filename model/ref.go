package model

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Ref identifies an entry or choice either by its client-assigned local id
// (not yet persisted) or by its server id (persisted). Exactly one side is
// set; the zero Ref points at nothing.
type Ref struct {
	local  string
	server int
}

func LocalRef(id string) Ref { return Ref{local: id} }
func ServerRef(id int) Ref   { return Ref{server: id} }

// Local returns the client-side id, if this is a local reference.
func (r Ref) Local() (string, bool) { return r.local, r.local != "" }

// Server returns the server-assigned id, if this is a server reference.
func (r Ref) Server() (int, bool) { return r.server, r.server != 0 }

func (r Ref) IsZero() bool { return r.local == "" && r.server == 0 }

func (r Ref) Equal(o Ref) bool { return r == o }

func (r Ref) String() string {
	switch {
	case r.local != "":
		return "local:" + r.local
	case r.server != 0:
		return fmt.Sprintf("server:%d", r.server)
	}
	return "none"
}

type refJSON struct {
	Local  string `json:"local,omitempty"`
	Server int    `json:"server,omitempty"`
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(refJSON{Local: r.local, Server: r.server})
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var raw refJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.local = raw.Local
	r.server = raw.Server
	return nil
}
