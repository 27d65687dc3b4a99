package session

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mbolis/survey-editor/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE draft (
			id TEXT PRIMARY KEY,
			survey_id INTEGER NOT NULL,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(db)
}

func TestStoreRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	s := persistedSession()
	s.Orphans = []model.Orphan{{EntryID: 9, ParentEntryID: 8, Question: "stray"}}
	s.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	if err := st.Save(ctx, s); err != nil {
		t.Fatal(err)
	}

	loaded, err := st.Load(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("saved draft not found")
	}
	if !reflect.DeepEqual(loaded.Working, s.Working) {
		t.Error("working tree did not survive the round trip")
	}
	if !reflect.DeepEqual(loaded.Snapshot, s.Snapshot) {
		t.Error("snapshot did not survive the round trip")
	}
	if !reflect.DeepEqual(loaded.Orphans, s.Orphans) {
		t.Error("orphans did not survive the round trip")
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	s := persistedSession()
	if err := st.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	s.Working.Sections[0].Title = "revised"
	if err := st.Save(ctx, s); err != nil {
		t.Fatal(err)
	}

	loaded, err := st.Load(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Working.Sections[0].Title != "revised" {
		t.Errorf("title = %q", loaded.Working.Sections[0].Title)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := testStore(t)
	loaded, err := st.Load(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestStoreDelete(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	s := persistedSession()
	if err := st.Save(ctx, s); err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	loaded, err := st.Load(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Error("deleted draft still loads")
	}
}
