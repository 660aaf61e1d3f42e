package store_test

import (
	"context"
	"testing"
	"time"

	"minutebook/internal/store"
	"minutebook/internal/testsupport"
)

func TestUpsertMeetingInsertsAndEnriches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	date := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)
	meeting, err := st.UpsertMeeting(ctx, &store.Meeting{
		PortalID:  "portal-42",
		Body:      "City Council",
		Type:      "regular",
		Date:      date,
		HasAgenda: true,
	})
	if err != nil {
		t.Fatalf("UpsertMeeting failed: %v", err)
	}
	if meeting.ID == 0 {
		t.Fatal("expected meeting ID to be assigned")
	}
	if meeting.State != store.StateDiscovered {
		t.Fatalf("expected discovered state, got %q", meeting.State)
	}

	// Second observation adds minutes; agenda flag must survive.
	enriched, err := st.UpsertMeeting(ctx, &store.Meeting{
		PortalID:   "portal-42",
		Body:       "City Council",
		HasMinutes: true,
	})
	if err != nil {
		t.Fatalf("UpsertMeeting (enrich) failed: %v", err)
	}
	if enriched.ID != meeting.ID {
		t.Fatalf("expected same meeting row, got %d and %d", meeting.ID, enriched.ID)
	}
	if !enriched.HasAgenda || !enriched.HasMinutes {
		t.Fatalf("expected lifecycle flags to accumulate: %+v", enriched)
	}
	if !enriched.Date.Equal(date) {
		t.Fatalf("expected zero date to leave stored date alone, got %v", enriched.Date)
	}
}

func TestUpsertMeetingRequiresPortalID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.UpsertMeeting(context.Background(), &store.Meeting{Body: "Council"}); err == nil {
		t.Fatal("expected error when portal ID missing")
	}
}

func TestListMeetingsByState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	m1 := testsupport.NewMeeting(t, st, "p-1", "Council", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	m2 := testsupport.NewMeeting(t, st, "p-2", "Council", time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC))

	m1.State = store.StateStructured
	if err := st.UpdateMeeting(ctx, m1); err != nil {
		t.Fatalf("UpdateMeeting failed: %v", err)
	}

	structured, err := st.ListMeetings(ctx, store.StateStructured)
	if err != nil {
		t.Fatalf("ListMeetings failed: %v", err)
	}
	if len(structured) != 1 || structured[0].ID != m1.ID {
		t.Fatalf("unexpected structured set: %#v", structured)
	}

	all, err := st.ListMeetings(ctx)
	if err != nil {
		t.Fatalf("ListMeetings (all) failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != m1.ID || all[1].ID != m2.ID {
		t.Fatalf("expected date ordering, got %#v", all)
	}
}

func TestReplaceStructureIsAtomicAndIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	meeting := testsupport.NewMeeting(t, st, "p-10", "Council", time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))

	items := []store.ItemInput{
		{Position: 1, Ordinal: "1", Title: "Call to Order"},
		{
			Position: 2,
			Ordinal:  "2",
			Title:    "Rezoning 123 Main Street",
			Category: "planning",
			Motions: []store.MotionInput{
				{
					Text:   "That the application be approved",
					Mover:  "Councillor Reyes",
					Result: "carried",
					Votes:  []store.Vote{{Member: "Reyes", Value: "yes"}, {Member: "Chan", Value: "no"}},
				},
			},
		},
	}

	for run := 0; run < 2; run++ {
		if err := st.ReplaceStructure(ctx, meeting.ID, items); err != nil {
			t.Fatalf("ReplaceStructure run %d failed: %v", run, err)
		}

		got, err := st.ListAgendaItems(ctx, meeting.ID)
		if err != nil {
			t.Fatalf("ListAgendaItems failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("run %d: expected 2 items, got %d", run, len(got))
		}
		if got[1].Title != "Rezoning 123 Main Street" {
			t.Fatalf("unexpected item: %#v", got[1])
		}

		motions, err := st.ListMotions(ctx, got[1].ID)
		if err != nil {
			t.Fatalf("ListMotions failed: %v", err)
		}
		if len(motions) != 1 {
			t.Fatalf("run %d: expected 1 motion, got %d", run, len(motions))
		}
		if motions[0].Result != "carried" || len(motions[0].Votes) != 2 {
			t.Fatalf("unexpected motion: %#v", motions[0])
		}
	}
}

func TestInsertMatterAndTouchSeen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	matter, err := st.InsertMatter(ctx, &store.Matter{
		Identifiers: []string{"file20261234"},
		Addresses:   []string{"123 main street"},
		Category:    "rezoning",
		FirstSeen:   first,
		LastSeen:    first,
	})
	if err != nil {
		t.Fatalf("InsertMatter failed: %v", err)
	}
	if matter.Status != store.MatterOpen {
		t.Fatalf("expected open status, got %q", matter.Status)
	}

	later := first.AddDate(0, 2, 0)
	if err := st.TouchMatterSeen(ctx, matter.ID, later); err != nil {
		t.Fatalf("TouchMatterSeen failed: %v", err)
	}
	earlier := first.AddDate(0, -1, 0)
	if err := st.TouchMatterSeen(ctx, matter.ID, earlier); err != nil {
		t.Fatalf("TouchMatterSeen (earlier) failed: %v", err)
	}

	got, err := st.GetMatter(ctx, matter.ID)
	if err != nil {
		t.Fatalf("GetMatter failed: %v", err)
	}
	if !got.FirstSeen.Equal(earlier) || !got.LastSeen.Equal(later) {
		t.Fatalf("expected widened bounds, got first=%v last=%v", got.FirstSeen, got.LastSeen)
	}
	if len(got.Identifiers) != 1 || got.Identifiers[0] != "file20261234" {
		t.Fatalf("identifiers must be untouched, got %v", got.Identifiers)
	}
}

func TestInsertMatterRequiresKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if _, err := st.InsertMatter(context.Background(), &store.Matter{}); err == nil {
		t.Fatal("expected error for matter without identifier or address")
	}
}

func TestLinkItemToMatter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	meeting := testsupport.NewMeeting(t, st, "p-20", "Council", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	if err := st.ReplaceStructure(ctx, meeting.ID, []store.ItemInput{{Position: 1, Title: "Bylaw 88"}}); err != nil {
		t.Fatalf("ReplaceStructure failed: %v", err)
	}
	items, err := st.ListAgendaItems(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("ListAgendaItems failed: %v", err)
	}

	matter, err := st.InsertMatter(ctx, &store.Matter{Identifiers: []string{"bylaw88"}})
	if err != nil {
		t.Fatalf("InsertMatter failed: %v", err)
	}
	if err := st.LinkItemToMatter(ctx, items[0].ID, matter.ID); err != nil {
		t.Fatalf("LinkItemToMatter failed: %v", err)
	}

	items, err = st.ListAgendaItems(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("ListAgendaItems failed: %v", err)
	}
	if items[0].MatterID == nil || *items[0].MatterID != matter.ID {
		t.Fatalf("expected matter link, got %#v", items[0])
	}
}

func TestParseState(t *testing.T) {
	if state, ok := store.ParseState(" Structured "); !ok || state != store.StateStructured {
		t.Fatalf("ParseState failed: %v %v", state, ok)
	}
	if _, ok := store.ParseState("ripping"); ok {
		t.Fatal("expected unknown state to be rejected")
	}
	if !store.StateEmbedded.AtLeast(store.StateStructured) {
		t.Fatal("embedded should satisfy AtLeast(structured)")
	}
	if store.StateFailed.AtLeast(store.StateDiscovered) {
		t.Fatal("failed should never satisfy AtLeast")
	}
}
