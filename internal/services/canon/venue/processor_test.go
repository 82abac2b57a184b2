package venue

import (
	"context"
	"strings"
	"testing"

	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/testkit"
	dispatchdom "fieldday/internal/services/dispatch/domain"
	docdom "fieldday/internal/services/documents/domain"
)

func venueCommand(payload string) dispatchdom.Command {
	return dispatchdom.Command{
		DocumentID:    "DOC1",
		SourceURLHash: "DOC1",
		Payload:       []byte(payload),
		Provider:      docdom.ProviderESPN,
		Sport:         docdom.SportFootballNCAA,
		DocType:       docdom.DocTypeVenue,
		CorrelationID: "corr",
		CausationID:   "corr",
	}
}

func TestProcess_UpsertsVenueAndAppendsOutboxRow(t *testing.T) {
	t.Parallel()

	db := testkit.NewFakeDB()
	cmd := venueCommand(`{
		"id": "3958",
		"fullName": "Tiger Stadium",
		"address": {"city": "Baton Rouge", "state": "LA"},
		"capacity": 102321,
		"grass": true,
		"indoor": false
	}`)

	if err := New().Process(context.Background(), db, cmd); err != nil {
		t.Fatalf("Process: %v", err)
	}

	upserts := db.ExecCount(func(c testkit.ExecCall) bool {
		return strings.Contains(c.SQL, "INSERT INTO venues")
	})
	if upserts != 1 {
		t.Fatalf("venue upserts = %d, want 1", upserts)
	}
	appends := db.ExecCount(func(c testkit.ExecCall) bool {
		return strings.Contains(c.SQL, "INSERT INTO outbox_events")
	})
	if appends != 1 {
		t.Fatalf("outbox appends = %d, want 1", appends)
	}

	// the outbox row carries the correlation ids of the command
	for _, c := range db.Execs {
		if !strings.Contains(c.SQL, "outbox_events") {
			continue
		}
		found := false
		for _, a := range c.Args {
			if s, ok := a.(string); ok && s == "corr" {
				found = true
			}
		}
		if !found {
			t.Fatalf("outbox append args missing correlation id: %v", c.Args)
		}
	}
}

func TestProcess_MalformedPayloadFailsWholeUnit(t *testing.T) {
	t.Parallel()

	db := testkit.NewFakeDB()
	err := New().Process(context.Background(), db, venueCommand(`{not json`))
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("err = %v, want json error", err)
	}
	if len(db.Execs) != 0 {
		t.Fatalf("malformed payload still wrote %d statements", len(db.Execs))
	}
}

func TestProcess_MissingIdentityIsValidationFailure(t *testing.T) {
	t.Parallel()

	db := testkit.NewFakeDB()
	err := New().Process(context.Background(), db, venueCommand(`{"capacity": 100}`))
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if len(db.Execs) != 0 {
		t.Fatal("invalid document still reached the database")
	}
}
