package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"nft-ticketing/internal/status"
	"nft-ticketing/internal/store"
	"nft-ticketing/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE events (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	venue TEXT DEFAULT '',
	start_time TEXT DEFAULT '',
	total_tickets INTEGER NOT NULL,
	available_tickets INTEGER NOT NULL,
	price TEXT DEFAULT '0',
	currency TEXT DEFAULT '',
	collection_id TEXT DEFAULT '',
	machine_id TEXT DEFAULT '',
	active BOOLEAN DEFAULT TRUE,
	created TEXT DEFAULT '',
	updated TEXT DEFAULT ''
);
CREATE UNIQUE INDEX idx_events_machine_id ON events (machine_id);

CREATE TABLE tickets (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	owner TEXT NOT NULL,
	seat_label TEXT DEFAULT '',
	status TEXT DEFAULT '',
	used BOOLEAN DEFAULT FALSE,
	created TEXT DEFAULT '',
	transferred_at TEXT DEFAULT ''
);
CREATE UNIQUE INDEX idx_tickets_asset_id ON tickets (asset_id);

CREATE TABLE transactions (
	id TEXT PRIMARY KEY,
	event_id TEXT NOT NULL,
	wallet TEXT DEFAULT '',
	payment_method TEXT DEFAULT '',
	amount TEXT DEFAULT '0',
	currency TEXT DEFAULT '',
	quantity INTEGER DEFAULT 1,
	status TEXT DEFAULT '',
	ticket_id TEXT DEFAULT '',
	signature TEXT DEFAULT '',
	created TEXT DEFAULT ''
);
`

func newTestStore(t *testing.T) *store.Store {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return store.NewStore(dbx.NewFromDB(db, "sqlite"))
}

func seedTestEvent(t *testing.T, st *store.Store, id string, total, available int, active bool) {
	t.Helper()
	require.NoError(t, st.InsertEvent(&models.Event{
		ID:               id,
		Name:             "Test Concert",
		Venue:            "Main Hall",
		StartTime:        types.NowDateTime(),
		TotalTickets:     total,
		AvailableTickets: available,
		Price:            decimal.NewFromInt(25),
		Currency:         "USDC",
		CollectionID:     "col-" + id,
		MachineID:        "machine-" + id,
		Active:           active,
		Created:          types.NowDateTime(),
		Updated:          types.NowDateTime(),
	}))
}

type publishedMessage struct {
	channel string
	message map[string]any
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

func (f *fakePublisher) Publish(channel string, message map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{channel: channel, message: message})
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func TestRecordMintIdempotent(t *testing.T) {
	st := newTestStore(t)
	pub := &fakePublisher{}
	svc := NewReconcileService(st, pub)
	seedTestEvent(t, st, "evt1", 3, 3, true)

	m := models.MintObserved{EventID: "evt1", AssetID: "assetA", Owner: "walletX", Signature: "sig1"}

	first, err := svc.RecordMint(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, "Ticket #1", first.SeatLabel)
	assert.Equal(t, "walletX", first.Owner)

	ev, err := st.EventByID("evt1")
	require.NoError(t, err)
	assert.Equal(t, 2, ev.AvailableTickets)

	// Same observation again: same ticket back, no second decrement.
	second, err := svc.RecordMint(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	ev, err = st.EventByID("evt1")
	require.NoError(t, err)
	assert.Equal(t, 2, ev.AvailableTickets)

	assert.Equal(t, 1, pub.count())
}

func TestRecordMintSeatNumbering(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 3, 3, true)

	a, err := svc.RecordMint(context.Background(), models.MintObserved{
		EventID: "evt1", AssetID: "assetA", Owner: "walletX",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ticket #1", a.SeatLabel)

	b, err := svc.RecordMint(context.Background(), models.MintObserved{
		EventID: "evt1", AssetID: "assetB", Owner: "walletY",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ticket #2", b.SeatLabel)

	ev, err := st.EventByID("evt1")
	require.NoError(t, err)
	assert.Equal(t, 1, ev.AvailableTickets)
}

// Concurrent observations of the same mint race past the duplicate
// pre-check; the unique asset index decides the winner and the loser
// comes back with the winner's row.
func TestRecordMintConcurrentSameAsset(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 3, 3, true)

	m := models.MintObserved{EventID: "evt1", AssetID: "assetA", Owner: "walletX"}

	var wg sync.WaitGroup
	tickets := make([]*models.Ticket, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tickets[i], errs[i] = svc.RecordMint(context.Background(), m)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, tickets[0].ID, tickets[1].ID)

	winner, err := st.TicketByAssetID("assetA")
	require.NoError(t, err)
	assert.Equal(t, tickets[0].ID, winner.ID)

	// One ticket, one decrement.
	ev, err := st.EventByID("evt1")
	require.NoError(t, err)
	assert.Equal(t, 2, ev.AvailableTickets)
}

func TestRecordMintConcurrentCounterFloor(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 2, 2, true)

	assets := []string{"assetA", "assetB", "assetC", "assetD"}

	var wg sync.WaitGroup
	for _, asset := range assets {
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()
			_, err := svc.RecordMint(context.Background(), models.MintObserved{
				EventID: "evt1", AssetID: asset, Owner: "walletX",
			})
			assert.NoError(t, err)
		}(asset)
	}
	wg.Wait()

	// More mints than supply leave the counter floored, never negative.
	ev, err := st.EventByID("evt1")
	require.NoError(t, err)
	assert.Equal(t, 0, ev.AvailableTickets)

	for _, asset := range assets {
		_, err := st.TicketByAssetID(asset)
		assert.NoError(t, err)
	}
}

func TestRecordMintEventNotFound(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})

	_, err := svc.RecordMint(context.Background(), models.MintObserved{
		EventID: "missing", AssetID: "assetA", Owner: "walletX",
	})
	assert.ErrorIs(t, err, status.ErrEventNotFound)
}

func TestRecordMintLinksTransaction(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 3, 3, true)

	intent, err := svc.InitiatePurchase(context.Background(), "evt1", "walletX", "wallet", 1)
	require.NoError(t, err)

	ticket, err := svc.RecordMint(context.Background(), models.MintObserved{
		EventID: "evt1", AssetID: "assetA", Owner: "walletX",
		Signature: "sig1", TransactionID: intent.TransactionID,
	})
	require.NoError(t, err)

	tx, err := st.TransactionByID(intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccessful, tx.Status)
	assert.Equal(t, ticket.ID, tx.TicketID)
	assert.Equal(t, "sig1", tx.Signature)
}

func TestRecordMintToleratesBadTransactionLink(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 3, 3, true)

	// An unknown transaction id must not block the mint itself.
	ticket, err := svc.RecordMint(context.Background(), models.MintObserved{
		EventID: "evt1", AssetID: "assetA", Owner: "walletX", TransactionID: "missing",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
}

func TestRecordTransfer(t *testing.T) {
	st := newTestStore(t)
	pub := &fakePublisher{}
	svc := NewReconcileService(st, pub)
	seedTestEvent(t, st, "evt1", 3, 3, true)

	_, err := svc.RecordMint(context.Background(), models.MintObserved{
		EventID: "evt1", AssetID: "assetA", Owner: "walletX",
	})
	require.NoError(t, err)

	ticket, err := svc.RecordTransfer(context.Background(), "assetA", "walletZ", "sig2")
	require.NoError(t, err)
	assert.Equal(t, "walletZ", ticket.Owner)
	assert.Equal(t, models.TicketStatusTransferred, ticket.Status)

	// Redelivery of the same transfer is a no-op.
	again, err := svc.RecordTransfer(context.Background(), "assetA", "walletZ", "sig2")
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, again.ID)
	assert.Equal(t, "walletZ", again.Owner)

	// One mint publish plus one transfer publish, not two transfers.
	assert.Equal(t, 2, pub.count())
}

func TestRecordTransferUnknownAsset(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})

	_, err := svc.RecordTransfer(context.Background(), "missing", "walletZ", "sig")
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
}

func TestInitiatePurchase(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 10, 5, true)

	intent, err := svc.InitiatePurchase(context.Background(), "evt1", "walletX", "wallet", 2)
	require.NoError(t, err)
	assert.Equal(t, "machine-evt1", intent.MachineID)
	assert.Equal(t, 2, intent.Quantity)
	assert.True(t, intent.Amount.Equal(decimal.NewFromInt(50)))

	tx, err := st.TransactionByID(intent.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, tx.Status)
	assert.Equal(t, "walletX", tx.Wallet)
}

func TestInitiatePurchaseValidation(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 10, 1, true)
	seedTestEvent(t, st, "evt2", 10, 10, false)

	_, err := svc.InitiatePurchase(context.Background(), "evt1", "walletX", "wallet", 0)
	assert.ErrorIs(t, err, status.ErrInvalidQuantity)

	_, err = svc.InitiatePurchase(context.Background(), "missing", "walletX", "wallet", 1)
	assert.ErrorIs(t, err, status.ErrEventNotFound)

	_, err = svc.InitiatePurchase(context.Background(), "evt1", "walletX", "wallet", 2)
	assert.ErrorIs(t, err, status.ErrSoldOut)

	_, err = svc.InitiatePurchase(context.Background(), "evt2", "walletX", "wallet", 1)
	assert.ErrorIs(t, err, status.ErrEventInactive)
}

// The advisory check does not reserve anything: two intents can both
// pass against the same remaining ticket.
func TestInitiatePurchaseDoesNotReserve(t *testing.T) {
	st := newTestStore(t)
	svc := NewReconcileService(st, &fakePublisher{})
	seedTestEvent(t, st, "evt1", 10, 1, true)

	_, err := svc.InitiatePurchase(context.Background(), "evt1", "walletX", "wallet", 1)
	require.NoError(t, err)

	_, err = svc.InitiatePurchase(context.Background(), "evt1", "walletY", "wallet", 1)
	require.NoError(t, err)

	ev, err := st.EventByID("evt1")
	require.NoError(t, err)
	assert.Equal(t, 1, ev.AvailableTickets)
}
