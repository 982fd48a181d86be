package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"nft-ticketing/internal/ledger"
	"nft-ticketing/models"
	"nft-ticketing/monitoring"

	"github.com/redis/go-redis/v9"
)

type LogSubscriber interface {
	Subscribe(ctx context.Context, programID string) (ledger.Subscription, error)
}

type TxResolver interface {
	ResolveTransaction(ctx context.Context, signature string) (*ledger.ResolvedTransaction, error)
}

type EventFinder interface {
	EventByMachineID(machineID string) (*models.Event, error)
}

type MintRecorder interface {
	RecordMint(ctx context.Context, m models.MintObserved) (*models.Ticket, error)
}

// Watcher keeps a log subscription on the issuance program and feeds
// recognized mints to the reconciliation engine. It is best-effort by
// contract: per-event failures are logged and dropped, and a lost
// subscription is reopened under the reconnect policy.
type Watcher struct {
	subscriber LogSubscriber
	resolver   TxResolver
	events     EventFinder
	recorder   MintRecorder

	// redis dedupes signatures across watcher and webhook delivery.
	// A nil client disables dedup.
	redis    *redis.Client
	dedupTTL time.Duration

	policy    ReconnectPolicy
	programID string
}

func New(subscriber LogSubscriber, resolver TxResolver, events EventFinder, recorder MintRecorder, redisClient *redis.Client, policy ReconnectPolicy, programID string, dedupTTL time.Duration) *Watcher {
	return &Watcher{
		subscriber: subscriber,
		resolver:   resolver,
		events:     events,
		recorder:   recorder,
		redis:      redisClient,
		dedupTTL:   dedupTTL,
		policy:     policy,
		programID:  programID,
	}
}

// Run blocks until the context is cancelled or the reconnect policy
// gives up.
func (w *Watcher) Run(ctx context.Context) error {
	attempt := 0

	for {
		sub, err := w.subscriber.Subscribe(ctx, w.programID)
		if err != nil {
			attempt++
			monitoring.TrackWatcherReconnect()

			delay, retry := w.policy.Next(attempt)
			if !retry {
				return fmt.Errorf("Run: subscribe: %w", err)
			}
			log.Printf("Run: subscribe failed, retrying in %v: %v", delay, err)

			select {
			case <-ctx.Done():
				return ctx.Err()

			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		monitoring.SetWatcherConnected(true)
		log.Printf("Run: subscribed to program %s", w.programID)

		err = w.consume(ctx, sub)
		sub.Close()
		monitoring.SetWatcherConnected(false)

		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempt++
		monitoring.TrackWatcherReconnect()

		delay, retry := w.policy.Next(attempt)
		if !retry {
			return fmt.Errorf("Run: subscription lost: %w", err)
		}
		log.Printf("Run: subscription lost, retrying in %v: %v", delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(delay):
		}
	}
}

func (w *Watcher) consume(ctx context.Context, sub ledger.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-sub.Logs():
			if !ok {
				return errors.New("consume: log stream closed")
			}
			w.handleLogs(ctx, ev)

		case err := <-sub.Err():
			return err
		}
	}
}

// handleLogs processes one log batch. Every failure mode here is a
// drop: the transaction can still be recovered through the webhook path
// or the verification gate's live check.
func (w *Watcher) handleLogs(ctx context.Context, ev ledger.LogEvent) {
	if !ledger.ContainsMintLog(ev.Logs) {
		return
	}

	if !w.claimSignature(ctx, ev.Signature) {
		monitoring.TrackMintObserved("watcher", "duplicate")
		return
	}

	tx, err := w.resolver.ResolveTransaction(ctx, ev.Signature)
	if err != nil {
		log.Printf("handleLogs: resolve %s: %v", ev.Signature, err)
		monitoring.TrackMintObserved("watcher", "dropped")
		return
	}
	if !tx.Committed {
		log.Printf("handleLogs: transaction %s errored on-chain, dropping", ev.Signature)
		monitoring.TrackMintObserved("watcher", "dropped")
		return
	}

	args, found := w.findMint(tx)
	if !found {
		log.Printf("handleLogs: no recognized mint instruction in %s", ev.Signature)
		monitoring.TrackMintObserved("watcher", "dropped")
		return
	}

	event, err := w.events.EventByMachineID(args.MachineID)
	if err != nil {
		log.Printf("handleLogs: machine %s has no event: %v", args.MachineID, err)
		monitoring.TrackMintObserved("watcher", "dropped")
		return
	}

	_, err = w.recorder.RecordMint(ctx, models.MintObserved{
		EventID:   event.ID,
		AssetID:   args.AssetID,
		Owner:     args.Owner,
		Signature: ev.Signature,
	})
	if err != nil {
		log.Printf("handleLogs: record mint %s: %v", args.AssetID, err)
		monitoring.TrackMintObserved("watcher", "dropped")
		return
	}

	monitoring.TrackMintObserved("watcher", "recorded")
}

func (w *Watcher) findMint(tx *ledger.ResolvedTransaction) (*ledger.MintArgs, bool) {
	for _, inst := range tx.Instructions {
		if inst.ProgramID != w.programID {
			continue
		}
		if args, ok := ledger.DecodeMint(inst); ok {
			return args, true
		}
	}
	return nil, false
}

// claimSignature reports whether this process is the first to handle
// the signature. Redis errors fail open: a duplicate claim is converted
// to an idempotent no-op downstream anyway.
func (w *Watcher) claimSignature(ctx context.Context, signature string) bool {
	if w.redis == nil {
		return true
	}

	key := fmt.Sprintf("mint:sig:%s", signature)
	ok, err := w.redis.SetNX(ctx, key, 1, w.dedupTTL).Result()
	if err != nil {
		log.Printf("claimSignature: %v", err)
		return true
	}
	return ok
}
