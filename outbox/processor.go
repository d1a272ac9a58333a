// Package outbox drains the transactional outbox: it projects pending events
// into the read model and fans out risk analysis for active conversations.
package outbox

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/lsvinicius/mental-health/domain"
	"github.com/lsvinicius/mental-health/projector"
	"github.com/lsvinicius/mental-health/store"
)

// Analyzer runs one risk assessment for a conversation.
type Analyzer interface {
	Analyze(ctx context.Context, conversationID string) (*domain.ConversationRiskAnalysis, error)
}

// Processor polls the outbox, projects events in FIFO order and dispatches
// risk analysis. It assumes a single running instance; two instances racing
// the is_processed flag would double-project, which the projector tolerates,
// but would also double-analyze.
type Processor struct {
	store     store.Store
	projector *projector.ConversationProjector
	analyzer  Analyzer
}

// NewProcessor creates an outbox processor.
func NewProcessor(s store.Store, p *projector.ConversationProjector, analyzer Analyzer) *Processor {
	return &Processor{store: s, projector: p, analyzer: analyzer}
}

// ProcessForever runs processing cycles until the context is cancelled. The
// loop stops between cycles; an in-flight cycle always runs to completion.
func (p *Processor) ProcessForever(ctx context.Context, interval time.Duration) {
	log.Printf("INFO: outbox processor started (interval %s)", interval)
	for {
		if err := p.ProcessOnce(ctx); err != nil {
			log.Printf("ERROR: outbox cycle failed: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("INFO: outbox processor stopped")
			return
		case <-time.After(interval):
		}
	}
}

// ProcessOnce executes exactly one processing cycle: drain every unprocessed
// outbox row, then wait for all dispatched risk analyses to finish.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	entries, err := p.store.UnprocessedOutbox(ctx)
	if err != nil {
		return err
	}

	// needsAnalysis is last-write-wins per conversation within the cycle: a
	// new message flags it, a later delete clears it again.
	needsAnalysis := make(map[string]bool)
	// A conversation that fails projection is skipped for the rest of the
	// cycle so its remaining events are not applied out of order. Its rows
	// stay unprocessed and are retried from the same point next cycle.
	failed := make(map[string]bool)

	for _, entry := range entries {
		conversationID := entry.Event.ConversationID
		if failed[conversationID] {
			continue
		}

		switch entry.Event.Type {
		case domain.EventTypeNewMessage:
			needsAnalysis[conversationID] = true
		case domain.EventTypeConversationDeleted:
			if needsAnalysis[conversationID] {
				needsAnalysis[conversationID] = false
			}
		}

		if err := p.projector.Project(ctx, &entry.Event); err != nil {
			log.Printf("ERROR: failed to project event %s (conversation %s): %v", entry.Event.ID, conversationID, err)
			failed[conversationID] = true
			continue
		}
		if err := p.store.MarkOutboxProcessed(ctx, entry.Entry.ID); err != nil {
			log.Printf("ERROR: failed to mark outbox entry %d processed: %v", entry.Entry.ID, err)
			failed[conversationID] = true
		}
	}

	var wg sync.WaitGroup
	for conversationID, analyze := range needsAnalysis {
		if !analyze {
			continue
		}
		wg.Add(1)
		go func(conversationID string) {
			defer wg.Done()
			if _, err := p.analyzer.Analyze(ctx, conversationID); err != nil {
				log.Printf("ERROR: risk analysis failed for conversation %s: %v", conversationID, err)
			}
		}(conversationID)
	}
	wg.Wait()
	return nil
}
