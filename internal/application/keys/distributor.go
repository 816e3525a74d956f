// Package keys distributes the content keys of encrypted nodes to the
// principals they are shared with.
package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"arbor/internal/application"
	"arbor/internal/application/session"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// Distributor wraps a node's content key for each principal and delivers
// it, one principal at a time. Deliveries that could not be made are kept
// in the queue for RetryPending. It holds no workspace state.
type Distributor struct {
	authority ports.Authority
	encryptor ports.Encryptor
	queue     ports.KeyQueue
	logger    *slog.Logger
	now       func() time.Time
}

var _ session.KeyDistributor = (*Distributor)(nil)

// NewDistributor creates a distributor. queue may be nil, in which case
// undelivered keys are only reported.
func NewDistributor(authority ports.Authority, encryptor ports.Encryptor, queue ports.KeyQueue) *Distributor {
	return &Distributor{
		authority: authority,
		encryptor: encryptor,
		queue:     queue,
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// WithLogger sets the logger
func (d *Distributor) WithLogger(logger *slog.Logger) *Distributor {
	d.logger = logger
	return d
}

// Distribute delivers the content key of node to every entry in list
// order, waiting for each delivery before starting the next. It does
// nothing for plaintext nodes or an empty list. If a delivery fails, the
// failed entry and every entry after it are queued and a
// *application.PartialDistributionError is returned; earlier entries keep
// their keys.
func (d *Distributor) Distribute(ctx context.Context, node *domain.Node, entries []domain.AccessControlEntry) error {
	if node == nil || !node.IsEncrypted() || len(entries) == 0 {
		return nil
	}
	cipherKey := node.ContentKey()
	if cipherKey == "" {
		return d.partial(ctx, node.ID, "", nil, entries, errors.New("node carries no content key"))
	}

	delivered := make([]string, 0, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return d.partial(ctx, node.ID, cipherKey, delivered, entries[i:], err)
		}
		d.logger.Debug("delivering content key", "node", node.ID, "principal", entry.PrincipalNodeID)
		if err := d.deliver(ctx, node.ID, cipherKey, entry.PrincipalNodeID, entry.PublicKey); err != nil {
			return d.partial(ctx, node.ID, cipherKey, delivered, entries[i:], err)
		}
		delivered = append(delivered, entry.PrincipalNodeID)
	}

	d.logger.Info("content key distributed", "node", node.ID, "principals", len(delivered))
	return nil
}

func (d *Distributor) deliver(ctx context.Context, nodeID, cipherKey, principalID, publicKey string) error {
	if publicKey == "" {
		return fmt.Errorf("principal %s has no public key", principalID)
	}
	wrapped, err := d.encryptor.WrapForPrincipal(cipherKey, publicKey)
	if err != nil {
		return fmt.Errorf("failed to wrap key for %s: %w", principalID, err)
	}
	res, err := d.authority.SetCipherKey(ctx, ports.SetCipherKeyRequest{
		NodeID:          nodeID,
		PrincipalNodeID: principalID,
		CipherKey:       wrapped,
	})
	if err != nil {
		return fmt.Errorf("failed to deliver key to %s: %w", principalID, err)
	}
	return application.CheckSuccess("setCipherKey", res.ResponseBase)
}

func (d *Distributor) partial(ctx context.Context, nodeID, cipherKey string, delivered []string, rest []domain.AccessControlEntry, cause error) error {
	pending := make([]string, len(rest))
	queued := make([]ports.PendingKey, len(rest))
	for i, e := range rest {
		pending[i] = e.PrincipalNodeID
		queued[i] = ports.PendingKey{
			NodeID:          nodeID,
			PrincipalNodeID: e.PrincipalNodeID,
			PrincipalName:   e.PrincipalName,
			PublicKey:       e.PublicKey,
			CipherKey:       cipherKey,
			Seq:             i,
			LastError:       cause.Error(),
			QueuedAt:        d.now(),
		}
	}

	if d.queue != nil && cipherKey != "" {
		// The caller's context may be the reason we stopped.
		if err := d.queue.Enqueue(context.WithoutCancel(ctx), queued); err != nil {
			d.logger.Error("failed to queue undelivered keys", "node", nodeID, "error", err)
		}
	}
	d.logger.Warn("partial key distribution",
		"node", nodeID,
		"delivered", len(delivered),
		"pending", len(pending),
		"error", cause)

	return &application.PartialDistributionError{
		NodeID:    nodeID,
		Delivered: delivered,
		Failed:    pending[0],
		Pending:   pending,
		Err:       cause,
	}
}

// RetryReport summarizes one pass over the queue.
type RetryReport struct {
	Delivered int
	Remaining int
	Failures  map[string]error // node id -> first failure
}

// RetryPending replays queued deliveries per node in their original
// order, stopping a node at its first failure. Delivered entries leave
// the queue.
func (d *Distributor) RetryPending(ctx context.Context) (*RetryReport, error) {
	report := &RetryReport{Failures: make(map[string]error)}
	if d.queue == nil {
		return report, nil
	}
	pending, err := d.queue.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending keys: %w", err)
	}

	var order []string
	byNode := make(map[string][]ports.PendingKey)
	for _, p := range pending {
		if _, ok := byNode[p.NodeID]; !ok {
			order = append(order, p.NodeID)
		}
		byNode[p.NodeID] = append(byNode[p.NodeID], p)
	}

	for _, nodeID := range order {
		entries := byNode[nodeID]
		for i, p := range entries {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if err := d.deliver(ctx, p.NodeID, p.CipherKey, p.PrincipalNodeID, p.PublicKey); err != nil {
				report.Failures[nodeID] = err
				report.Remaining += len(entries) - i
				d.logger.Warn("pending key still undeliverable", "node", nodeID, "principal", p.PrincipalNodeID, "error", err)
				break
			}
			if err := d.queue.Remove(ctx, p.NodeID, p.PrincipalNodeID); err != nil {
				return report, fmt.Errorf("failed to dequeue delivered key: %w", err)
			}
			report.Delivered++
		}
	}

	if report.Delivered > 0 || report.Remaining > 0 {
		d.logger.Info("pending key retry finished", "delivered", report.Delivered, "remaining", report.Remaining)
	}
	return report, nil
}
