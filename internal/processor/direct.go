package processor

import (
	"context"
	"fmt"
	"strings"
)

// DirectSyncRequest is the non-queued variant: one transfer + link + order
// update with no queue row involved.
type DirectSyncRequest struct {
	OrderID     string
	HotPath     string
	ColdPath    string
	TargetField string
}

// SyncDirect runs the same core sequence as ProcessTask but without queue
// bookkeeping. Used for one-off syncs triggered straight from the dashboard.
func (p *Processor) SyncDirect(ctx context.Context, req DirectSyncRequest) (string, error) {
	if req.OrderID == "" || req.HotPath == "" || req.ColdPath == "" {
		return "", fmt.Errorf("orderId, firebasePath and dropboxPath are required")
	}
	return p.runSync(ctx, syncRequest{
		orderID:     req.OrderID,
		hotPath:     req.HotPath,
		coldPath:    req.ColdPath,
		targetField: req.TargetField,
	})
}

// CleanupStorage deletes every hot-storage object under prefix. When prefix
// is empty it is derived from the order's stored base path.
func (p *Processor) CleanupStorage(ctx context.Context, orderID, prefix string) (int, error) {
	if prefix == "" {
		if orderID == "" {
			return 0, fmt.Errorf("orderId or prefix is required")
		}
		order, err := p.Store.GetOrder(ctx, orderID)
		if err != nil {
			return 0, fmt.Errorf("load order: %w", err)
		}
		if order == nil || order.HotBasePath == "" {
			return 0, fmt.Errorf("order %s has no stored storage path", orderID)
		}
		prefix = order.HotBasePath
	}

	// A bare or root-level prefix would wipe the bucket.
	if strings.Trim(prefix, "/") == "" {
		return 0, fmt.Errorf("refusing to delete with empty prefix")
	}

	return p.Hot.DeletePrefix(ctx, prefix)
}
