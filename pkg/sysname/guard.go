// Package sysname guards the highest-risk fleet operation: renaming an
// OLT. A rename silently changes the routing keys downstream consumers
// are bound to, so changes pass format and policy validation, respect a
// cooldown, are backed up before and verified after, and stay reversible
// inside a bounded rollback window.
package sysname

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/inventory"
)

const (
	historyLimit   = 50
	cooldown       = 24 * time.Hour
	rollbackWindow = time.Hour
)

// ChangeRecord is one audit entry. Appended, never mutated.
type ChangeRecord struct {
	OltID             string    `json:"olt_id"`
	OldSysname        string    `json:"old_sysname"`
	NewSysname        string    `json:"new_sysname"`
	Timestamp         time.Time `json:"timestamp"`
	UserID            string    `json:"user_id,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	Success           bool      `json:"success"`
	RollbackAvailable bool      `json:"rollback_available"`
}

// ChangeRequest is a proposed rename.
type ChangeRequest struct {
	OltID      string
	NewSysname string
	UserID     string
	Reason     string
	// Force skips validation entirely. Used by rollback and by operators
	// who have already verified the rename out of band.
	Force bool
}

// DeviceClient is the device-side surface the guard drives.
type DeviceClient interface {
	CurrentSysname(ctx context.Context, oltID string) (string, error)
	ApplySysname(ctx context.Context, oltID, sysname string) error
	BackupConfig(ctx context.Context, oltID string) error
}

// Inventory is the subset of the inventory client the guard consults.
type Inventory interface {
	LookupByName(ctx context.Context, name string) (*inventory.Identity, error)
	Status(ctx context.Context, oltID string) (string, error)
}

// Guard serializes sysname changes per OLT and keeps the audit history.
type Guard struct {
	device DeviceClient
	inv    Inventory
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	history map[string][]ChangeRecord
	olts    map[string]*sync.Mutex
}

// NewGuard creates a guard.
func NewGuard(device DeviceClient, inv Inventory, logger *zap.Logger) *Guard {
	return &Guard{
		device:  device,
		inv:     inv,
		logger:  logger,
		now:     time.Now,
		history: make(map[string][]ChangeRecord),
		olts:    make(map[string]*sync.Mutex),
	}
}

// oltLock serializes the whole change sequence per OLT. Two concurrent
// requests must not both pass the cooldown read before either appends its
// record.
func (g *Guard) oltLock(oltID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.olts[oltID]
	if !ok {
		l = &sync.Mutex{}
		g.olts[oltID] = l
	}
	return l
}

// Change runs the full Proposed -> Validated -> Applied -> Verified
// sequence. Every terminal outcome, success or failure past validation,
// is appended to the OLT's history.
func (g *Guard) Change(ctx context.Context, req ChangeRequest) (*ChangeRecord, error) {
	lock := g.oltLock(req.OltID)
	lock.Lock()
	defer lock.Unlock()

	current, err := g.device.CurrentSysname(ctx, req.OltID)
	if err != nil {
		return nil, err
	}

	if !req.Force {
		if err := g.validate(ctx, req, current); err != nil {
			g.append(ChangeRecord{
				OltID:      req.OltID,
				OldSysname: current,
				NewSysname: req.NewSysname,
				Timestamp:  g.now(),
				UserID:     req.UserID,
				Reason:     req.Reason,
				Success:    false,
			})
			return nil, err
		}
	}

	// Best effort: a failed backup is logged, never blocks the change.
	if err := g.device.BackupConfig(ctx, req.OltID); err != nil {
		g.logger.Warn("pre-change backup failed",
			zap.String("olt_id", req.OltID),
			zap.Error(err))
	}

	record := ChangeRecord{
		OltID:      req.OltID,
		OldSysname: current,
		NewSysname: req.NewSysname,
		Timestamp:  g.now(),
		UserID:     req.UserID,
		Reason:     req.Reason,
	}

	if err := g.device.ApplySysname(ctx, req.OltID, req.NewSysname); err != nil {
		g.append(record)
		return nil, err
	}

	// The command can "succeed" while the device keeps the old name;
	// verification is what flips the record to success.
	applied, err := g.device.CurrentSysname(ctx, req.OltID)
	if err != nil {
		g.append(record)
		return nil, err
	}
	if !strings.EqualFold(applied, req.NewSysname) {
		g.append(record)
		return nil, policyErr(CodeVerify,
			"device reports sysname %q after change to %q", applied, req.NewSysname)
	}

	record.Success = true
	record.RollbackAvailable = true
	g.append(record)
	g.logger.Info("sysname changed",
		zap.String("olt_id", req.OltID),
		zap.String("old", current),
		zap.String("new", req.NewSysname),
		zap.String("user", req.UserID))
	return &record, nil
}

func (g *Guard) validate(ctx context.Context, req ChangeRequest, current string) error {
	if err := ValidateFormat(req.NewSysname); err != nil {
		return err
	}
	if strings.EqualFold(req.NewSysname, current) {
		return policyErr(CodeIdentical, "sysname is already %q", current)
	}

	if other, err := g.inv.LookupByName(ctx, req.NewSysname); err == nil {
		if other.ID != req.OltID {
			return policyErr(CodeDuplicate, "sysname %q already belongs to olt %s", req.NewSysname, other.ID)
		}
	} else if !errors.Is(err, inventory.ErrNotFound) {
		return err
	}

	status, err := g.inv.Status(ctx, req.OltID)
	if err != nil {
		return err
	}
	if status != "active" {
		return policyErr(CodeStatus, "olt %s is %q, only active devices may be renamed", req.OltID, status)
	}

	if last, ok := g.lastSuccessful(req.OltID); ok {
		if age := g.now().Sub(last.Timestamp); age < cooldown {
			return policyErr(CodeCooldown,
				"last successful change was %s ago, cooldown is %s", age.Round(time.Minute), cooldown)
		}
	}
	return nil
}

// Rollback reverts the most recent change. Permitted only when that
// record succeeded and is younger than the rollback window.
func (g *Guard) Rollback(ctx context.Context, oltID, userID string) (*ChangeRecord, error) {
	g.mu.Lock()
	records := g.history[oltID]
	var latest *ChangeRecord
	if len(records) > 0 {
		latest = &records[len(records)-1]
	}
	g.mu.Unlock()

	if latest == nil {
		return nil, policyErr(CodeNoHistory, "no change history for olt %s", oltID)
	}
	if !latest.Success {
		return nil, policyErr(CodeRollbackWindow, "most recent change for olt %s failed, nothing to roll back", oltID)
	}
	if age := g.now().Sub(latest.Timestamp); age > rollbackWindow {
		return nil, policyErr(CodeRollbackWindow,
			"change is %s old, rollback window is %s", age.Round(time.Minute), rollbackWindow)
	}

	return g.Change(ctx, ChangeRequest{
		OltID:      oltID,
		NewSysname: latest.OldSysname,
		UserID:     userID,
		Reason:     "rollback of change to " + latest.NewSysname,
		Force:      true,
	})
}

// History returns a copy of the OLT's audit ring, oldest first.
func (g *Guard) History(oltID string) []ChangeRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	records := g.history[oltID]
	out := make([]ChangeRecord, len(records))
	copy(out, records)
	return out
}

func (g *Guard) append(r ChangeRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	records := append(g.history[r.OltID], r)
	if len(records) > historyLimit {
		records = records[len(records)-historyLimit:]
	}
	g.history[r.OltID] = records
}

func (g *Guard) lastSuccessful(oltID string) (ChangeRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	records := g.history[oltID]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Success {
			return records[i], true
		}
	}
	return ChangeRecord{}, false
}
