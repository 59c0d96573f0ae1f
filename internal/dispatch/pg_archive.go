package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loodlijn/dispatch/pkg/logging"
)

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TurnArchive writes completed turns to Postgres for reporting. Archiving is
// best effort: a failed insert is logged and never fails the turn.
type TurnArchive struct {
	db     pgExecer
	logger *logging.Logger
}

func NewTurnArchive(db pgExecer, logger *logging.Logger) *TurnArchive {
	if db == nil {
		panic("dispatch: archive db cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TurnArchive{db: db, logger: logger}
}

const insertTurnSQL = `
INSERT INTO conversation_turns
	(org_id, conversation_id, turn_index, urgency_tier, categories,
	 estimated_cost, trigger_booking, backend_used, degraded, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (org_id, conversation_id, turn_index) DO NOTHING`

// Archive records one completed turn.
func (a *TurnArchive) Archive(ctx context.Context, orgID, conversationID string, turnIndex int, turn TurnResult) {
	payload, err := json.Marshal(turn)
	if err != nil {
		a.logger.Error("archive marshal failed", slog.String("error", err.Error()))
		return
	}

	_, err = a.db.Exec(ctx, insertTurnSQL,
		orgID,
		conversationID,
		turnIndex,
		turn.UrgencyTier.String(),
		strings.Join(turn.Categories, ","),
		turn.EstimatedCost,
		turn.TriggerBooking,
		string(turn.BackendUsed),
		turn.Degraded,
		payload,
		turn.Timestamp,
	)
	if err != nil {
		a.logger.Error("archive insert failed",
			slog.String("conversation_id", conversationID),
			slog.String("error", fmt.Sprintf("%v", err)),
		)
	}
}
