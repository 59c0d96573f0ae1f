package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loodlijn/dispatch/pkg/logging"
)

type fakeExecer struct {
	sql  string
	args []any
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.CommandTag{}, f.err
}

func TestTurnArchiveInsertsTurn(t *testing.T) {
	db := &fakeExecer{}
	archive := NewTurnArchive(db, logging.NewText("error"))

	turn := TurnResult{
		CustomerMessage: "de kraan lekt",
		Text:            "Ik plan een monteur in.",
		UrgencyTier:     TierNormal,
		Categories:      []string{CategoryLeakRepair, CategoryGeneral},
		EstimatedCost:   95,
		BackendUsed:     BackendFast,
		Timestamp:       time.Now().UTC(),
	}
	archive.Archive(context.Background(), "org1", "conv-1", 3, turn)

	require.Contains(t, db.sql, "INSERT INTO conversation_turns")
	require.Contains(t, db.sql, "ON CONFLICT (org_id, conversation_id, turn_index) DO NOTHING")
	require.Len(t, db.args, 11)
	assert.Equal(t, "org1", db.args[0])
	assert.Equal(t, "conv-1", db.args[1])
	assert.Equal(t, 3, db.args[2])
	assert.Equal(t, "normal", db.args[3])
	assert.Equal(t, "leak_repair,general", db.args[4])
	assert.Equal(t, 95, db.args[5])
}

func TestTurnArchiveSwallowsInsertFailure(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection refused")}
	archive := NewTurnArchive(db, logging.NewText("error"))

	assert.NotPanics(t, func() {
		archive.Archive(context.Background(), "org1", "conv-1", 0, TurnResult{})
	})
}
