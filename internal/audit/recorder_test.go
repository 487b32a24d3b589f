package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johsantss21/Thays-admin/pkg/db/dbtest"
	"github.com/johsantss21/Thays-admin/pkg/db/models"
	"github.com/johsantss21/Thays-admin/pkg/enums"
	"github.com/johsantss21/Thays-admin/pkg/logger"
)

func TestRecorderPersistsEntry(t *testing.T) {
	db := dbtest.Open(t)
	subID := uuid.New()

	NewRecorder(db, logger.Nop()).Record(context.Background(), Entry{
		EventType:  "rec_aprovada",
		EntityType: EntitySubscription,
		EntityID:   &subID,
		Payload:    map[string]any{"idRec": "RR123"},
	})

	var rows []models.SystemAuditLog
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "rec_aprovada", rows[0].EventType)
	assert.Equal(t, enums.AuditSuccess, rows[0].Status)
	require.NotNil(t, rows[0].EntityID)
	assert.Equal(t, subID, *rows[0].EntityID)
	assert.Equal(t, "RR123", rows[0].PayloadJSON["idRec"])
}

func TestRecorderSwallowsWriteFailure(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Exec("DROP TABLE system_audit_logs").Error)

	assert.NotPanics(t, func() {
		NewRecorder(db, logger.Nop()).Record(context.Background(), Entry{
			EventType:  "pix_webhook_erro",
			EntityType: EntityWebhook,
			Status:     enums.AuditError,
		})
	})
}
