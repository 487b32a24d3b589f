package models

import (
	"github.com/google/uuid"
)

// ensureID assigns a fresh id when the caller left it zero so inserts do not
// depend on a database-side uuid generator.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
