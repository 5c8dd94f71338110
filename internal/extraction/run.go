package extraction

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// NewRun builds the persisted record of one extraction.
func NewRun(in entity.ExtractionInput, rep Report) *entity.ExtractionRun {
	sum := sha256.Sum256(in.Bytes)
	states := make([]string, len(rep.States))
	for i, s := range rep.States {
		states[i] = string(s)
	}
	return &entity.ExtractionRun{
		ID:            uuid.NewString(),
		Filename:      in.OriginalFilename,
		MIMEType:      in.MIMEType,
		ContentSHA256: hex.EncodeToString(sum[:]),
		Method:        rep.Method,
		ModelUsed:     rep.ModelUsed,
		ModelError:    rep.ModelError,
		States:        states,
		Fields:        rep.Fields,
		Sources:       rep.Sources,
		DurationMS:    rep.Duration.Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
}
