package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"catalog_sync/internal/domain"
)

type hashInput struct {
	Title         string                `json:"title"`
	Summary       string                `json:"summary"`
	Content       string                `json:"content"`
	TimeIntervals []domain.TimeInterval `json:"timeIntervals"`
}

// SyncHash fingerprints the fields whose change should update an imported listing.
// Metadata such as media or categories is left out on purpose.
func SyncHash(title, summary, content string, intervals []domain.TimeInterval) string {
	// Marshal cannot fail for these field types.
	data, _ := json.Marshal(hashInput{
		Title:         title,
		Summary:       summary,
		Content:       content,
		TimeIntervals: intervals,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
