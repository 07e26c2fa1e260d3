package domain

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimensions is the vector size stored for every announcement.
const EmbeddingDimensions = 768

// AnnouncementEmbedding is the stored vector of an announcement's text.
type AnnouncementEmbedding struct {
	AnnouncementID uuid.UUID `json:"announcementId"`
	Embedding      []float32 `json:"-"`
	ContentHash    string    `json:"contentHash"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ContentHash is the hex MD5 of text. It only detects changes; it is not
// used for anything security related.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
