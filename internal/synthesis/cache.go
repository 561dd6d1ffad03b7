package synthesis

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Raikerian/go-voice-ingest/pkg/audio"
)

// PhraseCache holds recently synthesized phrases keyed by their text.
type PhraseCache struct {
	*lru.Cache[string, audio.Speech]
}

// NewPhraseCache creates a PhraseCache with the given size.
func NewPhraseCache(size int) (*PhraseCache, error) {
	lruCache, err := lru.New[string, audio.Speech](size)
	if err != nil {
		return nil, err
	}

	return &PhraseCache{
		Cache: lruCache,
	}, nil
}

// Add stores speech for text. The samples are not copied; callers must not
// modify them afterwards.
func (pc *PhraseCache) Add(text string, speech audio.Speech) {
	pc.Cache.Add(text, speech)
}

// Get looks up the speech for text.
func (pc *PhraseCache) Get(text string) (audio.Speech, bool) {
	return pc.Cache.Get(text)
}
