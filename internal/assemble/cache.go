package assemble

import (
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/temirov/impromptu/internal/tokenizer"
)

// DefaultCacheSize bounds the number of per-file measurements kept between estimates.
const DefaultCacheSize = 4096

// fileMeasure records the size of one file's normalized contents at a given size and mtime.
type fileMeasure struct {
	sizeBytes     int64
	modified      time.Time
	characters    int
	tokens        int
	tokensCounted bool
}

func (measure fileMeasure) matches(info os.FileInfo) bool {
	return info.Size() == measure.sizeBytes && info.ModTime().Equal(measure.modified)
}

type measureCache struct {
	entries *lru.Cache[string, fileMeasure]
}

func newMeasureCache(size int) (*measureCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, fileMeasure](size)
	if err != nil {
		return nil, err
	}
	return &measureCache{entries: entries}, nil
}

func (cache *measureCache) lookup(path string, info os.FileInfo) (fileMeasure, bool) {
	measure, found := cache.entries.Get(path)
	if !found || !measure.matches(info) {
		return fileMeasure{}, false
	}
	return measure, true
}

func (cache *measureCache) store(path string, measure fileMeasure) {
	cache.entries.Add(path, measure)
}

func (cache *measureCache) evict(path string) {
	cache.entries.Remove(path)
}

func (cache *measureCache) purge() {
	cache.entries.Purge()
}

func measureContent(info os.FileInfo, content string, counter tokenizer.Counter) (fileMeasure, error) {
	measure := fileMeasure{
		sizeBytes:  info.Size(),
		modified:   info.ModTime(),
		characters: runeCount(content),
	}
	if counter == nil {
		return measure, nil
	}
	result, err := tokenizer.CountString(counter, content)
	if err != nil {
		return measure, err
	}
	measure.tokens = result.Tokens
	measure.tokensCounted = result.Counted
	return measure, nil
}
