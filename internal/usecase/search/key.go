package search

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"

	"github.com/kailas-cloud/khoj/internal/domain"
	"github.com/kailas-cloud/khoj/internal/domain/search/request"
	"github.com/kailas-cloud/khoj/internal/nlp"
)

var cacheKeyPrefix = domain.KeyPrefix + "search:" + nlp.PipelineVersion + ":"

// CacheKey derives the result-cache key for a query. Fields are length-prefixed;
// the pipeline version segment retires entries when processing or ranking changes.
func CacheKey(q request.Query) string {
	h := sha256.New()
	for _, f := range []string{q.Q(), q.Cursor(), strconv.Itoa(q.Limit()), q.Language()} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(f)))
		h.Write(n[:])
		h.Write([]byte(f))
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
