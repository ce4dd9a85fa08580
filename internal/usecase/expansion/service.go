package expansion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/db"
	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

const (
	cacheKeyPrefix = "kb:exp_cache:"

	// maxExtra bounds the expansion set: the original plus at most two
	// alternatives.
	maxExtra = 2

	maxRewriteWords = 12

	genericInstruction = "Rewrite the user's question in 3 semantically varied ways, " +
		"one per line, at most 12 words each. Preserve the topic and every named " +
		"entity. Do not introduce new subjects, people, or topics."
)

// namePattern matches a capitalized first-plus-last name in query text, used
// to detect a named subject when no hint is supplied.
var namePattern = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)

// Service proposes alternate phrasings of a query. Entity queries get fixed
// templates pinned to the subject; everything else gets generated rewrites.
// Every candidate passes the drift guard, and results are cached per
// (session, normalized query).
type Service struct {
	gen     Generator
	cache   kv
	guard   *driftGuard
	ttl     time.Duration
	dropped *prometheus.CounterVec
	rounds  prometheus.Counter
	logger  *zap.Logger
}

// New creates an expansion service.
func New(
	gen Generator, cache kv, blocklistExtra []string, ttl time.Duration,
	dropped *prometheus.CounterVec, rounds prometheus.Counter,
	logger *zap.Logger,
) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		gen:     gen,
		cache:   cache,
		guard:   newDriftGuard(blocklistExtra),
		ttl:     ttl,
		dropped: dropped,
		rounds:  rounds,
		logger:  logger,
	}
}

// Expand returns the query text plus at most two alternative phrasings.
// Generation failures and unusable rewrites degrade to a shorter list; the
// original is always first. The result is cached for the session.
func (s *Service) Expand(ctx context.Context, q domain.Query) []string {
	original := q.Text()
	if original == "" {
		return []string{original}
	}

	key := s.cacheKey(q.SessionID(), original)
	if cached, ok := s.getFromCache(ctx, key); ok {
		return cached
	}

	if s.rounds != nil {
		s.rounds.Inc()
	}

	var extras []string
	if subject := resolveSubject(q); subject != "" {
		extras = s.entityPinned(subject)
	} else {
		extras = s.generic(ctx, original)
	}

	guarded := make([]string, 0, maxExtra)
	for _, cand := range extras {
		if !s.guard.allows(original, cand) {
			s.incDropped("drift")
			s.logger.Warn("Expansion candidate dropped by drift guard",
				zap.String("candidate", cand))
			continue
		}
		guarded = append(guarded, cand)
		if len(guarded) == maxExtra {
			break
		}
	}

	result := append([]string{original}, guarded...)
	s.putToCache(ctx, key, result)
	return result
}

// resolveSubject finds a named subject from hints first, then from a name
// pattern in the text.
func resolveSubject(q domain.Query) string {
	if name := strings.TrimSpace(q.Hints().Name); name != "" {
		return name
	}
	return namePattern.FindString(q.Text())
}

// entityPinned emits fixed templates anchored to the subject. No generation
// call is made for entity queries: a model must not be invited to invent
// content about a real individual.
func (s *Service) entityPinned(subject string) []string {
	return []string{
		fmt.Sprintf("%s current status", subject),
		fmt.Sprintf("%s next steps", subject),
		fmt.Sprintf("%s relevant information", subject),
	}
}

// generic asks the generation service for rewrites and keeps the usable
// lines: non-empty, within the word budget, not a copy of the original.
func (s *Service) generic(ctx context.Context, original string) []string {
	raw, err := s.gen.Generate(ctx, genericInstruction, original)
	if err != nil {
		s.logger.Warn("Expansion generation failed, continuing without rewrites",
			zap.Error(err))
		return nil
	}

	normOriginal := strings.ToLower(strings.TrimSpace(original))
	seen := map[string]bool{normOriginal: true}

	var extras []string
	for _, line := range strings.Split(raw, "\n") {
		cand := cleanRewrite(line)
		if cand == "" {
			continue
		}
		if len(strings.Fields(cand)) > maxRewriteWords {
			s.incDropped("malformed")
			continue
		}
		norm := strings.ToLower(cand)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		extras = append(extras, cand)
	}
	return extras
}

// cleanRewrite strips list markers and quotes the generator tends to add.
func cleanRewrite(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*0123456789.) ")
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// --- Cache ---

func (s *Service) cacheKey(sessionID, query string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.Sum256([]byte(sessionID + "|" + norm))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (s *Service) getFromCache(ctx context.Context, key string) ([]string, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			s.logger.Warn("Failed to read expansion cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var result []string
	if err := json.Unmarshal(data, &result); err != nil || len(result) == 0 {
		return nil, false
	}
	return result, true
}

func (s *Service) putToCache(ctx context.Context, key string, result []string) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.SetWithTTL(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("Failed to write expansion cache", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) incDropped(reason string) {
	if s.dropped != nil {
		s.dropped.WithLabelValues(reason).Inc()
	}
}
