package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/models"
)

var (
	ErrDraftNotFound  = errors.New("draft not found")
	ErrUnknownProduct = errors.New("unknown product type")
)

// DefaultDraftTTL is how long an untouched draft survives in Redis
const DefaultDraftTTL = 24 * time.Hour

// DraftSession is one live draft and the user that owns it
type DraftSession struct {
	TenantID string
	OwnerID  string
	Store    *draft.Store

	// saveMu orders autosaves of this session against each other and
	// against Delete.
	saveMu    sync.Mutex
	discarded bool
}

// ID returns the draft id
func (s *DraftSession) ID() uuid.UUID { return s.Store.ID() }

// savedDraft is the autosave document kept in Redis
type savedDraft struct {
	TenantID string         `json:"tenantId"`
	OwnerID  string         `json:"ownerId"`
	Snapshot draft.Snapshot `json:"snapshot"`
}

// DraftRepository keeps the live draft sessions. Sessions live in memory;
// when Redis is available every save also writes a snapshot there so a draft
// survives a restart (attachments excepted).
type DraftRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*DraftSession

	schemas *models.SchemaRegistry
	redis   *redis.Client
	ttl     time.Duration
	logger  *logrus.Entry
}

// NewDraftRepository creates a repository; redisClient may be nil
func NewDraftRepository(schemas *models.SchemaRegistry, redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *DraftRepository {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &DraftRepository{
		sessions: make(map[uuid.UUID]*DraftSession),
		schemas:  schemas,
		redis:    redisClient,
		ttl:      ttl,
		logger:   logger.WithField("component", "draft_repository"),
	}
}

// saveScript writes the autosave unless Redis already holds a newer version
// of the draft, written by a later save or by another replica.
var saveScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, doc = pcall(cjson.decode, current)
	if ok and type(doc) == "table" and type(doc.snapshot) == "table" then
		local version = tonumber(doc.snapshot.version)
		if version and version > tonumber(ARGV[2]) then
			return 0
		end
	end
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

func draftKey(tenantID string, id uuid.UUID) string {
	return fmt.Sprintf("draft:%s:%s", tenantID, id.String())
}

// Create starts a new empty draft of productType
func (r *DraftRepository) Create(ctx context.Context, tenantID, ownerID, productType string) (*DraftSession, error) {
	schema, ok := r.schemas.Get(productType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, productType)
	}
	return r.Add(ctx, tenantID, ownerID, draft.New(schema))
}

// Add registers an already built store, e.g. one hydrated from an import
func (r *DraftRepository) Add(ctx context.Context, tenantID, ownerID string, store *draft.Store) (*DraftSession, error) {
	session := &DraftSession{TenantID: tenantID, OwnerID: ownerID, Store: store}

	r.mu.Lock()
	r.sessions[store.ID()] = session
	r.mu.Unlock()

	if err := r.Save(ctx, session); err != nil {
		r.logger.WithError(err).WithField("draft_id", store.ID()).Warn("Failed to autosave new draft")
	}
	return session, nil
}

// Get returns the session if it belongs to tenantID and ownerID. A draft
// that is not in memory is restored from its Redis snapshot.
func (r *DraftRepository) Get(ctx context.Context, tenantID, ownerID string, id uuid.UUID) (*DraftSession, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()

	if ok {
		if session.TenantID != tenantID || session.OwnerID != ownerID {
			return nil, ErrDraftNotFound
		}
		return session, nil
	}

	session, err := r.restore(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, ErrDraftNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok {
		return existing, nil
	}
	r.sessions[id] = session
	return session, nil
}

// List returns the sessions owned by ownerID within tenantID
func (r *DraftRepository) List(tenantID, ownerID string) []*DraftSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*DraftSession
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out
}

// Save writes the current snapshot to Redis. It is a no-op without Redis,
// for a session that is no longer registered, and when Redis already holds
// a newer version of the draft.
func (r *DraftRepository) Save(ctx context.Context, session *DraftSession) error {
	if r.redis == nil {
		return nil
	}

	session.saveMu.Lock()
	defer session.saveMu.Unlock()

	r.mu.RLock()
	registered := r.sessions[session.ID()] == session
	r.mu.RUnlock()
	if !registered || session.discarded {
		return nil
	}

	snapshot := session.Store.Snapshot()
	data, err := json.Marshal(savedDraft{
		TenantID: session.TenantID,
		OwnerID:  session.OwnerID,
		Snapshot: snapshot,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	key := draftKey(session.TenantID, session.ID())
	written, err := saveScript.Run(ctx, r.redis, []string{key}, data, snapshot.Version, r.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	if written == 0 {
		r.logger.WithFields(logrus.Fields{
			"draft_id": session.ID(),
			"version":  snapshot.Version,
		}).Debug("Skipped autosave, a newer version is already stored")
	}
	return nil
}

// Delete discards the draft from memory and Redis. Saves still in flight
// for the session finish first; later ones are skipped.
func (r *DraftRepository) Delete(ctx context.Context, tenantID, ownerID string, id uuid.UUID) error {
	session, err := r.Get(ctx, tenantID, ownerID, id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.sessions[id] == session {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	session.saveMu.Lock()
	defer session.saveMu.Unlock()
	session.discarded = true

	if r.redis != nil {
		if err := r.redis.Del(ctx, draftKey(tenantID, id)).Err(); err != nil {
			r.logger.WithError(err).WithField("draft_id", id).Warn("Failed to delete draft snapshot")
		}
	}
	return nil
}

func (r *DraftRepository) restore(ctx context.Context, tenantID string, id uuid.UUID) (*DraftSession, error) {
	if r.redis == nil {
		return nil, ErrDraftNotFound
	}
	val, err := r.redis.Get(ctx, draftKey(tenantID, id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	var saved savedDraft
	if err := json.Unmarshal([]byte(val), &saved); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	if saved.TenantID != tenantID {
		return nil, ErrDraftNotFound
	}
	schema, ok := r.schemas.Get(saved.Snapshot.ProductType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, saved.Snapshot.ProductType)
	}
	store, err := draft.Hydrate(schema, saved.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to restore draft %s: %w", id, err)
	}

	r.logger.WithFields(logrus.Fields{
		"draft_id":  id,
		"tenant_id": tenantID,
	}).Info("Draft restored from autosave")

	return &DraftSession{TenantID: saved.TenantID, OwnerID: saved.OwnerID, Store: store}, nil
}
