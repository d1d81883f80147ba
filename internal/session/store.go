package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/centennial-infotech/portal/internal/log"
	"github.com/centennial-infotech/portal/internal/storage"
)

// Storage keys, shared with the web client's local storage layout.
const (
	KeyToken       = "token"
	KeyUserID      = "userId"
	KeyIsAdmin     = "isAdmin"
	KeyLoginType   = "loginType"
	KeyCurrentPlan = "currentPlan"
	KeyIsNewUser   = "isNewUser"
)

// Keys lists every key the store owns.
var Keys = []string{KeyToken, KeyUserID, KeyIsAdmin, KeyLoginType, KeyCurrentPlan, KeyIsNewUser}

// Store persists a Session as independent string keys. It never fails
// outward: read problems degrade to defaults and write problems are logged.
type Store struct {
	kv     storage.KV
	logger *log.Logger
	now    func() time.Time
}

// NewStore creates a store over kv.
func NewStore(kv storage.KV, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		kv:     kv,
		logger: logger.WithComponent("session-store"),
		now:    time.Now,
	}
}

// Load reads the persisted session. Missing or malformed keys take their
// defaults and an expired JWT is treated as no token.
func (s *Store) Load(ctx context.Context) Session {
	get := func(key string) string {
		v, _, err := s.kv.Get(ctx, key)
		if err != nil {
			s.logger.WithError(err).Warn("failed to read session key", "key", key)
			return ""
		}
		return v
	}

	sess := Session{
		Token:  get(KeyToken),
		UserID: get(KeyUserID),
		Role:   RoleStandard,
	}
	if get(KeyIsAdmin) == "true" {
		sess.Role = RoleAdmin
	}
	if lt, ok := ParseLoginType(get(KeyLoginType)); ok {
		sess.LoginType = lt
	}
	sess.Subscription.Plan = ParsePlan(get(KeyCurrentPlan))
	sess.IsNewUser = get(KeyIsNewUser) == "true"

	if sess.Token != "" && s.expired(sess.Token) {
		s.logger.Info("stored token has expired", "user_id", sess.UserID)
		sess = Session{Role: sess.Role, IsNewUser: sess.IsNewUser}
	}
	return sess
}

// expired reports whether token is a JWT whose exp claim has passed.
// Tokens that are not JWTs, or carry no exp, never expire client-side.
func (s *Store) expired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(s.now())
}

// Save writes every persisted field of sess. Empty values delete their key.
// A failing key does not stop the others from being written.
func (s *Store) Save(ctx context.Context, sess Session) {
	isAdmin := "false"
	if sess.Role == RoleAdmin {
		isAdmin = "true"
	}
	isNewUser := ""
	if sess.IsNewUser {
		isNewUser = "true"
	}

	s.put(ctx, KeyToken, sess.Token)
	s.put(ctx, KeyUserID, sess.UserID)
	s.put(ctx, KeyIsAdmin, isAdmin)
	s.put(ctx, KeyLoginType, string(sess.LoginType))
	s.put(ctx, KeyCurrentPlan, string(sess.Subscription.Plan))
	s.put(ctx, KeyIsNewUser, isNewUser)
}

// SavePlan persists only the current plan.
func (s *Store) SavePlan(ctx context.Context, plan Plan) {
	s.put(ctx, KeyCurrentPlan, string(plan))
}

// SaveNewUser persists only the new-user flag.
func (s *Store) SaveNewUser(ctx context.Context, isNew bool) {
	v := ""
	if isNew {
		v = "true"
	}
	s.put(ctx, KeyIsNewUser, v)
}

// Clear removes every session key.
func (s *Store) Clear(ctx context.Context) {
	for _, key := range Keys {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.logger.WithError(err).Warn("failed to delete session key", "key", key)
		}
	}
}

func (s *Store) put(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = s.kv.Delete(ctx, key)
	} else {
		err = s.kv.Set(ctx, key, value)
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to write session key", "key", key)
	}
}
