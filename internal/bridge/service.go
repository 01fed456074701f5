// Package bridge adapts Naver, which has no native federation with the auth
// backend, into the backend's session model. It resolves a Naver access token
// to a profile, provisions the backend user, and mints a session through the
// backend's magic-link verification endpoint.
package bridge

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"bookshell/internal/backend"
	"bookshell/internal/naver"
)

// ErrInvalidRequest is returned when the exchange request lacks an access token.
var ErrInvalidRequest = errors.New("access token is required")

const (
	defaultExpiresIn  = 3600
	listUsersPageSize = 200
	passwordLength    = 32
)

// ProfileAPI resolves Naver profiles from access tokens.
type ProfileAPI interface {
	Fetch(ctx context.Context, accessToken string) (naver.Profile, error)
}

// AdminAPI is the subset of the backend admin surface the bridge needs.
type AdminAPI interface {
	CreateUser(ctx context.Context, params backend.CreateUserParams) (*backend.User, error)
	GetUserByID(ctx context.Context, id string) (*backend.User, error)
	UpdateUserByID(ctx context.Context, id string, params backend.UpdateUserParams) (*backend.User, error)
	ListUsers(ctx context.Context, page, perPage int) (*backend.UserList, error)
	GenerateLink(ctx context.Context, linkType, email string) (*backend.GeneratedLink, error)
}

// ExchangeRequest is the client's token exchange payload.
type ExchangeRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn,omitempty"`
}

// BridgeUser is the profile summary returned alongside the session.
type BridgeUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	NaverID   string `json:"naver_id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
	Provider  string `json:"provider"`
	IsNewUser bool   `json:"is_new_user"`
}

// Warning records a secondary operation that failed without blocking login.
type Warning struct {
	Op  string
	Err error
}

// ExchangeResult is the outcome of a successful exchange. Warnings list
// secondary failures (metadata patch, token upsert, session mint) that were
// traded for login availability.
type ExchangeResult struct {
	Session  *backend.Session
	User     BridgeUser
	Warnings []Warning
}

// Warned reports whether the named secondary operation failed.
func (r *ExchangeResult) Warned(op string) bool {
	for _, w := range r.Warnings {
		if w.Op == op {
			return true
		}
	}
	return false
}

// Warning operation names.
const (
	WarnMetadataUpdate = "metadata_update"
	WarnSessionMint    = "session_mint"
	WarnProviderPatch  = "provider_patch"
	WarnLinkUpsert     = "link_upsert"
)

// Service performs the Naver-to-backend identity exchange.
type Service struct {
	profiles ProfileAPI
	admin    AdminAPI
	links    LinkRepository
	minter   *sessionMinter
	logger   *slog.Logger
}

// NewService creates a bridge Service. backendURL is the base URL whose
// verify endpoint mints sessions.
func NewService(profiles ProfileAPI, admin AdminAPI, links LinkRepository, verifier LinkVerifier, backendURL string, logger *slog.Logger) *Service {
	return &Service{
		profiles: profiles,
		admin:    admin,
		links:    links,
		minter:   &sessionMinter{verifier: verifier, backendURL: backendURL},
		logger:   logger,
	}
}

// Exchange converts a Naver access token into a backend session with
// idempotent user provisioning. Secondary failures surface as Warnings on
// the result rather than failing the login.
func (s *Service) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	if req.AccessToken == "" {
		return nil, ErrInvalidRequest
	}
	if req.ExpiresIn <= 0 {
		req.ExpiresIn = defaultExpiresIn
	}

	profile, err := s.profiles.Fetch(ctx, req.AccessToken)
	if err != nil {
		return nil, err
	}

	email := profile.Email
	if email == "" {
		email = placeholderEmail(profile.ID)
	}

	result := &ExchangeResult{}

	user, err := s.resolveUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{
		"naver_id":   profile.ID,
		"nickname":   profile.DisplayName(),
		"avatar_url": profile.ProfileImage,
		"full_name":  profile.Name,
	}
	appMetadata := &backend.AppMetadata{Provider: "naver", Providers: []string{"naver"}}

	if user == nil {
		result.User.IsNewUser = true

		password, err := randomPassword(passwordLength)
		if err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}

		user, err = s.admin.CreateUser(ctx, backend.CreateUserParams{
			Email:        email,
			Password:     password,
			EmailConfirm: true,
			UserMetadata: metadata,
			AppMetadata:  appMetadata,
		})
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.Info("provisioned backend user for naver login", "user_id", user.ID, "naver_id", profile.ID)
	} else {
		updated, err := s.admin.UpdateUserByID(ctx, user.ID, backend.UpdateUserParams{
			UserMetadata: metadata,
			AppMetadata:  appMetadata,
		})
		if err != nil {
			// Login proceeds with stale metadata.
			s.logger.Warn("metadata update failed", "user_id", user.ID, "error", err)
			result.Warnings = append(result.Warnings, Warning{Op: WarnMetadataUpdate, Err: err})
		} else {
			user = updated
		}
	}

	link, err := s.admin.GenerateLink(ctx, "magiclink", user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate link: %w", err)
	}

	session, err := s.minter.Mint(ctx, link.ActionLink)
	if err != nil {
		// The caller still learns who logged in; the session is unusable and
		// the client is expected to retry.
		s.logger.Error("session mint failed, returning blank session", "user_id", user.ID, "error", err)
		result.Warnings = append(result.Warnings, Warning{Op: WarnSessionMint, Err: err})
		session = blankSession()
	}
	session.User = user

	// Magic-link issuance stamps app_metadata.provider as "email"; restore
	// the real provider.
	if _, err := s.admin.UpdateUserByID(ctx, user.ID, backend.UpdateUserParams{AppMetadata: appMetadata}); err != nil {
		s.logger.Warn("provider re-patch failed", "user_id", user.ID, "error", err)
		result.Warnings = append(result.Warnings, Warning{Op: WarnProviderPatch, Err: err})
	}

	if err := s.upsertLink(ctx, user.ID, profile.ID, req); err != nil {
		s.logger.Warn("naver token upsert failed", "user_id", user.ID, "error", err)
		result.Warnings = append(result.Warnings, Warning{Op: WarnLinkUpsert, Err: err})
	}

	result.Session = session
	result.User.ID = user.ID
	result.User.Email = user.Email
	result.User.NaverID = profile.ID
	result.User.Nickname = profile.DisplayName()
	result.User.AvatarURL = profile.ProfileImage
	result.User.Provider = "naver"

	return result, nil
}

// resolveUser finds an existing backend user for the profile: first through
// the local link table, then by scanning the backend user listing. The scan
// is O(total users) and kept only as a recovery path for lost links.
func (s *Service) resolveUser(ctx context.Context, profile naver.Profile) (*backend.User, error) {
	linkedID, err := s.links.FindUserIDByNaverID(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("link lookup: %w", err)
	}
	if linkedID != uuid.Nil {
		user, err := s.admin.GetUserByID(ctx, linkedID.String())
		if err == nil && user != nil {
			return user, nil
		}
		s.logger.Warn("linked user fetch failed, falling back to scan", "user_id", linkedID, "error", err)
	}

	for page := 1; ; page++ {
		list, err := s.admin.ListUsers(ctx, page, listUsersPageSize)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for i := range list.Users {
			u := &list.Users[i]
			if profile.Email != "" && u.Email == profile.Email {
				return u, nil
			}
			if u.AppMetadata.Provider == "naver" && metadataString(u.UserMetadata, "naver_id") == profile.ID {
				return u, nil
			}
		}
		if len(list.Users) < listUsersPageSize {
			return nil, nil
		}
	}
}

func (s *Service) upsertLink(ctx context.Context, userID, naverID string, req ExchangeRequest) error {
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}

	now := time.Now()
	return s.links.Upsert(ctx, Link{
		UserID:         parsed,
		NaverID:        naverID,
		AccessToken:    req.AccessToken,
		RefreshToken:   req.RefreshToken,
		TokenExpiresAt: now.Add(time.Duration(req.ExpiresIn) * time.Second),
		UpdatedAt:      now,
	})
}

func blankSession() *backend.Session {
	return &backend.Session{
		AccessToken:  "",
		RefreshToken: "",
		ExpiresIn:    defaultExpiresIn,
		ExpiresAt:    time.Now().Unix() + defaultExpiresIn,
		TokenType:    "bearer",
	}
}

func placeholderEmail(naverID string) string {
	return fmt.Sprintf("naver_%s@naver.placeholder", naverID)
}

func metadataString(metadata map[string]any, key string) string {
	value, _ := metadata[key].(string)
	return value
}

const passwordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// randomPassword satisfies the backend's mandatory password field for users
// who will never use one.
func randomPassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordChars)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordChars[n.Int64()]
	}
	return string(out), nil
}
