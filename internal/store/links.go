package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/floofteam/meowvolt/internal/db"
)

// LinkStore reads and writes identity links in the users table.
type LinkStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLinkStore creates a LinkStore backed by the given pool.
func NewLinkStore(log *slog.Logger, pool *pgxpool.Pool) *LinkStore {
	if log == nil {
		log = slog.Default()
	}
	return &LinkStore{
		pool:   pool,
		logger: log.With(slog.String("store", "links")),
	}
}

const linkColumns = `id, meower_username, revolt_user, pfp, created_at`

// FindByMeowerUsername returns the link for a Meower username, or
// ErrNotFound on miss.
func (s *LinkStore) FindByMeowerUsername(ctx context.Context, username string) (Link, error) {
	if s.pool == nil {
		return Link{}, errors.New("link store not configured")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM users WHERE meower_username = $1`,
		strings.TrimSpace(username))
	return scanLink(row)
}

// FindByRevoltUserID returns the link for a Revolt user id, or ErrNotFound
// on miss.
func (s *LinkStore) FindByRevoltUserID(ctx context.Context, userID string) (Link, error) {
	if s.pool == nil {
		return Link{}, errors.New("link store not configured")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM users WHERE revolt_user = $1`,
		strings.TrimSpace(userID))
	return scanLink(row)
}

// Insert stores a new identity link. A unique violation on either side of
// the link surfaces as ErrDuplicateLink.
func (s *LinkStore) Insert(ctx context.Context, link Link) error {
	if s.pool == nil {
		return errors.New("link store not configured")
	}
	username := strings.TrimSpace(link.MeowerUsername)
	revoltUser := strings.TrimSpace(link.RevoltUserID)
	if username == "" || revoltUser == "" {
		return errors.New("both link identities are required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (meower_username, revolt_user, pfp) VALUES ($1, $2, $3)`,
		username, revoltUser, link.Avatar)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateLink
		}
		return fmt.Errorf("insert link: %w", err)
	}
	s.logger.Info("identity link created",
		slog.String("meower_username", username),
		slog.String("revolt_user", revoltUser),
	)
	return nil
}

// Count returns the number of stored identity links.
func (s *LinkStore) Count(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("link store not configured")
	}
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return n, nil
}

func scanLink(row pgx.Row) (Link, error) {
	var link Link
	err := row.Scan(&link.ID, &link.MeowerUsername, &link.RevoltUserID, &link.Avatar, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, ErrNotFound
		}
		return Link{}, fmt.Errorf("scan link: %w", err)
	}
	return link, nil
}
