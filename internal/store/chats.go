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

// ChatStore reads and writes chat maps in the chats table.
type ChatStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewChatStore creates a ChatStore backed by the given pool.
func NewChatStore(log *slog.Logger, pool *pgxpool.Pool) *ChatStore {
	if log == nil {
		log = slog.Default()
	}
	return &ChatStore{
		pool:   pool,
		logger: log.With(slog.String("store", "chats")),
	}
}

const chatColumns = `id, meower_chat, revolt_chat, created_at`

// FindByMeowerChat returns every map for a Meower chat in creation order.
// An unmapped chat yields an empty slice, not an error.
func (s *ChatStore) FindByMeowerChat(ctx context.Context, chat string) ([]ChatMap, error) {
	if s.pool == nil {
		return nil, errors.New("chat store not configured")
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE meower_chat = $1 ORDER BY created_at`,
		strings.TrimSpace(chat))
	if err != nil {
		return nil, fmt.Errorf("query chat maps: %w", err)
	}
	defer rows.Close()

	var maps []ChatMap
	for rows.Next() {
		var m ChatMap
		if err := rows.Scan(&m.ID, &m.MeowerChat, &m.RevoltChannel, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat map: %w", err)
		}
		maps = append(maps, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat maps: %w", err)
	}
	return maps, nil
}

// FindByRevoltChannel returns the unique map owning a Revolt channel, or
// ErrNotFound on miss.
func (s *ChatStore) FindByRevoltChannel(ctx context.Context, channelID string) (ChatMap, error) {
	if s.pool == nil {
		return ChatMap{}, errors.New("chat store not configured")
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE revolt_chat = $1`,
		strings.TrimSpace(channelID))
	var m ChatMap
	err := row.Scan(&m.ID, &m.MeowerChat, &m.RevoltChannel, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChatMap{}, ErrNotFound
		}
		return ChatMap{}, fmt.Errorf("scan chat map: %w", err)
	}
	return m, nil
}

// Insert stores a new chat map. Re-mapping an already mapped Revolt channel
// surfaces as ErrDuplicateChat.
func (s *ChatStore) Insert(ctx context.Context, m ChatMap) error {
	if s.pool == nil {
		return errors.New("chat store not configured")
	}
	meowerChat := strings.TrimSpace(m.MeowerChat)
	revoltChannel := strings.TrimSpace(m.RevoltChannel)
	if meowerChat == "" || revoltChannel == "" {
		return errors.New("both chat identifiers are required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chats (meower_chat, revolt_chat) VALUES ($1, $2)`,
		meowerChat, revoltChannel)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateChat
		}
		return fmt.Errorf("insert chat map: %w", err)
	}
	s.logger.Info("chat map created",
		slog.String("meower_chat", meowerChat),
		slog.String("revolt_chat", revoltChannel),
	)
	return nil
}

// Count returns the number of stored chat maps.
func (s *ChatStore) Count(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("chat store not configured")
	}
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chat maps: %w", err)
	}
	return n, nil
}
