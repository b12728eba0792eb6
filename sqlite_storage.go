package tgbot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Serializer turns dialogues into bytes and back
type Serializer[D any] interface {
	Serialize(dialogue D) ([]byte, error)
	Deserialize(data []byte) (D, error)
}

// JSONSerializer serializes dialogues as JSON. Dialogues which are interfaces need a serializer which keeps their
// concrete types.
type JSONSerializer[D any] struct{}

func (JSONSerializer[D]) Serialize(dialogue D) ([]byte, error) {
	return json.Marshal(dialogue)
}

func (JSONSerializer[D]) Deserialize(data []byte) (D, error) {
	var dialogue D
	err := json.Unmarshal(data, &dialogue)
	return dialogue, err
}

// SQLiteStorage keeps dialogues in a SQLite database, so they survive restarts of the bot. Different dispatchers may
// share the database only if they never handle the same chat.
type SQLiteStorage[D any] struct {
	sqlDB      *sql.DB
	serializer Serializer[D]
}

const createDialoguesTable = `CREATE TABLE IF NOT EXISTS dialogues (
	chat_id    INTEGER PRIMARY KEY,
	dialogue   BLOB    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenSQLiteStorage opens the database at the path and creates the dialogue table if needed
func OpenSQLiteStorage[D any](path string, serializer Serializer[D]) (*SQLiteStorage[D], error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	if serializer == nil {
		serializer = JSONSerializer[D]{}
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open the database : %w", err)
	}

	err = sqlDB.Ping()
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("unable to connect to the database : %w", err)
	}

	_, err = sqlDB.Exec(createDialoguesTable)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("unable to create the dialogue table : %w", err)
	}

	return &SQLiteStorage[D]{
		sqlDB:      sqlDB,
		serializer: serializer,
	}, nil
}

func (s *SQLiteStorage[D]) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStorage[D]) Get(ctx context.Context, chatId int64) (D, bool, error) {
	var dialogue D
	if err := s.check(ctx); err != nil {
		return dialogue, false, err
	}

	var data []byte
	err := s.sqlDB.QueryRowContext(ctx, "SELECT dialogue FROM dialogues WHERE chat_id = ?", chatId).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return dialogue, false, nil
	}
	if err != nil {
		return dialogue, false, fmt.Errorf("unable to get the dialogue of the chat %d : %w", chatId, err)
	}

	dialogue, err = s.serializer.Deserialize(data)
	if err != nil {
		return dialogue, false, fmt.Errorf("unable to deserialize the dialogue of the chat %d : %w", chatId, err)
	}
	return dialogue, true, nil
}

func (s *SQLiteStorage[D]) Update(ctx context.Context, chatId int64, dialogue D) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	data, err := s.serializer.Serialize(dialogue)
	if err != nil {
		return fmt.Errorf("unable to serialize the dialogue of the chat %d : %w", chatId, err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `INSERT INTO dialogues (chat_id, dialogue, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET dialogue = excluded.dialogue, updated_at = excluded.updated_at`,
		chatId, data, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("unable to update the dialogue of the chat %d : %w", chatId, err)
	}
	return nil
}

func (s *SQLiteStorage[D]) Remove(ctx context.Context, chatId int64) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, "DELETE FROM dialogues WHERE chat_id = ?", chatId)
	if err != nil {
		return fmt.Errorf("unable to remove the dialogue of the chat %d : %w", chatId, err)
	}
	return nil
}

func (s *SQLiteStorage[D]) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return errors.New("storage is not configured")
	}
	return nil
}
