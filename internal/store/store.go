package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-cact-kit/pkg/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound は指定した結果が保存されていないことを表すのだ。
var ErrNotFound = errors.New("保存された結果が見つかりません")

// Record は保存された診断結果1件分です。
type Record struct {
	ID        string
	CreatedAt time.Time
	Profile   domain.UserProfile
	Result    domain.AnalysisResult
}

// Summary は一覧表示用の軽量な行なのだ。
type Summary struct {
	ID          string    `db:"id"`
	CreatedAt   time.Time `db:"-"`
	Nickname    string    `db:"nickname"`
	MBTI        string    `db:"mbti"`
	Temperament string    `db:"temperament"`
	CreatedUnix int64     `db:"created_at"`
}

type row struct {
	ID          string `db:"id"`
	CreatedUnix int64  `db:"created_at"`
	ProfileJSON string `db:"profile_json"`
	ResultJSON  string `db:"result_json"`
}

// Store はローカルの SQLite に診断結果を保存します。
type Store struct {
	conn *sqlx.DB
}

// Open は path の SQLite データベースを開き、必要ならテーブルを作成するのだ。
func Open(path string) (*Store, error) {
	// modernc.org/sqlite は接続ごとに _pragma パラメータを実行するのだ
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("データベースを開けませんでした: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("マイグレーションに失敗しました: %w", err)
	}
	return s, nil
}

// Close はデータベース接続を閉じます。
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		nickname TEXT NOT NULL,
		mbti TEXT NOT NULL,
		temperament TEXT NOT NULL,
		profile_json TEXT NOT NULL,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_created ON results(created_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save は結果を保存し、保存したレコードを返すのだ。id が空なら新しく採番します。
// 同じ id で保存した場合は上書きになります。
func (s *Store) Save(ctx context.Context, id string, profile domain.UserProfile, result domain.AnalysisResult) (Record, error) {
	if err := result.Validate(); err != nil {
		return Record{}, &domain.ValidationError{Field: "result", Reason: err.Error()}
	}
	if id == "" {
		id = uuid.NewString()
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return Record{}, fmt.Errorf("プロフィールのエンコードに失敗しました: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return Record{}, fmt.Errorf("結果のエンコードに失敗しました: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.conn.ExecContext(ctx, `INSERT OR REPLACE INTO results
		(id, created_at, nickname, mbti, temperament, profile_json, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, now.UnixNano(), profile.Nickname, result.MBTI, string(result.Temperament), string(profileJSON), string(resultJSON),
	)
	if err != nil {
		return Record{}, fmt.Errorf("結果の保存に失敗しました: %w", err)
	}

	slog.Debug("結果を保存しました", "id", id, "nickname", profile.Nickname, "mbti", result.MBTI)
	return Record{ID: id, CreatedAt: now, Profile: profile, Result: result.Clone()}, nil
}

// Get は id の結果を読み込みます。
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var r row
	err := s.conn.GetContext(ctx, &r,
		"SELECT id, created_at, profile_json, result_json FROM results WHERE id = ?", id)
	if err != nil {
		return Record{}, notFound(err)
	}
	return r.decode()
}

// Latest は最後に保存された結果を返すのだ。
func (s *Store) Latest(ctx context.Context) (Record, error) {
	var r row
	err := s.conn.GetContext(ctx, &r,
		"SELECT id, created_at, profile_json, result_json FROM results ORDER BY created_at DESC LIMIT 1")
	if err != nil {
		return Record{}, notFound(err)
	}
	return r.decode()
}

// List は新しい順に最大 limit 件の概要を返します。
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	var items []Summary
	err := s.conn.SelectContext(ctx, &items,
		"SELECT id, created_at, nickname, mbti, temperament FROM results ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("履歴の取得に失敗しました: %w", err)
	}
	for i := range items {
		items[i].CreatedAt = time.Unix(0, items[i].CreatedUnix).UTC()
	}
	return items, nil
}

func (r row) decode() (Record, error) {
	rec := Record{ID: r.ID, CreatedAt: time.Unix(0, r.CreatedUnix).UTC()}
	if err := json.Unmarshal([]byte(r.ProfileJSON), &rec.Profile); err != nil {
		return Record{}, fmt.Errorf("保存済みプロフィールの解析に失敗しました (%s): %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ResultJSON), &rec.Result); err != nil {
		return Record{}, fmt.Errorf("保存済み結果の解析に失敗しました (%s): %w", r.ID, err)
	}
	return rec, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("結果の読み込みに失敗しました: %w", err)
}
