package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"litigation-assistant/internal/config"
	"litigation-assistant/internal/models"
)

// MySQLStore 保存模型呼叫的診斷紀錄 (dispatch_events)
type MySQLStore struct {
	db  *sql.DB
	log *zap.Logger
}

// NewMySQLStore 開啟連線並確認資料庫可用
func NewMySQLStore(dbCfg config.DatabaseConfig, log *zap.Logger) (*MySQLStore, error) {
	if dbCfg.Driver != "mysql" {
		return nil, fmt.Errorf("不支援的資料庫驅動程式: %s", dbCfg.Driver)
	}
	db, err := sql.Open("mysql", dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫連線失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("無法連線到資料庫 (ping 失敗): %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	store := NewWithDB(db, log)
	store.log.Info("[MySQLStore] 成功連線到 MySQL 資料庫", zap.String("host", dbCfg.Host), zap.String("db", dbCfg.DBName))
	return store, nil
}

// NewWithDB 以既有的連線建立 MySQLStore
func NewWithDB(db *sql.DB, log *zap.Logger) *MySQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &MySQLStore{db: db, log: log}
}

func (s *MySQLStore) Close() error {
	if s.db != nil {
		s.log.Info("[MySQLStore] 正在關閉 MySQL 資料庫連線")
		return s.db.Close()
	}
	return nil
}

// Record 寫入一筆診斷紀錄
func (s *MySQLStore) Record(ctx context.Context, ev models.DiagnosticEvent) error {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	query := `INSERT INTO dispatch_events (session_id, party, operation, outcome, error_kind, detail, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`
	_, err := s.db.ExecContext(ctx, query,
		ev.SessionID,
		ev.Party.NullString,
		string(ev.Operation),
		string(ev.Outcome),
		ev.ErrorKind.NullString,
		ev.Detail.NullString,
		ev.LatencyMs,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("儲存診斷紀錄失敗 (operation: %s): %w", ev.Operation, err)
	}
	return nil
}

// Recent 依時間由新到舊回傳最多 limit 筆紀錄
func (s *MySQLStore) Recent(ctx context.Context, limit int) ([]models.DiagnosticEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, session_id, party, operation, outcome, error_kind, detail, latency_ms, created_at FROM dispatch_events ORDER BY created_at DESC, id DESC LIMIT ?;`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("查詢診斷紀錄失敗: %w", err)
	}
	defer rows.Close()

	var events []models.DiagnosticEvent
	for rows.Next() {
		var ev models.DiagnosticEvent
		var op, outcome string
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Party.NullString, &op, &outcome,
			&ev.ErrorKind.NullString, &ev.Detail.NullString, &ev.LatencyMs, &ev.CreatedAt); err != nil {
			s.log.Error("[MySQLStore] 掃描診斷紀錄失敗", zap.Error(err))
			continue
		}
		ev.Operation = models.Operation(op)
		ev.Outcome = models.DispatchOutcome(outcome)
		events = append(events, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("處理診斷紀錄結果集時發生錯誤: %w", err)
	}
	return events, nil
}

// PurgeOlderThan 刪除 cutoff 之前的紀錄，回傳刪除筆數
func (s *MySQLStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dispatch_events WHERE created_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("刪除過期診斷紀錄失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("取得刪除筆數失敗: %w", err)
	}
	s.log.Info("[MySQLStore] 已刪除過期診斷紀錄", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	return n, nil
}
