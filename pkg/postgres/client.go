package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// Client 封裝 PostgreSQL 的 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// NewClient 連線 PostgreSQL，重試與 GORM 設定與 mysql 套件相同
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := mysql.Open(ctx, postgres.Open(cfg.DSN()), cfg.LogLevel, "postgres")
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return &Client{db: db}, nil
}

// DB 回傳底層的 *gorm.DB
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 關閉連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
